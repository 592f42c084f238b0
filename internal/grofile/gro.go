// Copyright 2023 Greenmask
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package grofile models GROMACS .gro coordinate files. Atom records are kept verbatim, only the box line is
// parsed, so rewriting the box never changes atom positions.
package grofile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	boxPrecision  = 5
	boxFieldWidth = 10
)

var ErrMalformed = errors.New("malformed gro file")

type File struct {
	Title string
	// Atoms - atom records exactly as they were read, without line terminators
	Atoms []string
	// Box - 3 (rectangular) or 9 (triclinic) box vector components in the gro order
	// v1(x) v2(y) v3(z) v1(y) v1(z) v2(x) v2(z) v3(x) v3(y)
	Box []decimal.Decimal
}

func Parse(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	next := func(what string) (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("unable to read %s: %w", what, err)
			}
			return "", fmt.Errorf("%w: unexpected end of file reading %s", ErrMalformed, what)
		}
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}

	title, err := next("title")
	if err != nil {
		return nil, err
	}
	countLine, err := next("atom count")
	if err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(countLine))
	if err != nil || count < 0 {
		return nil, fmt.Errorf("%w: invalid atom count \"%s\"", ErrMalformed, countLine)
	}

	f := &File{
		Title: title,
		Atoms: make([]string, 0, count),
	}
	for i := 0; i < count; i++ {
		line, err := next(fmt.Sprintf("atom %d", i+1))
		if err != nil {
			return nil, err
		}
		f.Atoms = append(f.Atoms, line)
	}

	boxLine, err := next("box")
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(boxLine)
	if len(fields) != 3 && len(fields) != 9 {
		return nil, fmt.Errorf("%w: box line must have 3 or 9 components got %d", ErrMalformed, len(fields))
	}
	for _, field := range fields {
		v, err := decimal.NewFromString(field)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid box component \"%s\"", ErrMalformed, field)
		}
		f.Box = append(f.Box, v)
	}
	return f, nil
}

func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s\n%5d\n", f.Title, len(f.Atoms)); err != nil {
		return err
	}
	for _, a := range f.Atoms {
		if _, err := bw.WriteString(a + "\n"); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString(f.BoxLine() + "\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// BoxLine - the box vectors formatted as gro does: 10 characters wide fields with 5 decimals. A component read
// with more decimals keeps all of them
func (f *File) BoxLine() string {
	sb := strings.Builder{}
	for _, v := range f.Box {
		field := v.StringFixed(boxDecimals(v))
		if len(field) >= boxFieldWidth {
			// components must stay whitespace separated
			field = " " + field
		}
		sb.WriteString(fmt.Sprintf("%*s", boxFieldWidth, field))
	}
	return sb.String()
}

func boxDecimals(v decimal.Decimal) int32 {
	if -v.Exponent() > boxPrecision {
		return -v.Exponent()
	}
	return boxPrecision
}

// PadBox - adds delta to every box dimension (the diagonal components). A negative delta shrinks the box.
// Off-diagonal components of a triclinic box are kept
func (f *File) PadBox(delta decimal.Decimal) error {
	if len(f.Box) < 3 {
		return fmt.Errorf("%w: box is not set", ErrMalformed)
	}
	padded := make([]decimal.Decimal, len(f.Box))
	copy(padded, f.Box)
	for i := 0; i < 3; i++ {
		padded[i] = padded[i].Add(delta)
		if !padded[i].IsPositive() {
			return fmt.Errorf("box dimension %d becomes non positive (%s) after padding by %s",
				i, padded[i].String(), delta.String())
		}
	}
	f.Box = padded
	return nil
}

func ReadFile(name string) (*File, error) {
	r, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	f, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

// WriteFile - writes through a temporary file so name may be the file f was read from
func WriteFile(name string, f *File) error {
	tmp := name + ".tmp"
	w, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		w.Close()
		os.Remove(tmp)
		return fmt.Errorf("unable to write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, name)
}
