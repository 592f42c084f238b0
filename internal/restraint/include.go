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

package restraint

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	directiveMarker = "#"
	includeKeyword  = "include"
)

// Include - a preprocessor include directive of a gromacs topology
type Include struct {
	Indent string
	// Directive - the marker and the keyword as written, "#include" or "# include"
	Directive string
	// Space - whitespace between the keyword and the path
	Space string
	Open  byte
	Path  string
	Close byte
	// Rest - everything after the closing delimiter, usually a comment
	Rest string
}

// ParseInclude - parses a single line without the line terminator. Commented out directives are not includes
func ParseInclude(line string) (*Include, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, directiveMarker) {
		return nil, false
	}
	keyword := strings.TrimLeft(trimmed[len(directiveMarker):], " \t")
	if !strings.HasPrefix(keyword, includeKeyword) {
		return nil, false
	}
	afterKeyword := keyword[len(includeKeyword):]
	directive := trimmed[:len(trimmed)-len(afterKeyword)]
	// the path may follow the keyword without a separator
	target := strings.TrimLeft(afterKeyword, " \t")
	if target == "" {
		return nil, false
	}

	var closing byte
	switch target[0] {
	case '"':
		closing = '"'
	case '<':
		closing = '>'
	default:
		return nil, false
	}
	end := strings.IndexByte(target[1:], closing)
	if end <= 0 {
		return nil, false
	}
	rest := target[end+2:]
	if tail := strings.TrimLeft(rest, " \t"); tail != "" && tail[0] != ';' {
		return nil, false
	}

	return &Include{
		Indent:    line[:len(line)-len(trimmed)],
		Directive: directive,
		Space:     afterKeyword[:len(afterKeyword)-len(target)],
		Open:      target[0],
		Path:      target[1 : end+1],
		Close:     closing,
		Rest:      rest,
	}, true
}

func (inc *Include) BaseName() string {
	return path.Base(filepath.ToSlash(inc.Path))
}

func (inc *Include) String() string {
	sb := strings.Builder{}
	sb.WriteString(inc.Indent)
	sb.WriteString(inc.Directive)
	sb.WriteString(inc.Space)
	sb.WriteByte(inc.Open)
	sb.WriteString(inc.Path)
	sb.WriteByte(inc.Close)
	sb.WriteString(inc.Rest)
	return sb.String()
}
