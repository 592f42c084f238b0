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

package pairing

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	"github.com/ligate/edgeprep/internal/domains"
)

const (
	ligandAExprVar = "ligand_a"
	ligandBExprVar = "ligand_b"
	indexExprVar   = "index"
)

// WhenCond - a condition deciding whether the pair is built. An empty condition always returns true
type WhenCond struct {
	whenCond *vm.Program
	when     string
}

func NewWhenCond(when string) (*WhenCond, error) {
	wc := &WhenCond{when: when}
	if when == "" {
		return wc, nil
	}
	log.Debug().Str("WhenCond", when).Msg("found when condition: compiling")
	cond, err := expr.Compile(when, expr.Env(newEnv(domains.LigandPair{}, 0)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("unable to compile when condition \"%s\": %w", when, err)
	}
	wc.whenCond = cond
	return wc, nil
}

func (wc *WhenCond) Evaluate(p domains.LigandPair, idx int) (bool, error) {
	if wc.whenCond == nil {
		return true, nil
	}
	output, err := expr.Run(wc.whenCond, newEnv(p, idx))
	if err != nil {
		return false, fmt.Errorf("unable to evaluate when condition for pair %s: %w", p.String(), err)
	}
	cond, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("when condition should return boolean, got (%T) and value %+v", output, output)
	}
	return cond, nil
}

func newEnv(p domains.LigandPair, idx int) map[string]any {
	return map[string]any{
		ligandAExprVar: p.A,
		ligandBExprVar: p.B,
		indexExprVar:   idx,
	}
}
