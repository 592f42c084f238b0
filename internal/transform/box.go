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

package transform

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/grofile"
)

// BuiltinBoxRescaler - in-process box rescaling. Box arithmetic is exact so expanding and restoring by the same
// delta reproduces the original box
type BuiltinBoxRescaler struct{}

func (b *BuiltinBoxRescaler) Rescale(_ context.Context, dir string, input string, delta decimal.Decimal) error {
	stage := boxStage(delta)
	f, err := grofile.ReadFile(filepath.Join(dir, input))
	if err != nil {
		return NewStageError(stage, err)
	}
	before := f.BoxLine()
	if err := f.PadBox(delta); err != nil {
		return NewStageError(stage, err)
	}
	if err := grofile.WriteFile(filepath.Join(dir, domains.MergedCoordinatesFileName), f); err != nil {
		return NewStageError(stage, err)
	}
	log.Debug().
		Str("Stage", stage).
		Str("Dir", dir).
		Str("Before", before).
		Str("After", f.BoxLine()).
		Msg("box is rescaled")
	return nil
}
