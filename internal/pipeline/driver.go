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

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ligate/edgeprep/internal/domains"
	"github.com/ligate/edgeprep/internal/pairing"
	"github.com/ligate/edgeprep/internal/workspace"
)

// PairSource - produces the ordered ligand pairs. Artifact is the pairing result removed at cleanup
type PairSource interface {
	Pairs(ctx context.Context) ([]domains.LigandPair, error)
	Artifact() string
}

type Builder interface {
	Build(ctx context.Context, pair domains.LigandPair) error
}

// Driver - reads the pairing once, builds the edges one by one and removes the non edge material
type Driver struct {
	source  PairSource
	builder Builder
	ws      *workspace.Workspace
	cleanup *domains.Cleanup
}

func NewDriver(source PairSource, builder Builder, ws *workspace.Workspace, cleanup *domains.Cleanup) *Driver {
	return &Driver{
		source:  source,
		builder: builder,
		ws:      ws,
		cleanup: cleanup,
	}
}

// Run - a pairing failure aborts before anything is created or removed. Once the edges are started the tracked
// material is removed even when an edge aborts
func (d *Driver) Run(ctx context.Context) (err error) {
	pairs, err := d.source.Pairs(ctx)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("%w: no pairs left to build", pairing.ErrPairingFailed)
	}
	if err := d.ws.CheckProteinCoordinates(); err != nil {
		return err
	}

	if d.cleanup.Enabled {
		manifest, err := d.newCleanupManifest(pairs)
		if err != nil {
			return err
		}
		defer func() {
			log.Info().Int("Paths", len(manifest.Paths())).Msg("removing ligand preparation material")
			if cleanupErr := manifest.Cleanup(); cleanupErr != nil {
				err = errors.Join(err, fmt.Errorf("cleanup: %w", cleanupErr))
			}
		}()
	}

	for idx, p := range pairs {
		log.Info().
			Str("Edge", p.EdgeDirName()).
			Int("Index", idx+1).
			Int("Total", len(pairs)).
			Msg("building edge")
		if err := d.builder.Build(ctx, p); err != nil {
			return fmt.Errorf("edge %s: %w", p.EdgeDirName(), err)
		}
		log.Info().Str("Edge", p.EdgeDirName()).Msg("edge is built")
	}
	return nil
}

func (d *Driver) newCleanupManifest(pairs []domains.LigandPair) (*workspace.Manifest, error) {
	manifest, err := workspace.NewManifest(d.ws.Workdir(), d.ws.ProteinCoordinates())
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		for _, name := range []string{p.A, p.B} {
			if err := manifest.Track(d.ws.LigandDir(name)); err != nil {
				return nil, err
			}
		}
	}
	if err := manifest.Track(d.source.Artifact()); err != nil {
		log.Warn().Err(err).Msg("pairing result is kept")
	}
	for _, name := range d.cleanup.Scratch {
		if err := manifest.Track(name); err != nil {
			return nil, fmt.Errorf("cleanup scratch: %w", err)
		}
	}
	return manifest, nil
}
