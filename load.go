// Copyright 2025 the original author or authors.
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

package osmpbf

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"m4o.io/osmpbf/model"
)

// Load reads a complete PBF stream into a dataset.  Entities are merged
// by ID, last write winning; the optional per-kind filters decide, per
// entity, whether it enters the dataset and in what form.
//
// Load either returns a complete dataset or fails with one of ErrFormat,
// ErrTruncated, ErrCorrupted (header blob only), or ErrUnsupported; all
// lesser anomalies are absorbed into diagnostics and a best-effort
// dataset.
func Load(ctx context.Context, reader io.Reader, options ...DecoderOption) (*model.Dataset, error) {
	d, err := NewDecoder(ctx, reader, options...)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	dataset := model.NewDataset()
	dataset.Header = d.Header

	for {
		entities, err := d.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, err
		}

		for _, entity := range entities {
			if kept, ok := d.filter(entity); ok {
				dataset.Add(kept)
			}
		}
	}

	return dataset, nil
}

// LoadFile reads the PBF file at path into a dataset.
func LoadFile(ctx context.Context, path string, options ...DecoderOption) (*model.Dataset, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	return Load(ctx, in, options...)
}

// filter runs the entity through its kind's filter, if one is installed.
func (d *Decoder) filter(entity model.Entity) (model.Entity, bool) {
	switch v := entity.(type) {
	case model.Node:
		if d.opts.nodeFilter != nil {
			return applyFilter(d.opts.nodeFilter, v, d.opts.logger)
		}
	case model.Way:
		if d.opts.wayFilter != nil {
			return applyFilter(d.opts.wayFilter, v, d.opts.logger)
		}
	case model.Relation:
		if d.opts.relationFilter != nil {
			return applyFilter(d.opts.relationFilter, v, d.opts.logger)
		}
	}

	return entity, true
}

// applyFilter invokes a caller-supplied filter.  A filter that panics
// drops its entity; filter failures never propagate to the read.
func applyFilter[E model.Entity](f func(E) (E, bool), entity E, logger *slog.Logger) (kept model.Entity, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("entity filter panicked; entity dropped", "id", entity.GetID(), "panic", r)

			ok = false
		}
	}()

	out, keep := f(entity)

	return out, keep
}
