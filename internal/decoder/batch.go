// Copyright 2017-25 the original author or authors.
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

package decoder

import (
	"errors"
	"log/slog"

	"m4o.io/osmpbf/internal/pb"
	"m4o.io/osmpbf/model"
)

// DecodeBatch unpacks a batch of data blobs and parses them into entities.
// A corrupt blob is skipped with a diagnostic; format, truncation, and
// unsupported-codec errors abort the batch, and with it the read.
func DecodeBatch(batch []*pb.Blob, logger *slog.Logger) ([]model.Entity, error) {
	entities := make([]model.Entity, 0)

	for _, blob := range batch {
		unpacked, err := Unpack(blob)
		if err != nil {
			if errors.Is(err, ErrCorrupted) {
				logger.Error("skipping corrupt blob", "error", err)

				continue
			}

			return nil, err
		}

		parsed, err := ParsePrimitiveBlock(unpacked, logger)
		if err != nil {
			logger.Error("skipping corrupt block", "error", err)

			continue
		}

		entities = append(entities, parsed...)
	}

	return entities, nil
}
