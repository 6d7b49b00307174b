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
	"fmt"
	"io"
	"log/slog"
	"time"

	"m4o.io/osmpbf/internal/pb"
	"m4o.io/osmpbf/model"
)

// LoadHeader consumes the first blob of the stream, which must be the
// header blob, and decodes it into the file metadata.  Header corruption
// is fatal; malformed sub-fields are individually omitted with a warning.
func LoadHeader(reader io.Reader, logger *slog.Logger) (model.Header, error) {
	b, h, err := ReadBlob(reader)
	if err != nil {
		if err == io.EOF {
			return model.Header{}, fmt.Errorf("stream ends before the header blob: %w", ErrTruncated)
		}

		return model.Header{}, err
	}

	if h.Type != HeaderType {
		return model.Header{}, fmt.Errorf("first blob type %q where %q expected: %w", h.Type, HeaderType, ErrFormat)
	}

	buf, err := Unpack(b)
	if err != nil {
		return model.Header{}, err
	}

	hb, err := pb.UnmarshalHeaderBlock(buf)
	if err != nil {
		return model.Header{}, fmt.Errorf("unable to unmarshal header block: %w", ErrCorrupted)
	}

	return decodeHeader(hb, logger), nil
}

func decodeHeader(hb *pb.HeaderBlock, logger *slog.Logger) model.Header {
	header := model.Header{
		RequiredFeatures:          hb.RequiredFeatures,
		OptionalFeatures:          hb.OptionalFeatures,
		WritingProgram:            hb.Writingprogram,
		Source:                    hb.Source,
		OsmosisReplicationBaseURL: hb.OsmosisReplicationBaseURL,
	}

	if hb.HasReplicationSequenceNumber {
		header.OsmosisReplicationSequenceNumber = hb.OsmosisReplicationSequenceNumber
	}

	if hb.BBox != nil {
		header.BoundingBox = decodeBBox(hb.BBox, logger)
	}

	if hb.HasReplicationTimestamp {
		if hb.OsmosisReplicationTimestamp < 0 {
			logger.Warn("ignoring unconvertible replication timestamp",
				"timestamp", hb.OsmosisReplicationTimestamp)
		} else {
			header.OsmosisReplicationTimestamp = time.Unix(hb.OsmosisReplicationTimestamp, 0)
		}
	}

	return header
}

// decodeBBox converts the header bounding box from nanodegree integers,
// dropping it when the bounds are out of range or inverted.
func decodeBBox(bbox *pb.HeaderBBox, logger *slog.Logger) *model.BoundingBox {
	b := &model.BoundingBox{
		Left:   model.ToDegrees(0, 1, bbox.Left),
		Right:  model.ToDegrees(0, 1, bbox.Right),
		Top:    model.ToDegrees(0, 1, bbox.Top),
		Bottom: model.ToDegrees(0, 1, bbox.Bottom),
	}

	if b.Bottom > b.Top || b.Left > b.Right ||
		!model.Valid(b.Bottom, b.Left) || !model.Valid(b.Top, b.Right) {
		logger.Warn("ignoring malformed header bounding box", "bbox", b)

		return nil
	}

	return b
}
