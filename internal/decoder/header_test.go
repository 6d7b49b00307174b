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

package decoder_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmpbf/internal/decoder"
	"m4o.io/osmpbf/internal/pb"
	"m4o.io/osmpbf/internal/pbftest"
	"m4o.io/osmpbf/model"
)

// capture returns a logger writing to the returned buffer, for asserting
// on diagnostics.
func capture() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer

	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestLoadHeader(t *testing.T) {
	hb := &pb.HeaderBlock{
		BBox: &pb.HeaderBBox{
			Left:   9000000000,
			Right:  10000000000,
			Top:    55000000000,
			Bottom: 54000000000,
		},
		RequiredFeatures:                 []string{"OsmSchema-V0.6", "DenseNodes"},
		OptionalFeatures:                 []string{"Sort.Type_then_ID"},
		Writingprogram:                   "osmium/1.14.0",
		Source:                           "api",
		OsmosisReplicationTimestamp:      1395698102,
		HasReplicationTimestamp:          true,
		OsmosisReplicationSequenceNumber: 4221,
		HasReplicationSequenceNumber:     true,
		OsmosisReplicationBaseURL:        "http://planet.openstreetmap.org/replication",
	}

	logger, _ := capture()

	header, err := decoder.LoadHeader(bytes.NewReader(pbftest.HeaderBlob(pb.CodecZlib, hb)), logger)
	require.NoError(t, err)

	require.NotNil(t, header.BoundingBox)
	assert.Equal(t, &model.BoundingBox{Top: 55.0, Left: 9.0, Bottom: 54.0, Right: 10.0}, header.BoundingBox)
	assert.Equal(t, []string{"OsmSchema-V0.6", "DenseNodes"}, header.RequiredFeatures)
	assert.Equal(t, []string{"Sort.Type_then_ID"}, header.OptionalFeatures)
	assert.Equal(t, "osmium/1.14.0", header.WritingProgram)
	assert.Equal(t, "api", header.Source)
	assert.Equal(t, time.Unix(1395698102, 0), header.OsmosisReplicationTimestamp)
	assert.Equal(t, int64(4221), header.OsmosisReplicationSequenceNumber)
	assert.Equal(t, "http://planet.openstreetmap.org/replication", header.OsmosisReplicationBaseURL)
}

func TestLoadHeader_FirstBlobNotHeader(t *testing.T) {
	blk := &pb.PrimitiveBlock{
		Stringtable:     pb.StringTable{S: [][]byte{nil}},
		Granularity:     pb.DefaultGranularity,
		DateGranularity: pb.DefaultDateGranularity,
	}

	logger, _ := capture()

	_, err := decoder.LoadHeader(bytes.NewReader(pbftest.DataBlob(pb.CodecZlib, blk)), logger)
	assert.ErrorIs(t, err, decoder.ErrFormat)
}

func TestLoadHeader_EmptyStream(t *testing.T) {
	logger, _ := capture()

	_, err := decoder.LoadHeader(bytes.NewReader(nil), logger)
	assert.ErrorIs(t, err, decoder.ErrTruncated)
}

func TestLoadHeader_CorruptBlock(t *testing.T) {
	frame := pbftest.Frame(pbftest.HeaderType, pbftest.MarshalBlob(pbftest.Compress(pb.CodecRaw, []byte{0x07})))

	logger, _ := capture()

	_, err := decoder.LoadHeader(bytes.NewReader(frame), logger)
	assert.ErrorIs(t, err, decoder.ErrCorrupted)
}

func TestLoadHeader_MalformedBBox(t *testing.T) {
	test_cases := []struct {
		name string
		bbox *pb.HeaderBBox
	}{
		{"inverted", &pb.HeaderBBox{Left: 10000000000, Right: 9000000000, Top: 55000000000, Bottom: 54000000000}},
		{"out of range", &pb.HeaderBBox{Left: 9000000000, Right: 181000000000, Top: 55000000000, Bottom: 54000000000}},
	}

	for _, tc := range test_cases {
		t.Run(tc.name, func(t *testing.T) {
			logger, buf := capture()

			hb := &pb.HeaderBlock{BBox: tc.bbox}

			header, err := decoder.LoadHeader(bytes.NewReader(pbftest.HeaderBlob(pb.CodecZlib, hb)), logger)
			require.NoError(t, err)

			assert.Nil(t, header.BoundingBox)
			assert.True(t, strings.Contains(buf.String(), "bounding box"))
		})
	}
}

func TestLoadHeader_NegativeReplicationTimestamp(t *testing.T) {
	logger, buf := capture()

	hb := &pb.HeaderBlock{
		OsmosisReplicationTimestamp: -1,
		HasReplicationTimestamp:     true,
	}

	header, err := decoder.LoadHeader(bytes.NewReader(pbftest.HeaderBlob(pb.CodecZlib, hb)), logger)
	require.NoError(t, err)

	assert.True(t, header.OsmosisReplicationTimestamp.IsZero())
	assert.True(t, strings.Contains(buf.String(), "timestamp"))
}
