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

package decoder_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmpbf/internal/decoder"
	"m4o.io/osmpbf/internal/pb"
	"m4o.io/osmpbf/internal/pbftest"
	"m4o.io/osmpbf/model"
)

func denseBlock(id int64) *pb.PrimitiveBlock {
	return &pb.PrimitiveBlock{
		Stringtable:     pb.StringTable{S: [][]byte{nil}},
		Granularity:     pb.DefaultGranularity,
		DateGranularity: pb.DefaultDateGranularity,
		Primitivegroup: []*pb.PrimitiveGroup{
			{
				Dense: &pb.DenseNodes{
					ID:  []int64{id},
					Lat: []int64{515000000},
					Lon: []int64{-1000000},
				},
			},
		},
	}
}

func TestDecodeBatch(t *testing.T) {
	batch := []*pb.Blob{
		pbftest.Compress(pb.CodecZlib, pbftest.MarshalPrimitiveBlock(denseBlock(1))),
		pbftest.Compress(pb.CodecZstd, pbftest.MarshalPrimitiveBlock(denseBlock(2))),
	}

	logger, _ := capture()

	entities, err := decoder.DecodeBatch(batch, logger)
	require.NoError(t, err)
	require.Len(t, entities, 2)

	// sequential blob order is preserved
	assert.Equal(t, model.ID(1), entities[0].GetID())
	assert.Equal(t, model.ID(2), entities[1].GetID())
}

func TestDecodeBatch_SkipsCorruptBlob(t *testing.T) {
	corrupt := pbftest.Compress(pb.CodecZlib, pbftest.MarshalPrimitiveBlock(denseBlock(2)))
	corrupt.RawSize++

	batch := []*pb.Blob{
		pbftest.Compress(pb.CodecZlib, pbftest.MarshalPrimitiveBlock(denseBlock(1))),
		corrupt,
		pbftest.Compress(pb.CodecZlib, pbftest.MarshalPrimitiveBlock(denseBlock(3))),
	}

	logger, buf := capture()

	entities, err := decoder.DecodeBatch(batch, logger)
	require.NoError(t, err)
	require.Len(t, entities, 2)

	assert.Equal(t, model.ID(1), entities[0].GetID())
	assert.Equal(t, model.ID(3), entities[1].GetID())
	assert.True(t, strings.Contains(buf.String(), "skipping corrupt blob"))
}

func TestDecodeBatch_SkipsCorruptBlock(t *testing.T) {
	batch := []*pb.Blob{
		pbftest.Compress(pb.CodecRaw, []byte{0x07}),
		pbftest.Compress(pb.CodecZlib, pbftest.MarshalPrimitiveBlock(denseBlock(1))),
	}

	logger, buf := capture()

	entities, err := decoder.DecodeBatch(batch, logger)
	require.NoError(t, err)
	require.Len(t, entities, 1)

	assert.Equal(t, model.ID(1), entities[0].GetID())
	assert.True(t, strings.Contains(buf.String(), "skipping corrupt block"))
}

func TestDecodeBatch_UnsupportedAborts(t *testing.T) {
	batch := []*pb.Blob{
		{Codec: pb.CodecBzip2, Data: []byte("BZh9"), RawSize: 4, HasRawSize: true},
	}

	logger, _ := capture()

	_, err := decoder.DecodeBatch(batch, logger)
	assert.ErrorIs(t, err, decoder.ErrUnsupported)
}
