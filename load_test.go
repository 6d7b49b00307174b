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

package osmpbf_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmpbf"
	"m4o.io/osmpbf/internal/pb"
	"m4o.io/osmpbf/internal/pbftest"
	"m4o.io/osmpbf/model"
)

func TestLoad(t *testing.T) {
	ds, err := osmpbf.Load(context.Background(), bytes.NewReader(fixtureFile(pb.CodecZlib)))
	require.NoError(t, err)

	assert.Equal(t, 5, ds.Size())
	assert.Len(t, ds.Nodes, 3)
	assert.Len(t, ds.Ways, 1)
	assert.Len(t, ds.Relations, 1)

	require.NotNil(t, ds.Header.BoundingBox)
	assert.Equal(t, "osmium/1.14.0", ds.Header.WritingProgram)

	assert.Equal(t, map[string]string{"amenity": "pub"}, ds.Nodes[1].Tags)
	assert.Equal(t, []model.ID{1, 2, 3}, ds.Ways[10].NodeIDs)
	assert.Equal(t, map[string]string{"type": "route"}, ds.Relations[20].Tags)
}

func TestLoad_CorruptHeaderBlob(t *testing.T) {
	file := pbftest.Frame(pbftest.HeaderType, []byte{0x07})

	_, err := osmpbf.Load(context.Background(), bytes.NewReader(file))
	assert.ErrorIs(t, err, osmpbf.ErrCorrupted)
}

func TestLoad_Idempotent(t *testing.T) {
	first, err := osmpbf.Load(context.Background(), bytes.NewReader(fixtureFile(pb.CodecZlib)))
	require.NoError(t, err)

	second, err := osmpbf.Load(context.Background(), bytes.NewReader(fixtureFile(pb.CodecZlib)))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoad_LastWriteWins(t *testing.T) {
	strs := [][]byte{nil, []byte("amenity"), []byte("pub"), []byte("cafe")}

	dense := func(val uint32) *pb.PrimitiveBlock {
		return &pb.PrimitiveBlock{
			Stringtable:     pb.StringTable{S: strs},
			Granularity:     pb.DefaultGranularity,
			DateGranularity: pb.DefaultDateGranularity,
			Primitivegroup: []*pb.PrimitiveGroup{
				{
					Dense: &pb.DenseNodes{
						ID:       []int64{1},
						Lat:      []int64{515000000},
						Lon:      []int64{-1000000},
						KeysVals: []int32{1, int32(val), 0},
					},
				},
			},
		}
	}

	file := pbftest.File(pb.CodecZlib, fixtureHeader(), dense(2), dense(3))

	ds, err := osmpbf.Load(context.Background(), bytes.NewReader(file))
	require.NoError(t, err)

	require.Len(t, ds.Nodes, 1)
	assert.Equal(t, "cafe", ds.Nodes[1].Tags["amenity"])
}

func TestLoad_NodeFilterDrop(t *testing.T) {
	ds, err := osmpbf.Load(context.Background(), bytes.NewReader(fixtureFile(pb.CodecZlib)),
		osmpbf.WithNodeFilter(func(n model.Node) (model.Node, bool) {
			return n, false
		}))
	require.NoError(t, err)

	assert.Empty(t, ds.Nodes)
	assert.Len(t, ds.Ways, 1)
	assert.Len(t, ds.Relations, 1)
}

func TestLoad_FilterPanic(t *testing.T) {
	ds, err := osmpbf.Load(context.Background(), bytes.NewReader(fixtureFile(pb.CodecZlib)),
		osmpbf.WithNodeFilter(func(n model.Node) (model.Node, bool) {
			panic("filters misbehave sometimes")
		}))
	require.NoError(t, err)

	// a panicking filter drops its entities but never fails the read
	assert.Empty(t, ds.Nodes)
	assert.Len(t, ds.Ways, 1)
	assert.Len(t, ds.Relations, 1)
}

func TestLoad_WayFilterTransform(t *testing.T) {
	ds, err := osmpbf.Load(context.Background(), bytes.NewReader(fixtureFile(pb.CodecZlib)),
		osmpbf.WithWayFilter(func(w model.Way) (model.Way, bool) {
			w.Tags = nil

			return w, true
		}))
	require.NoError(t, err)

	require.Len(t, ds.Ways, 1)
	assert.Nil(t, ds.Ways[10].Tags)
	assert.Equal(t, []model.ID{1, 2, 3}, ds.Ways[10].NodeIDs)
}

func TestLoad_RelationFilter(t *testing.T) {
	ds, err := osmpbf.Load(context.Background(), bytes.NewReader(fixtureFile(pb.CodecZlib)),
		osmpbf.WithRelationFilter(func(r model.Relation) (model.Relation, bool) {
			return r, r.Tags["type"] != "route"
		}))
	require.NoError(t, err)

	assert.Empty(t, ds.Relations)
	assert.Len(t, ds.Nodes, 3)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.osm.pbf")
	require.NoError(t, os.WriteFile(path, fixtureFile(pb.CodecZstd), 0o600))

	ds, err := osmpbf.LoadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 5, ds.Size())
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := osmpbf.LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.osm.pbf"))
	assert.Error(t, err)
}
