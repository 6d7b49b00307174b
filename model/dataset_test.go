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

package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"m4o.io/osmpbf/model"
)

func TestDataset_Add(t *testing.T) {
	ds := model.NewDataset()

	ds.Add(model.Node{ID: 1, Lat: 51.5, Lon: -0.1})
	ds.Add(model.Way{ID: 1, NodeIDs: []model.ID{1, 2}})
	ds.Add(model.Relation{ID: 1, Members: []model.Member{{ID: 1, Type: model.NODE}}})

	// the three namespaces are independent
	assert.Equal(t, 3, ds.Size())
	assert.Len(t, ds.Nodes, 1)
	assert.Len(t, ds.Ways, 1)
	assert.Len(t, ds.Relations, 1)
}

func TestDataset_AddOverwrites(t *testing.T) {
	ds := model.NewDataset()

	ds.Add(model.Node{ID: 42, Tags: map[string]string{"amenity": "pub"}})
	ds.Add(model.Node{ID: 42, Tags: map[string]string{"amenity": "cafe"}})

	assert.Equal(t, 1, ds.Size())
	assert.Equal(t, "cafe", ds.Nodes[42].Tags["amenity"])
}

func TestInfo_Empty(t *testing.T) {
	assert.True(t, (&model.Info{}).Empty())

	visible := false

	test_cases := []struct {
		name string
		info model.Info
	}{
		{"version", model.Info{Version: 2}},
		{"uid", model.Info{UID: 1}},
		{"timestamp", model.Info{Timestamp: time.Unix(0, 0)}},
		{"changeset", model.Info{Changeset: 1}},
		{"user", model.Info{User: "steve"}},
		{"visible", model.Info{Visible: &visible}},
	}

	for _, tc := range test_cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, tc.info.Empty())
		})
	}
}
