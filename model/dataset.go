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

package model

// Dataset is a fully materialized OpenStreetMap extract: the three ID-keyed
// entity maps plus the file header.  A Dataset is assembled by a single
// reader and is not mutated after the read completes.
type Dataset struct {
	Header    Header
	Nodes     map[ID]Node
	Ways      map[ID]Way
	Relations map[ID]Relation
}

// NewDataset creates an empty Dataset ready to be populated.
func NewDataset() *Dataset {
	return &Dataset{
		Nodes:     make(map[ID]Node),
		Ways:      make(map[ID]Way),
		Relations: make(map[ID]Relation),
	}
}

// Add merges an entity into the dataset.  An entity sharing an ID with an
// earlier one of the same type overwrites it; well-formed files never
// exercise this.
func (d *Dataset) Add(e Entity) {
	switch v := e.(type) {
	case Node:
		d.Nodes[v.ID] = v
	case Way:
		d.Ways[v.ID] = v
	case Relation:
		d.Relations[v.ID] = v
	}
}

// Size returns the total number of entities in the dataset.
func (d *Dataset) Size() int {
	return len(d.Nodes) + len(d.Ways) + len(d.Relations)
}
