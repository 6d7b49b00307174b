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

// Package model contains the shared model for OpenStreetMap readers.
package model

//go:generate stringer -type=EntityType

import (
	"time"
)

// UID is the primary key for a user.
type UID int32

// Info represents information common to Node, Way, and Relation entities.
// Every field is independently optional; the zero value of a field means
// the source did not carry it.  Raw wire sentinels (version -1, zero
// timestamps, user string index 0) never appear here.
type Info struct {
	Version   int32
	UID       UID
	Timestamp time.Time
	Changeset int64
	User      string
	Visible   *bool
}

// Empty reports whether no field of the info carries a value.
func (i *Info) Empty() bool {
	return i.Version == 0 &&
		i.UID == 0 &&
		i.Timestamp.IsZero() &&
		i.Changeset == 0 &&
		i.User == "" &&
		i.Visible == nil
}

// Entity is implemented by Node, Way, and Relation.
type Entity interface {
	isEntity() // prevents extensions

	GetID() ID

	GetTags() map[string]string

	GetInfo() *Info
}

// ID is the primary key of an entity.
type ID int64

// Location is a decoded latitude/longitude pair.
type Location struct {
	Lat Degrees
	Lon Degrees
}

// Node represents a specific point on the earth's surface defined by its
// latitude and longitude. Each node comprises at least an id number and a
// pair of coordinates.
type Node struct {
	ID   ID
	Tags map[string]string
	Info *Info
	Lat  Degrees
	Lon  Degrees
}

var _ Entity = Node{}

func (n Node) isEntity() {}

func (n Node) GetID() ID {
	return n.ID
}

func (n Node) GetTags() map[string]string {
	return n.Tags
}

func (n Node) GetInfo() *Info {
	return n.Info
}

// Way is an ordered list of between 2 and 2,000 nodes that define a polyline.
// A node id may appear more than once; revisits are legal.
//
// Locations is only populated for files written with the LocationsOnWays
// extension, in which case it is exactly as long as NodeIDs.
type Way struct {
	ID        ID
	Tags      map[string]string
	Info      *Info
	NodeIDs   []ID
	Locations []Location
}

var _ Entity = Way{}

func (w Way) isEntity() {}

func (w Way) GetID() ID {
	return w.ID
}

func (w Way) GetTags() map[string]string {
	return w.Tags
}

func (w Way) GetInfo() *Info {
	return w.Info
}

// EntityType is an enumeration of PBF entity types.
type EntityType int32

const (
	// NODE denotes that the member is a node.
	NODE EntityType = iota

	// WAY denotes that the member is a way.
	WAY

	// RELATION denotes that the member is a relation.
	RELATION
)

// Member represents a single member of a relation.
type Member struct {
	ID   ID
	Type EntityType
	Role string
}

// Relation is a multipurpose data structure that documents a relationship
// between two or more data elements (nodes, ways, and/or other relations).
type Relation struct {
	ID      ID
	Tags    map[string]string
	Info    *Info
	Members []Member
}

var _ Entity = Relation{}

func (r Relation) isEntity() {}

func (r Relation) GetID() ID {
	return r.ID
}

func (r Relation) GetTags() map[string]string {
	return r.Tags
}

func (r Relation) GetInfo() *Info {
	return r.Info
}
