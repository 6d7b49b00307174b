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

package pb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Proto2 defaults of PrimitiveBlock.
const (
	DefaultGranularity     = 100
	DefaultDateGranularity = 1000
)

// VersionAbsent is the proto2 default of Info.version, meaning the field
// was not written.
const VersionAbsent = -1

// HeaderBBox is the bounding box of a HeaderBlock, in nanodegrees.
type HeaderBBox struct {
	Left   int64
	Right  int64
	Top    int64
	Bottom int64
}

// HeaderBlock is the decompressed body of the first blob of a file.
type HeaderBlock struct {
	BBox                             *HeaderBBox
	RequiredFeatures                 []string
	OptionalFeatures                 []string
	Writingprogram                   string
	Source                           string
	OsmosisReplicationTimestamp      int64
	HasReplicationTimestamp          bool
	OsmosisReplicationSequenceNumber int64
	HasReplicationSequenceNumber     bool
	OsmosisReplicationBaseURL        string
}

func unmarshalHeaderBBox(b []byte) (*HeaderBBox, error) {
	bbox := &HeaderBBox{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		if typ != protowire.VarintType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			b = b[n:]

			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		switch num {
		case 1:
			bbox.Left = protowire.DecodeZigZag(v)
		case 2:
			bbox.Right = protowire.DecodeZigZag(v)
		case 3:
			bbox.Top = protowire.DecodeZigZag(v)
		case 4:
			bbox.Bottom = protowire.DecodeZigZag(v)
		}
	}

	return bbox, nil
}

// UnmarshalHeaderBlock parses a HeaderBlock message.
func UnmarshalHeaderBlock(b []byte) (*HeaderBlock, error) {
	hb := &HeaderBlock{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			bbox, err := unmarshalHeaderBBox(v)
			if err != nil {
				return nil, err
			}

			hb.BBox = bbox
			b = b[n:]

		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			hb.RequiredFeatures = append(hb.RequiredFeatures, string(v))
			b = b[n:]

		case num == 5 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			hb.OptionalFeatures = append(hb.OptionalFeatures, string(v))
			b = b[n:]

		case num == 16 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			hb.Writingprogram = string(v)
			b = b[n:]

		case num == 17 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			hb.Source = string(v)
			b = b[n:]

		case num == 32 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			hb.OsmosisReplicationTimestamp = int64(v)
			hb.HasReplicationTimestamp = true
			b = b[n:]

		case num == 33 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			hb.OsmosisReplicationSequenceNumber = int64(v)
			hb.HasReplicationSequenceNumber = true
			b = b[n:]

		case num == 34 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			hb.OsmosisReplicationBaseURL = string(v)
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			b = b[n:]
		}
	}

	return hb, nil
}

// StringTable is the per-block table of de-duplicated byte strings.
type StringTable struct {
	S [][]byte
}

// PrimitiveBlock is the decompressed body of a data blob.
type PrimitiveBlock struct {
	Stringtable     StringTable
	Primitivegroup  []*PrimitiveGroup
	Granularity     int32
	DateGranularity int32
	LatOffset       int64
	LonOffset       int64
}

// PrimitiveGroup carries at most one populated collection.  Changesets
// exist in the wire format but are ignored by this reader.
type PrimitiveGroup struct {
	Nodes     []*Node
	Dense     *DenseNodes
	Ways      []*Way
	Relations []*Relation
}

// Info is the optional per-entity metadata bundle.
type Info struct {
	Version   int32
	Timestamp int64
	Changeset int64
	UID       int32
	UserSid   int32
	Visible   *bool
}

// Node is a plain, non-dense node with absolute coordinates.
type Node struct {
	ID   int64
	Keys []uint32
	Vals []uint32
	Info *Info
	Lat  int64
	Lon  int64
}

// DenseNodes packs many nodes into parallel delta-encoded arrays.
type DenseNodes struct {
	ID        []int64
	Denseinfo *DenseInfo
	Lat       []int64
	Lon       []int64
	KeysVals  []int32
}

// DenseInfo carries the metadata arrays of a DenseNodes bundle.  Version
// and Visible are absolute; the rest are delta-encoded.
type DenseInfo struct {
	Version   []int32
	Timestamp []int64
	Changeset []int64
	UID       []int32
	UserSid   []int32
	Visible   []bool
}

// Way is an ordered list of node references, optionally with embedded
// delta-encoded coordinates (the LocationsOnWays extension).
type Way struct {
	ID   int64
	Keys []uint32
	Vals []uint32
	Info *Info
	Refs []int64
	Lat  []int64
	Lon  []int64
}

// Relation relates entities via three parallel member arrays.
type Relation struct {
	ID       int64
	Keys     []uint32
	Vals     []uint32
	Info     *Info
	RolesSid []int32
	Memids   []int64
	Types    []int32
}

// UnmarshalPrimitiveBlock parses a PrimitiveBlock message.
func UnmarshalPrimitiveBlock(b []byte) (*PrimitiveBlock, error) {
	blk := &PrimitiveBlock{
		Granularity:     DefaultGranularity,
		DateGranularity: DefaultDateGranularity,
	}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			st, err := unmarshalStringTable(v)
			if err != nil {
				return nil, err
			}

			blk.Stringtable = st
			b = b[n:]

		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			pg, err := unmarshalPrimitiveGroup(v)
			if err != nil {
				return nil, err
			}

			blk.Primitivegroup = append(blk.Primitivegroup, pg)
			b = b[n:]

		case num == 17 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			blk.Granularity = int32(v)
			b = b[n:]

		case num == 18 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			blk.DateGranularity = int32(v)
			b = b[n:]

		case num == 19 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			blk.LatOffset = int64(v)
			b = b[n:]

		case num == 20 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			blk.LonOffset = int64(v)
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			b = b[n:]
		}
	}

	return blk, nil
}

func unmarshalStringTable(b []byte) (StringTable, error) {
	st := StringTable{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return st, protowire.ParseError(n)
		}

		b = b[n:]

		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return st, protowire.ParseError(n)
			}

			st.S = append(st.S, append([]byte(nil), v...))
			b = b[n:]

			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return st, protowire.ParseError(n)
		}

		b = b[n:]
	}

	return st, nil
}

func unmarshalPrimitiveGroup(b []byte) (*PrimitiveGroup, error) {
	pg := &PrimitiveGroup{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			b = b[n:]

			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		var err error

		switch num {
		case 1:
			var node *Node
			if node, err = unmarshalNode(v); err == nil {
				pg.Nodes = append(pg.Nodes, node)
			}
		case 2:
			pg.Dense, err = unmarshalDenseNodes(v)
		case 3:
			var way *Way
			if way, err = unmarshalWay(v); err == nil {
				pg.Ways = append(pg.Ways, way)
			}
		case 4:
			var rel *Relation
			if rel, err = unmarshalRelation(v); err == nil {
				pg.Relations = append(pg.Relations, rel)
			}
		default:
			// changesets and unknown fields are skipped
		}

		if err != nil {
			return nil, err
		}
	}

	return pg, nil
}

func unmarshalInfo(b []byte) (*Info, error) {
	info := &Info{Version: VersionAbsent}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		if typ != protowire.VarintType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			b = b[n:]

			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		switch num {
		case 1:
			info.Version = int32(v)
		case 2:
			info.Timestamp = int64(v)
		case 3:
			info.Changeset = int64(v)
		case 4:
			info.UID = int32(v)
		case 5:
			info.UserSid = int32(v)
		case 6:
			visible := v != 0
			info.Visible = &visible
		}
	}

	return info, nil
}

func unmarshalNode(b []byte) (*Node, error) {
	node := &Node{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			node.ID = protowire.DecodeZigZag(v)
			b = b[n:]

		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			keys, err := appendPackedUint32(node.Keys, v)
			if err != nil {
				return nil, err
			}

			node.Keys = keys
			b = b[n:]

		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			node.Keys = append(node.Keys, uint32(v))
			b = b[n:]

		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			vals, err := appendPackedUint32(node.Vals, v)
			if err != nil {
				return nil, err
			}

			node.Vals = vals
			b = b[n:]

		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			node.Vals = append(node.Vals, uint32(v))
			b = b[n:]

		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			info, err := unmarshalInfo(v)
			if err != nil {
				return nil, err
			}

			node.Info = info
			b = b[n:]

		case num == 8 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			node.Lat = protowire.DecodeZigZag(v)
			b = b[n:]

		case num == 9 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			node.Lon = protowire.DecodeZigZag(v)
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			b = b[n:]
		}
	}

	return node, nil
}

func unmarshalDenseNodes(b []byte) (*DenseNodes, error) {
	dense := &DenseNodes{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			b = b[n:]

			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		var err error

		switch num {
		case 1:
			dense.ID, err = appendPackedSint64(dense.ID, v)
		case 5:
			dense.Denseinfo, err = unmarshalDenseInfo(v)
		case 8:
			dense.Lat, err = appendPackedSint64(dense.Lat, v)
		case 9:
			dense.Lon, err = appendPackedSint64(dense.Lon, v)
		case 10:
			dense.KeysVals, err = appendPackedInt32(dense.KeysVals, v)
		}

		if err != nil {
			return nil, err
		}
	}

	return dense, nil
}

func unmarshalDenseInfo(b []byte) (*DenseInfo, error) {
	di := &DenseInfo{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			b = b[n:]

			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		var err error

		switch num {
		case 1:
			di.Version, err = appendPackedInt32(di.Version, v)
		case 2:
			di.Timestamp, err = appendPackedSint64(di.Timestamp, v)
		case 3:
			di.Changeset, err = appendPackedSint64(di.Changeset, v)
		case 4:
			di.UID, err = appendPackedSint32(di.UID, v)
		case 5:
			di.UserSid, err = appendPackedSint32(di.UserSid, v)
		case 6:
			di.Visible, err = appendPackedBool(di.Visible, v)
		}

		if err != nil {
			return nil, err
		}
	}

	return di, nil
}

func unmarshalWay(b []byte) (*Way, error) {
	way := &Way{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			way.ID = int64(v)
			b = b[n:]

		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			keys, err := appendPackedUint32(way.Keys, v)
			if err != nil {
				return nil, err
			}

			way.Keys = keys
			b = b[n:]

		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			vals, err := appendPackedUint32(way.Vals, v)
			if err != nil {
				return nil, err
			}

			way.Vals = vals
			b = b[n:]

		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			info, err := unmarshalInfo(v)
			if err != nil {
				return nil, err
			}

			way.Info = info
			b = b[n:]

		case num == 8 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			refs, err := appendPackedSint64(way.Refs, v)
			if err != nil {
				return nil, err
			}

			way.Refs = refs
			b = b[n:]

		case num == 9 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			lat, err := appendPackedSint64(way.Lat, v)
			if err != nil {
				return nil, err
			}

			way.Lat = lat
			b = b[n:]

		case num == 10 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			lon, err := appendPackedSint64(way.Lon, v)
			if err != nil {
				return nil, err
			}

			way.Lon = lon
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			b = b[n:]
		}
	}

	return way, nil
}

func unmarshalRelation(b []byte) (*Relation, error) {
	rel := &Relation{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			rel.ID = int64(v)
			b = b[n:]

		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			keys, err := appendPackedUint32(rel.Keys, v)
			if err != nil {
				return nil, err
			}

			rel.Keys = keys
			b = b[n:]

		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			vals, err := appendPackedUint32(rel.Vals, v)
			if err != nil {
				return nil, err
			}

			rel.Vals = vals
			b = b[n:]

		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			info, err := unmarshalInfo(v)
			if err != nil {
				return nil, err
			}

			rel.Info = info
			b = b[n:]

		case num == 8 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			roles, err := appendPackedInt32(rel.RolesSid, v)
			if err != nil {
				return nil, err
			}

			rel.RolesSid = roles
			b = b[n:]

		case num == 9 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			memids, err := appendPackedSint64(rel.Memids, v)
			if err != nil {
				return nil, err
			}

			rel.Memids = memids
			b = b[n:]

		case num == 10 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			types, err := appendPackedInt32(rel.Types, v)
			if err != nil {
				return nil, err
			}

			rel.Types = types
			b = b[n:]

		case num == 10 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			rel.Types = append(rel.Types, int32(v))
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			b = b[n:]
		}
	}

	return rel, nil
}
