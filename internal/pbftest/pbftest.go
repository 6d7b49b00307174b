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

// Package pbftest builds well-formed (and deliberately malformed) PBF
// fixtures for tests.  It is the only writer of PBF bytes in this module;
// producing files is not a supported feature.
package pbftest

import (
	"encoding/binary"

	"google.golang.org/protobuf/encoding/protowire"

	"m4o.io/osmpbf/internal/pb"
)

// Frame wraps a marshaled blob in its length-prefixed stream frame.
func Frame(blobType string, blob []byte) []byte {
	header := MarshalBlobHeader(&pb.BlobHeader{Type: blobType, Datasize: int32(len(blob))})

	frame := make([]byte, 0, 4+len(header)+len(blob))
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(header)))
	frame = append(frame, header...)
	frame = append(frame, blob...)

	return frame
}

// MarshalBlobHeader serializes a BlobHeader message.
func MarshalBlobHeader(h *pb.BlobHeader) []byte {
	var b []byte

	if h.Type != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, h.Type)
	}

	if h.Indexdata != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, h.Indexdata)
	}

	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.Datasize))

	return b
}

// blobDataField maps a codec to its Blob data oneof field number.
var blobDataField = map[pb.Codec]protowire.Number{
	pb.CodecRaw:   1,
	pb.CodecZlib:  3,
	pb.CodecLzma:  4,
	pb.CodecBzip2: 5,
	pb.CodecLz4:   6,
	pb.CodecZstd:  7,
}

// MarshalBlob serializes a Blob message.
func MarshalBlob(blob *pb.Blob) []byte {
	var b []byte

	if num, ok := blobDataField[blob.Codec]; ok {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendBytes(b, blob.Data)
	}

	if blob.HasRawSize {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(blob.RawSize))
	}

	return b
}

// MarshalHeaderBlock serializes a HeaderBlock message.
func MarshalHeaderBlock(hb *pb.HeaderBlock) []byte {
	var b []byte

	if hb.BBox != nil {
		var bbox []byte
		bbox = protowire.AppendTag(bbox, 1, protowire.VarintType)
		bbox = protowire.AppendVarint(bbox, protowire.EncodeZigZag(hb.BBox.Left))
		bbox = protowire.AppendTag(bbox, 2, protowire.VarintType)
		bbox = protowire.AppendVarint(bbox, protowire.EncodeZigZag(hb.BBox.Right))
		bbox = protowire.AppendTag(bbox, 3, protowire.VarintType)
		bbox = protowire.AppendVarint(bbox, protowire.EncodeZigZag(hb.BBox.Top))
		bbox = protowire.AppendTag(bbox, 4, protowire.VarintType)
		bbox = protowire.AppendVarint(bbox, protowire.EncodeZigZag(hb.BBox.Bottom))

		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, bbox)
	}

	for _, f := range hb.RequiredFeatures {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, f)
	}

	for _, f := range hb.OptionalFeatures {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendString(b, f)
	}

	if hb.Writingprogram != "" {
		b = protowire.AppendTag(b, 16, protowire.BytesType)
		b = protowire.AppendString(b, hb.Writingprogram)
	}

	if hb.Source != "" {
		b = protowire.AppendTag(b, 17, protowire.BytesType)
		b = protowire.AppendString(b, hb.Source)
	}

	if hb.HasReplicationTimestamp {
		b = protowire.AppendTag(b, 32, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(hb.OsmosisReplicationTimestamp))
	}

	if hb.HasReplicationSequenceNumber {
		b = protowire.AppendTag(b, 33, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(hb.OsmosisReplicationSequenceNumber))
	}

	if hb.OsmosisReplicationBaseURL != "" {
		b = protowire.AppendTag(b, 34, protowire.BytesType)
		b = protowire.AppendString(b, hb.OsmosisReplicationBaseURL)
	}

	return b
}

// MarshalPrimitiveBlock serializes a PrimitiveBlock message.  Zero scaling
// parameters are written explicitly so fixtures can exercise non-default
// values; readers fall back to the proto2 defaults only for fields they
// never see.
func MarshalPrimitiveBlock(blk *pb.PrimitiveBlock) []byte {
	var st []byte
	for _, s := range blk.Stringtable.S {
		st = protowire.AppendTag(st, 1, protowire.BytesType)
		st = protowire.AppendBytes(st, s)
	}

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, st)

	for _, pg := range blk.Primitivegroup {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalPrimitiveGroup(pg))
	}

	if blk.Granularity != pb.DefaultGranularity {
		b = protowire.AppendTag(b, 17, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(blk.Granularity))
	}

	if blk.DateGranularity != pb.DefaultDateGranularity {
		b = protowire.AppendTag(b, 18, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(blk.DateGranularity))
	}

	if blk.LatOffset != 0 {
		b = protowire.AppendTag(b, 19, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(blk.LatOffset))
	}

	if blk.LonOffset != 0 {
		b = protowire.AppendTag(b, 20, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(blk.LonOffset))
	}

	return b
}

func marshalPrimitiveGroup(pg *pb.PrimitiveGroup) []byte {
	var b []byte

	for _, node := range pg.Nodes {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalNode(node))
	}

	if pg.Dense != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalDenseNodes(pg.Dense))
	}

	for _, way := range pg.Ways {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalWay(way))
	}

	for _, rel := range pg.Relations {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalRelation(rel))
	}

	return b
}

func packUint32(vals []uint32) []byte {
	var b []byte
	for _, v := range vals {
		b = protowire.AppendVarint(b, uint64(v))
	}

	return b
}

func packInt32(vals []int32) []byte {
	var b []byte
	for _, v := range vals {
		b = protowire.AppendVarint(b, uint64(uint32(v)))
	}

	return b
}

func packSint32(vals []int32) []byte {
	var b []byte
	for _, v := range vals {
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v)))
	}

	return b
}

func packSint64(vals []int64) []byte {
	var b []byte
	for _, v := range vals {
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(v))
	}

	return b
}

func packBool(vals []bool) []byte {
	var b []byte

	for _, v := range vals {
		var u uint64
		if v {
			u = 1
		}

		b = protowire.AppendVarint(b, u)
	}

	return b
}

func appendPacked(b []byte, num protowire.Number, packed []byte) []byte {
	if len(packed) == 0 {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, packed)
}

func marshalInfo(info *pb.Info) []byte {
	var b []byte

	if info.Version != pb.VersionAbsent {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(info.Version)))
	}

	if info.Timestamp != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(info.Timestamp))
	}

	if info.Changeset != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(info.Changeset))
	}

	if info.UID != 0 {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(info.UID)))
	}

	if info.UserSid != 0 {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(info.UserSid)))
	}

	if info.Visible != nil {
		var u uint64
		if *info.Visible {
			u = 1
		}

		b = protowire.AppendTag(b, 6, protowire.VarintType)
		b = protowire.AppendVarint(b, u)
	}

	return b
}

func marshalNode(node *pb.Node) []byte {
	var b []byte

	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(node.ID))

	b = appendPacked(b, 2, packUint32(node.Keys))
	b = appendPacked(b, 3, packUint32(node.Vals))

	if node.Info != nil {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalInfo(node.Info))
	}

	b = protowire.AppendTag(b, 8, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(node.Lat))
	b = protowire.AppendTag(b, 9, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(node.Lon))

	return b
}

func marshalDenseNodes(dense *pb.DenseNodes) []byte {
	var b []byte

	b = appendPacked(b, 1, packSint64(dense.ID))

	if dense.Denseinfo != nil {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalDenseInfo(dense.Denseinfo))
	}

	b = appendPacked(b, 8, packSint64(dense.Lat))
	b = appendPacked(b, 9, packSint64(dense.Lon))
	b = appendPacked(b, 10, packInt32(dense.KeysVals))

	return b
}

func marshalDenseInfo(di *pb.DenseInfo) []byte {
	var b []byte

	b = appendPacked(b, 1, packInt32(di.Version))
	b = appendPacked(b, 2, packSint64(di.Timestamp))
	b = appendPacked(b, 3, packSint64(di.Changeset))
	b = appendPacked(b, 4, packSint32(di.UID))
	b = appendPacked(b, 5, packSint32(di.UserSid))
	b = appendPacked(b, 6, packBool(di.Visible))

	return b
}

func marshalWay(way *pb.Way) []byte {
	var b []byte

	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(way.ID))

	b = appendPacked(b, 2, packUint32(way.Keys))
	b = appendPacked(b, 3, packUint32(way.Vals))

	if way.Info != nil {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalInfo(way.Info))
	}

	b = appendPacked(b, 8, packSint64(way.Refs))
	b = appendPacked(b, 9, packSint64(way.Lat))
	b = appendPacked(b, 10, packSint64(way.Lon))

	return b
}

func marshalRelation(rel *pb.Relation) []byte {
	var b []byte

	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(rel.ID))

	b = appendPacked(b, 2, packUint32(rel.Keys))
	b = appendPacked(b, 3, packUint32(rel.Vals))

	if rel.Info != nil {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalInfo(rel.Info))
	}

	b = appendPacked(b, 8, packInt32(rel.RolesSid))
	b = appendPacked(b, 9, packSint64(rel.Memids))
	b = appendPacked(b, 10, packInt32(rel.Types))

	return b
}
