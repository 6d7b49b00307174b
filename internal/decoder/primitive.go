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
	"log/slog"
	"time"
	"unicode/utf8"

	"m4o.io/osmpbf/internal/pb"
	"m4o.io/osmpbf/model"
)

// ParsePrimitiveBlock decodes the decompressed body of a data blob into
// entities.  Anomalies below the block level are absorbed: a corrupt
// primitive group, tag, or entity is dropped with a diagnostic and the
// rest of the block is still decoded.
func ParsePrimitiveBlock(buf []byte, logger *slog.Logger) ([]model.Entity, error) {
	blk, err := pb.UnmarshalPrimitiveBlock(buf)
	if err != nil {
		return nil, fmt.Errorf("unable to unmarshal primitive block: %w", ErrCorrupted)
	}

	c := newBlockContext(blk, logger)

	entities := make([]model.Entity, 0)
	for _, pg := range blk.Primitivegroup {
		entities = append(entities, c.decodeGroup(pg)...)
	}

	return entities, nil
}

// blockContext is the state shared by every primitive group of one block:
// the string table and the coordinate scaling parameters.  Neither is
// valid across block boundaries.
type blockContext struct {
	strings         []string
	granularity     int32
	latOffset       int64
	lonOffset       int64
	dateGranularity int32
	logger          *slog.Logger
}

func newBlockContext(blk *pb.PrimitiveBlock, logger *slog.Logger) *blockContext {
	strings := make([]string, len(blk.Stringtable.S))

	for i, raw := range blk.Stringtable.S {
		if !utf8.Valid(raw) {
			logger.Warn("replacing invalid string table entry", "index", i)

			continue
		}

		strings[i] = string(raw)
	}

	return &blockContext{
		strings:         strings,
		granularity:     blk.Granularity,
		latOffset:       blk.LatOffset,
		lonOffset:       blk.LonOffset,
		dateGranularity: blk.DateGranularity,
		logger:          logger,
	}
}

// stringAt resolves a string table index, reporting out-of-range indices
// as absent rather than failing.
func (c *blockContext) stringAt(i int) (string, bool) {
	if i < 0 || i >= len(c.strings) {
		return "", false
	}

	return c.strings[i], true
}

// decodeGroup decodes the one populated collection of a primitive group.
// A panic while decoding a group is confined to that group.
func (c *blockContext) decodeGroup(pg *pb.PrimitiveGroup) (entities []model.Entity) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("skipping primitive group", "panic", r)

			entities = nil
		}
	}()

	entities = append(entities, c.decodeNodes(pg.Nodes)...)
	entities = append(entities, c.decodeDenseNodes(pg.Dense)...)
	entities = append(entities, c.decodeWays(pg.Ways)...)
	entities = append(entities, c.decodeRelations(pg.Relations)...)

	return entities
}

func (c *blockContext) decodeNodes(nodes []*pb.Node) []model.Entity {
	entities := make([]model.Entity, 0, len(nodes))

	for _, node := range nodes {
		lat := model.ToDegrees(c.latOffset, c.granularity, node.Lat)
		lon := model.ToDegrees(c.lonOffset, c.granularity, node.Lon)

		if !model.Valid(lat, lon) {
			c.logger.Warn("skipping node outside coordinate range", "id", node.ID, "lat", lat, "lon", lon)

			continue
		}

		entities = append(entities, model.Node{
			ID:   model.ID(node.ID),
			Tags: c.decodeTags("node", node.ID, node.Keys, node.Vals),
			Info: c.decodeInfo(node.Info),
			Lat:  lat,
			Lon:  lon,
		})
	}

	return entities
}

func (c *blockContext) decodeDenseNodes(dense *pb.DenseNodes) []model.Entity {
	if dense == nil || len(dense.ID) == 0 {
		return nil
	}

	ids := dense.ID

	if len(dense.Lat) != len(ids) || len(dense.Lon) != len(ids) {
		c.logger.Warn("skipping dense nodes with mismatched coordinate arrays",
			"ids", len(ids), "lats", len(dense.Lat), "lons", len(dense.Lon))

		return nil
	}

	tags := c.decodeDenseTags(len(ids), dense.KeysVals)
	dic := c.newDenseInfoContext(dense.Denseinfo, len(ids))

	entities := make([]model.Entity, 0, len(ids))

	var id, lat, lon int64

	for i := range ids {
		id += ids[i]
		lat += dense.Lat[i]
		lon += dense.Lon[i]

		// The metadata running sums must advance for every node, even
		// ones rejected below.
		info := dic.decodeInfo(i)

		la := model.ToDegrees(c.latOffset, c.granularity, lat)
		lo := model.ToDegrees(c.lonOffset, c.granularity, lon)

		if !model.Valid(la, lo) {
			c.logger.Warn("skipping node outside coordinate range", "id", id, "lat", la, "lon", lo)

			continue
		}

		nodeTags := tags[i]
		if nodeTags == nil {
			nodeTags = map[string]string{}
		}

		entities = append(entities, model.Node{
			ID:   model.ID(id),
			Tags: nodeTags,
			Info: info,
			Lat:  la,
			Lon:  lo,
		})
	}

	return entities
}

// decodeDenseTags walks the interleaved key/value array with a node
// cursor.  A zero entry moves the cursor to the next node; any other
// entry is a key index followed by a value index, recorded against the
// current node.  The array must end in a zero sentinel; if it does not,
// tag decoding for the whole group is abandoned and the nodes are emitted
// without tags.
func (c *blockContext) decodeDenseTags(count int, keyVals []int32) []map[string]string {
	tags := make([]map[string]string, count)

	if len(keyVals) == 0 {
		return tags
	}

	if keyVals[len(keyVals)-1] != 0 {
		c.logger.Warn("dense tag array missing its end sentinel; group tags abandoned")

		return tags
	}

	cur := 0

	for i := 0; i < len(keyVals); i += 2 {
		kv := keyVals[i]
		if kv == 0 {
			cur++
			i-- // only the sentinel is consumed

			continue
		}

		if cur >= count {
			c.logger.Warn("dense tags overrun the node list; remainder skipped")

			break
		}

		key, okKey := c.stringAt(int(kv))
		val, okVal := c.stringAt(int(keyVals[i+1]))

		if !okKey || !okVal {
			c.logger.Warn("skipping tag with out-of-range string index",
				"key", kv, "value", keyVals[i+1])

			continue
		}

		if tags[cur] == nil {
			tags[cur] = make(map[string]string)
		}

		tags[cur][key] = val
	}

	return tags
}

func (c *blockContext) decodeWays(ways []*pb.Way) []model.Entity {
	entities := make([]model.Entity, 0, len(ways))

	for _, way := range ways {
		refs := way.Refs
		nodeIDs := make([]model.ID, len(refs))

		var nodeID int64

		for j, delta := range refs {
			nodeID += delta
			nodeIDs[j] = model.ID(nodeID)
		}

		entities = append(entities, model.Way{
			ID:        model.ID(way.ID),
			Tags:      c.decodeTags("way", way.ID, way.Keys, way.Vals),
			Info:      c.decodeInfo(way.Info),
			NodeIDs:   nodeIDs,
			Locations: c.decodeWayLocations(way, len(refs)),
		})
	}

	return entities
}

// decodeWayLocations decodes the LocationsOnWays coordinate arrays.  They
// are accepted only when both match the ref count exactly; otherwise the
// way is emitted without embedded locations.
func (c *blockContext) decodeWayLocations(way *pb.Way, refs int) []model.Location {
	if len(way.Lat) == 0 && len(way.Lon) == 0 {
		return nil
	}

	if len(way.Lat) != refs || len(way.Lon) != refs {
		c.logger.Warn("dropping embedded way locations with mismatched length",
			"id", way.ID, "refs", refs, "lats", len(way.Lat), "lons", len(way.Lon))

		return nil
	}

	locations := make([]model.Location, refs)

	var lat, lon int64

	for i := 0; i < refs; i++ {
		lat += way.Lat[i]
		lon += way.Lon[i]

		locations[i] = model.Location{
			Lat: model.ToDegrees(c.latOffset, c.granularity, lat),
			Lon: model.ToDegrees(c.lonOffset, c.granularity, lon),
		}
	}

	return locations
}

func (c *blockContext) decodeRelations(relations []*pb.Relation) []model.Entity {
	entities := make([]model.Entity, 0, len(relations))

	for _, rel := range relations {
		members, ok := c.decodeMembers(rel)
		if !ok {
			continue
		}

		entities = append(entities, model.Relation{
			ID:      model.ID(rel.ID),
			Tags:    c.decodeTags("relation", rel.ID, rel.Keys, rel.Vals),
			Info:    c.decodeInfo(rel.Info),
			Members: members,
		})
	}

	return entities
}

// decodeMembers assembles the three parallel member arrays.  A length
// mismatch between them skips the whole relation, so an emitted relation
// always has one id, one type, and one role per member.
func (c *blockContext) decodeMembers(rel *pb.Relation) ([]model.Member, bool) {
	memids := rel.Memids
	types := rel.Types
	roles := rel.RolesSid

	if len(types) != len(memids) || len(roles) != len(memids) {
		c.logger.Warn("skipping relation with mismatched member arrays",
			"id", rel.ID, "memids", len(memids), "types", len(types), "roles", len(roles))

		return nil, false
	}

	members := make([]model.Member, len(memids))

	var memid int64

	for i := range memids {
		memid += memids[i]

		role, ok := c.stringAt(int(roles[i]))
		if !ok {
			role = ""
		}

		members[i] = model.Member{
			ID:   model.ID(memid),
			Type: c.decodeMemberType(rel.ID, types[i]),
			Role: role,
		}
	}

	return members, true
}

// decodeMemberType converts the wire member type enumeration.  Values
// outside the enumeration decode as NODE rather than failing the read.
func (c *blockContext) decodeMemberType(id int64, mt int32) model.EntityType {
	switch mt {
	case 0:
		return model.NODE
	case 1:
		return model.WAY
	case 2:
		return model.RELATION
	default:
		c.logger.Warn("unrecognized member type decoded as node", "relation", id, "type", mt)

		return model.NODE
	}
}

// decodeTags resolves the parallel key/value index arrays of a plain
// entity.  A length mismatch drops the entity's tags but not the entity;
// an out-of-range index drops only that tag.
func (c *blockContext) decodeTags(kind string, id int64, keys, vals []uint32) map[string]string {
	if len(keys) != len(vals) {
		c.logger.Warn("dropping tags with mismatched key/value arrays",
			"kind", kind, "id", id, "keys", len(keys), "vals", len(vals))

		return map[string]string{}
	}

	tags := make(map[string]string, len(keys))

	for i, keyID := range keys {
		key, okKey := c.stringAt(int(keyID))
		val, okVal := c.stringAt(int(vals[i]))

		if !okKey || !okVal {
			c.logger.Warn("skipping tag with out-of-range string index",
				"kind", kind, "id", id, "key", keyID, "value", vals[i])

			continue
		}

		tags[key] = val
	}

	return tags
}

// decodeInfo translates a wire metadata bundle, mapping each absence
// sentinel to the field's zero value.  A bundle with nothing in it
// resolves to no metadata at all.
func (c *blockContext) decodeInfo(info *pb.Info) *model.Info {
	if info == nil {
		return nil
	}

	mi := &model.Info{}

	if info.Version > 0 {
		mi.Version = info.Version
	}

	if info.Timestamp != 0 {
		mi.Timestamp = toTimestamp(c.dateGranularity, info.Timestamp)
	}

	if info.Changeset != 0 {
		mi.Changeset = info.Changeset
	}

	if info.UID != 0 {
		mi.UID = model.UID(info.UID)
	}

	if info.UserSid > 0 {
		if user, ok := c.stringAt(int(info.UserSid)); ok {
			mi.User = user
		}
	}

	mi.Visible = info.Visible

	if mi.Empty() {
		return nil
	}

	return mi
}

// denseInfoContext resolves per-node metadata from the DenseInfo parallel
// arrays.  Version and visible are absolute; timestamp, changeset, uid,
// and user sid are delta-encoded running sums.  Missing sub-arrays are
// treated as all-default and every array is padded or truncated to the
// node count.
type denseInfoContext struct {
	c *blockContext

	versions   []int32
	visibles   []bool
	timestamps []int64
	changesets []int64
	uids       []int32
	userSids   []int32

	timestamp int64
	changeset int64
	uid       int32
	userSid   int32
}

func (c *blockContext) newDenseInfoContext(di *pb.DenseInfo, count int) *denseInfoContext {
	if di == nil {
		return nil
	}

	dic := &denseInfoContext{
		c:          c,
		versions:   padInt32(di.Version, count, pb.VersionAbsent),
		timestamps: padInt64(di.Timestamp, count),
		changesets: padInt64(di.Changeset, count),
		uids:       padInt32(di.UID, count, 0),
		userSids:   padInt32(di.UserSid, count, 0),
	}

	if len(di.Visible) > 0 {
		dic.visibles = padBool(di.Visible, count)
	}

	return dic
}

func (dic *denseInfoContext) decodeInfo(i int) *model.Info {
	if dic == nil {
		return nil
	}

	dic.timestamp += dic.timestamps[i]
	dic.changeset += dic.changesets[i]
	dic.uid += dic.uids[i]
	dic.userSid += dic.userSids[i]

	info := &model.Info{}

	if v := dic.versions[i]; v > 0 {
		info.Version = v
	}

	if dic.timestamp != 0 {
		info.Timestamp = toTimestamp(dic.c.dateGranularity, dic.timestamp)
	}

	if dic.changeset != 0 {
		info.Changeset = dic.changeset
	}

	if dic.uid != 0 {
		info.UID = model.UID(dic.uid)
	}

	if dic.userSid > 0 {
		if user, ok := dic.c.stringAt(int(dic.userSid)); ok {
			info.User = user
		}
	}

	if dic.visibles != nil {
		visible := dic.visibles[i]
		info.Visible = &visible
	}

	if info.Empty() {
		return nil
	}

	return info
}

func padInt32(vals []int32, count int, def int32) []int32 {
	if len(vals) == count {
		return vals
	}

	padded := make([]int32, count)
	copy(padded, vals)

	for i := len(vals); i < count; i++ {
		padded[i] = def
	}

	return padded
}

func padInt64(vals []int64, count int) []int64 {
	if len(vals) == count {
		return vals
	}

	padded := make([]int64, count)
	copy(padded, vals)

	return padded
}

func padBool(vals []bool, count int) []bool {
	if len(vals) == count {
		return vals
	}

	padded := make([]bool, count)
	copy(padded, vals)

	// missing trailing entries default to visible
	for i := len(vals); i < count; i++ {
		padded[i] = true
	}

	return padded
}

// toTimestamp converts a timestamp with a specific granularity, in units
// of milliseconds, to a UTC timestamp.
func toTimestamp(granularity int32, timestamp int64) time.Time {
	return time.UnixMilli(timestamp * int64(granularity)).UTC()
}
