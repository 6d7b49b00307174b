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

package pbftest

import (
	"bytes"
	"compress/zlib"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz/lzma"

	"m4o.io/osmpbf/internal/pb"
)

// Compress produces a blob carrying raw compressed with the codec, with
// the raw size declared.
func Compress(codec pb.Codec, raw []byte) *pb.Blob {
	var data []byte

	switch codec {
	case pb.CodecRaw:
		data = raw
	case pb.CodecZlib:
		data = zlibCompress(raw)
	case pb.CodecLz4:
		data = lz4Compress(raw)
	case pb.CodecZstd:
		data = zstdCompress(raw)
	case pb.CodecLzma:
		data = lzmaCompress(raw)
	default:
		data = raw
	}

	return &pb.Blob{
		Codec:      codec,
		Data:       data,
		RawSize:    int32(len(raw)),
		HasRawSize: true,
	}
}

// DataBlob frames a primitive block as a data blob, compressed with the codec.
func DataBlob(codec pb.Codec, blk *pb.PrimitiveBlock) []byte {
	return Frame(DataType, MarshalBlob(Compress(codec, MarshalPrimitiveBlock(blk))))
}

// HeaderBlob frames a header block as the leading header blob.
func HeaderBlob(codec pb.Codec, hb *pb.HeaderBlock) []byte {
	return Frame(HeaderType, MarshalBlob(Compress(codec, MarshalHeaderBlock(hb))))
}

// Blob type markers, mirrored here so fixtures do not depend on the decoder.
const (
	HeaderType = "OSMHeader"
	DataType   = "OSMData"
)

// File assembles a whole stream: a header blob followed by data blobs,
// all compressed with the codec.
func File(codec pb.Codec, hb *pb.HeaderBlock, blocks ...*pb.PrimitiveBlock) []byte {
	file := HeaderBlob(codec, hb)

	for _, blk := range blocks {
		file = append(file, DataBlob(codec, blk)...)
	}

	return file
}

func zlibCompress(raw []byte) []byte {
	var buf bytes.Buffer

	w := zlib.NewWriter(&buf)
	_, _ = w.Write(raw)
	_ = w.Close()

	return buf.Bytes()
}

func lz4Compress(raw []byte) []byte {
	var buf bytes.Buffer

	w := lz4.NewWriter(&buf)
	_, _ = w.Write(raw)
	_ = w.Close()

	return buf.Bytes()
}

func zstdCompress(raw []byte) []byte {
	w, _ := zstd.NewWriter(nil)
	defer w.Close()

	return w.EncodeAll(raw, nil)
}

func lzmaCompress(raw []byte) []byte {
	var buf bytes.Buffer

	w, _ := lzma.NewWriter(&buf)
	_, _ = w.Write(raw)
	_ = w.Close()

	return buf.Bytes()
}
