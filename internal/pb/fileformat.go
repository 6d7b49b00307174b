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

// Package pb decodes the protobuf messages of the OpenStreetMap PBF file
// format (fileformat.proto and osmformat.proto).  The messages are consumed
// from the wire with protowire; only the fields this reader needs are
// retained.
package pb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Codec identifies which member of the Blob data oneof was populated.
type Codec int32

const (
	// CodecNone means no data field was present in the blob.
	CodecNone Codec = iota

	// CodecRaw is uncompressed data.
	CodecRaw

	// CodecZlib is zlib (RFC 1950) compressed data.
	CodecZlib

	// CodecLzma is LZMA compressed data.
	CodecLzma

	// CodecBzip2 is the deprecated bzip2 encoding; never produced and
	// deliberately not consumed.
	CodecBzip2

	// CodecLz4 is LZ4 frame compressed data.
	CodecLz4

	// CodecZstd is Zstandard compressed data.
	CodecZstd
)

func (c Codec) String() string {
	switch c {
	case CodecRaw:
		return "raw"
	case CodecZlib:
		return "zlib"
	case CodecLzma:
		return "lzma"
	case CodecBzip2:
		return "bzip2"
	case CodecLz4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return "none"
	}
}

// BlobHeader precedes every blob in the stream and declares the type and
// size of the blob that follows.
type BlobHeader struct {
	Type      string
	Indexdata []byte
	Datasize  int32
}

// UnmarshalBlobHeader parses a BlobHeader message.
func UnmarshalBlobHeader(b []byte) (*BlobHeader, error) {
	h := &BlobHeader{}

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

			h.Type = string(v)
			b = b[n:]

		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			h.Indexdata = append([]byte(nil), v...)
			b = b[n:]

		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			h.Datasize = int32(v)
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			b = b[n:]
		}
	}

	return h, nil
}

// Blob is one payload unit of the stream: a single compressed (or raw)
// chunk of bytes plus, for the compressed codecs, the declared size of the
// uncompressed data.
type Blob struct {
	Codec      Codec
	Data       []byte
	RawSize    int32
	HasRawSize bool
}

// codecForField maps a Blob data oneof field number to its codec.
var codecForField = map[protowire.Number]Codec{
	1: CodecRaw,
	3: CodecZlib,
	4: CodecLzma,
	5: CodecBzip2,
	6: CodecLz4,
	7: CodecZstd,
}

// UnmarshalBlob parses a Blob message.
func UnmarshalBlob(b []byte) (*Blob, error) {
	blob := &Blob{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		b = b[n:]

		if codec, ok := codecForField[num]; ok && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			blob.Codec = codec
			blob.Data = append([]byte(nil), v...)
			b = b[n:]

			continue
		}

		switch {
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			blob.RawSize = int32(v)
			blob.HasRawSize = true
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}

			b = b[n:]
		}
	}

	return blob, nil
}
