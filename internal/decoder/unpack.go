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

package decoder

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz/lzma"

	"m4o.io/osmpbf/internal/pb"
)

// lzmaDictCap caps the dictionary the lzma decoder may allocate, so a
// hostile stream cannot request arbitrary memory.
const lzmaDictCap = 1 << 26 // 64 MiB

// unpacker uncompresses one codec's blob payload.  rawSize is the declared
// uncompressed size, negative when the blob did not declare one.
type unpacker interface {
	unpack(data []byte, rawSize int) ([]byte, error)
}

var unpackers = map[pb.Codec]unpacker{
	pb.CodecRaw:  rawUnpacker{},
	pb.CodecZlib: zlibUnpacker{},
	pb.CodecLzma: lzmaUnpacker{},
	pb.CodecLz4:  lz4Unpacker{},
	pb.CodecZstd: zstdUnpacker{},
}

// Unpack uncompresses the blob per its codec and validates the result
// against the declared raw size, if one was declared.
func Unpack(blob *pb.Blob) ([]byte, error) {
	if blob.Codec == pb.CodecBzip2 {
		return nil, fmt.Errorf("bzip2 encoded blob: %w", ErrUnsupported)
	}

	u, ok := unpackers[blob.Codec]
	if !ok {
		return nil, fmt.Errorf("blob carries no recognized data field: %w", ErrFormat)
	}

	if len(blob.Data) == 0 {
		return nil, fmt.Errorf("empty %s blob payload: %w", blob.Codec, ErrFormat)
	}

	rawSize := -1
	if blob.HasRawSize {
		if blob.RawSize < 0 || blob.RawSize > MaxBlobSize {
			return nil, fmt.Errorf("declared raw size %d outside [0, %d]: %w", blob.RawSize, MaxBlobSize, ErrCorrupted)
		}

		rawSize = int(blob.RawSize)
	}

	buf, err := u.unpack(blob.Data, rawSize)
	if err != nil {
		return nil, err
	}

	if blob.HasRawSize && len(buf) != rawSize {
		return nil, fmt.Errorf("raw blob data size %d but expected %d: %w", len(buf), rawSize, ErrCorrupted)
	}

	return buf, nil
}

// rawUnpacker passes the payload through untouched.
type rawUnpacker struct{}

func (rawUnpacker) unpack(data []byte, _ int) ([]byte, error) {
	return data, nil
}

// zlibUnpacker inflates the payload with a streaming reader.
type zlibUnpacker struct{}

func (zlibUnpacker) unpack(data []byte, rawSize int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %w", ErrCorrupted)
	}
	defer r.Close()

	var buf bytes.Buffer
	if rawSize >= 0 {
		buf.Grow(rawSize + bytes.MinRead)
	}

	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("zlib inflate: %w", ErrCorrupted)
	}

	return buf.Bytes(), nil
}

// lz4Unpacker decodes an LZ4 frame.  The frame profile used by PBF writers
// does not carry a content size, so the declared raw size is required to
// size the output buffer; the buffer is resized down if the frame decodes
// short.
type lz4Unpacker struct{}

func (lz4Unpacker) unpack(data []byte, rawSize int) ([]byte, error) {
	if rawSize < 0 {
		return nil, fmt.Errorf("lz4 blob without declared raw size: %w", ErrFormat)
	}

	buf := make([]byte, rawSize)
	r := lz4.NewReader(bytes.NewReader(data))

	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("lz4 decode: %w", ErrCorrupted)
	}

	if n == rawSize && drains(r) {
		return nil, fmt.Errorf("lz4 frame longer than declared size %d: %w", rawSize, ErrCorrupted)
	}

	return buf[:n], nil
}

// drains reports whether r still has at least one byte to produce.
func drains(r io.Reader) bool {
	var probe [1]byte

	n, _ := r.Read(probe[:])

	return n > 0
}

// zstdUnpacker decodes a Zstandard frame.  The output size comes from the
// declared raw size when present, otherwise from the frame's own content
// size field.
type zstdUnpacker struct{}

var zstdDecoder, _ = zstd.NewReader(nil,
	zstd.WithDecoderConcurrency(1),
	zstd.WithDecoderMaxMemory(MaxBlobSize))

func (zstdUnpacker) unpack(data []byte, rawSize int) ([]byte, error) {
	if rawSize < 0 {
		var h zstd.Header
		if err := h.Decode(data); err != nil {
			return nil, fmt.Errorf("zstd frame header: %w", ErrCorrupted)
		}

		if !h.HasFCS {
			return nil, fmt.Errorf("zstd blob without declared or embedded size: %w", ErrFormat)
		}

		// The frame header is attacker-controlled; its content size must
		// obey the same cap as a declared raw size before it sizes a buffer.
		if h.FrameContentSize > MaxBlobSize {
			return nil, fmt.Errorf("zstd frame content size %d exceeds %d: %w", h.FrameContentSize, MaxBlobSize, ErrCorrupted)
		}

		rawSize = int(h.FrameContentSize)
	}

	buf, err := zstdDecoder.DecodeAll(data, make([]byte, 0, rawSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", ErrCorrupted)
	}

	return buf, nil
}

// lzmaUnpacker decodes an LZMA stream in one shot, with a ceiling on the
// decoder's dictionary allocation.
type lzmaUnpacker struct{}

func (lzmaUnpacker) unpack(data []byte, rawSize int) ([]byte, error) {
	if rawSize < 0 {
		return nil, fmt.Errorf("lzma blob without declared raw size: %w", ErrFormat)
	}

	cfg := lzma.ReaderConfig{DictCap: lzmaDictCap}

	r, err := cfg.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("lzma reader: %w", ErrCorrupted)
	}

	buf := make([]byte, rawSize)

	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("lzma decode: %w", ErrCorrupted)
	}

	if n == rawSize && drains(r) {
		return nil, fmt.Errorf("lzma stream longer than declared size %d: %w", rawSize, ErrCorrupted)
	}

	return buf[:n], nil
}
