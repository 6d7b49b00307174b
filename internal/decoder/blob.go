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

// Package decoder turns an OpenStreetMap PBF byte stream into model
// entities: blob framing, decompression, and primitive block
// interpretation.
package decoder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"m4o.io/osmpbf/internal/core"
	"m4o.io/osmpbf/internal/pb"
)

// Blob type markers.
const (
	HeaderType = "OSMHeader"
	DataType   = "OSMData"
)

// Caps on the two length fields of a blob, bounding worst-case allocation
// before any byte of the body is read.
const (
	MaxBlobHeaderSize = 64 * 1024
	MaxBlobSize       = 32 * 1024 * 1024
)

// ReadBlob reads one length-prefixed blob header/body pair off rdr.  At a
// clean end of stream it returns io.EOF.
func ReadBlob(rdr io.Reader) (*pb.Blob, *pb.BlobHeader, error) {
	h, err := readBlobHeader(rdr)
	if err != nil {
		return nil, nil, err
	}

	b, err := readBlobData(rdr, h.Datasize)
	if err != nil {
		return nil, nil, err
	}

	return b, h, nil
}

// GenerateBlobReader creates an iterator that yields the data blobs read
// off of the reader.  The header blob must already have been consumed.
// A blob whose type is not the data marker ends the iteration with
// ErrFormat; the stream cannot be trusted past that point.
func GenerateBlobReader(ctx context.Context, reader io.Reader, logger *slog.Logger) func(yield func(enc *pb.Blob, err error) bool) {
	return func(yield func(enc *pb.Blob, err error) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			blob, header, err := ReadBlob(reader)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					logger.Error("unable to read blob", "error", err)
					yield(nil, err)
				}

				return
			}

			if header.Type != DataType {
				err = fmt.Errorf("blob type %q where %q expected: %w", header.Type, DataType, ErrFormat)
				logger.Error("unable to read blob", "error", err)
				yield(nil, err)

				return
			}

			if !yield(blob, nil) {
				return
			}
		}
	}
}

// readBlobHeader unmarshals a blob header from its length-prefixed frame.
// The header declares the type and size of the blob body that follows.
func readBlobHeader(rdr io.Reader) (*pb.BlobHeader, error) {
	var size uint32

	err := binary.Read(rdr, binary.BigEndian, &size)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}

		return nil, fmt.Errorf("error reading blob header length: %w", ErrTruncated)
	}

	if size > MaxBlobHeaderSize {
		return nil, fmt.Errorf("blob header length %d exceeds %d: %w", size, MaxBlobHeaderSize, ErrFormat)
	}

	buf := core.NewPooledBuffer()
	defer buf.Close()

	if _, err := io.CopyN(buf, rdr, int64(size)); err != nil {
		return nil, fmt.Errorf("error reading blob header: %w", ErrTruncated)
	}

	header, err := pb.UnmarshalBlobHeader(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling blob header: %w", ErrCorrupted)
	}

	if header.Datasize > MaxBlobSize {
		return nil, fmt.Errorf("blob body length %d exceeds %d: %w", header.Datasize, MaxBlobSize, ErrFormat)
	}

	return header, nil
}

// readBlobData unmarshals a blob body of exactly size bytes.  The blob
// still needs to be unpacked and decoded into entities.
func readBlobData(rdr io.Reader, size int32) (*pb.Blob, error) {
	buf := core.NewPooledBuffer()
	defer buf.Close()

	if _, err := io.CopyN(buf, rdr, int64(size)); err != nil {
		return nil, fmt.Errorf("error reading blob body: %w", ErrTruncated)
	}

	blob, err := pb.UnmarshalBlob(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling blob: %w", ErrCorrupted)
	}

	return blob, nil
}
