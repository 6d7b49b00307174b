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

// Package osmpbf reads OpenStreetMap PBF files: it frames and uncompresses
// blobs, interprets primitive blocks, and exposes the result either as a
// stream of entities or as a fully materialized dataset.
package osmpbf

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/destel/rill"

	"m4o.io/osmpbf/internal/decoder"
	"m4o.io/osmpbf/internal/pb"
	"m4o.io/osmpbf/model"
)

// Decoder reads and decodes OpenStreetMap PBF data from an input stream.
//
// The header blob is consumed at construction; the data blobs are read
// sequentially and decoded in order by a bounded pipeline once Decode is
// first called.
type Decoder struct {
	// Header is the file metadata, decoded from the leading header blob.
	Header model.Header

	opts   decoderOptions
	reader io.Reader
	ctx    context.Context
	cancel context.CancelFunc

	start sync.Once
	out   <-chan rill.Try[[]model.Entity]
}

// NewDecoder returns a new decoder that reads from reader.  The header
// blob is consumed immediately; a stream whose first blob is not a header
// fails here.
func NewDecoder(ctx context.Context, reader io.Reader, options ...DecoderOption) (*Decoder, error) {
	opts := defaultDecoderConfig

	for _, option := range options {
		option(&opts)
	}

	if opts.logger == nil {
		opts.logger = slog.Default()
	}

	header, err := decoder.LoadHeader(reader, opts.logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Decoder{
		Header: header,
		opts:   opts,
		reader: reader,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Decode returns the entities of the next decoded batch of blobs.  The
// end of the stream is reported by io.EOF.
func (d *Decoder) Decode() ([]model.Entity, error) {
	d.start.Do(d.run)

	t, more := <-d.out
	if !more {
		return nil, io.EOF
	}

	if t.Error != nil {
		return nil, t.Error
	}

	return t.Value, nil
}

// Close cancels the decoding pipeline.  It is safe to call more than once
// and to call concurrently with Decode.
func (d *Decoder) Close() {
	d.cancel()

	d.start.Do(d.run)

	// draining releases the pipeline goroutines
	go func() {
		for range d.out {
		}
	}()
}

// run assembles the blob-to-entity pipeline: blobs are read sequentially
// off the stream, grouped into batches, and the batches are unpacked and
// parsed by nCPU workers whose results are re-ordered to stream order.
func (d *Decoder) run() {
	blobs := make(chan rill.Try[*pb.Blob])

	go func() {
		defer close(blobs)

		for blob, err := range decoder.GenerateBlobReader(d.ctx, d.reader, d.opts.logger) {
			blobs <- rill.Wrap(blob, err)
		}
	}()

	batches := rill.Batch(blobs, d.opts.protoBatchSize, -1)

	d.out = rill.OrderedMap(batches, int(d.opts.nCPU), func(batch []*pb.Blob) ([]model.Entity, error) {
		return decoder.DecodeBatch(batch, d.opts.logger)
	})
}
