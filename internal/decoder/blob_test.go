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

package decoder_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmpbf/internal/decoder"
	"m4o.io/osmpbf/internal/pb"
	"m4o.io/osmpbf/internal/pbftest"
)

func TestReadBlob(t *testing.T) {
	payload := []byte("not really a primitive block")
	frame := pbftest.Frame(pbftest.DataType, pbftest.MarshalBlob(pbftest.Compress(pb.CodecRaw, payload)))

	blob, header, err := decoder.ReadBlob(bytes.NewReader(frame))
	require.NoError(t, err)

	assert.Equal(t, decoder.DataType, header.Type)
	assert.Equal(t, pb.CodecRaw, blob.Codec)
	assert.Equal(t, payload, blob.Data)
	assert.True(t, blob.HasRawSize)
	assert.Equal(t, int32(len(payload)), blob.RawSize)
}

func TestReadBlob_CleanEOF(t *testing.T) {
	_, _, err := decoder.ReadBlob(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadBlob_Truncated(t *testing.T) {
	frame := pbftest.Frame(pbftest.DataType, pbftest.MarshalBlob(pbftest.Compress(pb.CodecRaw, []byte("payload"))))

	test_cases := []struct {
		name string
		data []byte
	}{
		{"partial length prefix", frame[:2]},
		{"partial blob header", frame[:6]},
		{"partial blob body", frame[:len(frame)-3]},
	}

	for _, tc := range test_cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := decoder.ReadBlob(bytes.NewReader(tc.data))
			assert.ErrorIs(t, err, decoder.ErrTruncated)
		})
	}
}

func TestReadBlob_HeaderTooLarge(t *testing.T) {
	var frame []byte
	frame = binary.BigEndian.AppendUint32(frame, decoder.MaxBlobHeaderSize+1)

	_, _, err := decoder.ReadBlob(bytes.NewReader(frame))
	assert.ErrorIs(t, err, decoder.ErrFormat)
}

func TestReadBlob_BodyTooLarge(t *testing.T) {
	header := pbftest.MarshalBlobHeader(&pb.BlobHeader{
		Type:     decoder.DataType,
		Datasize: decoder.MaxBlobSize + 1,
	})

	var frame []byte
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(header)))
	frame = append(frame, header...)

	_, _, err := decoder.ReadBlob(bytes.NewReader(frame))
	assert.ErrorIs(t, err, decoder.ErrFormat)
}

func TestReadBlob_GarbageHeader(t *testing.T) {
	garbage := []byte{0x07, 0x08, 0x09}

	var frame []byte
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(garbage)))
	frame = append(frame, garbage...)

	_, _, err := decoder.ReadBlob(bytes.NewReader(frame))
	assert.ErrorIs(t, err, decoder.ErrCorrupted)
}

func TestGenerateBlobReader(t *testing.T) {
	one := pbftest.Frame(pbftest.DataType, pbftest.MarshalBlob(pbftest.Compress(pb.CodecRaw, []byte("one"))))
	two := pbftest.Frame(pbftest.DataType, pbftest.MarshalBlob(pbftest.Compress(pb.CodecRaw, []byte("two"))))

	stream := append(append([]byte(nil), one...), two...)

	logger, _ := capture()

	var blobs []*pb.Blob

	for blob, err := range decoder.GenerateBlobReader(context.Background(), bytes.NewReader(stream), logger) {
		require.NoError(t, err)

		blobs = append(blobs, blob)
	}

	require.Len(t, blobs, 2)
	assert.Equal(t, []byte("one"), blobs[0].Data)
	assert.Equal(t, []byte("two"), blobs[1].Data)
}

func TestGenerateBlobReader_WrongType(t *testing.T) {
	good := pbftest.Frame(pbftest.DataType, pbftest.MarshalBlob(pbftest.Compress(pb.CodecRaw, []byte("good"))))
	bad := pbftest.Frame(pbftest.HeaderType, pbftest.MarshalBlob(pbftest.Compress(pb.CodecRaw, []byte("bad"))))

	stream := append(append([]byte(nil), good...), bad...)

	logger, logged := capture()

	var got []*pb.Blob

	var failure error

	for blob, err := range decoder.GenerateBlobReader(context.Background(), bytes.NewReader(stream), logger) {
		if err != nil {
			failure = err

			break
		}

		got = append(got, blob)
	}

	assert.Len(t, got, 1)
	assert.ErrorIs(t, failure, decoder.ErrFormat)
	assert.Contains(t, logged.String(), "unable to read blob")
}

func TestGenerateBlobReader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frame := pbftest.Frame(pbftest.DataType, pbftest.MarshalBlob(pbftest.Compress(pb.CodecRaw, []byte("unseen"))))

	logger, _ := capture()

	for range decoder.GenerateBlobReader(ctx, bytes.NewReader(frame), logger) {
		t.Fatal("canceled reader should not yield")
	}
}
