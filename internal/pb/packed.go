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

// The packed scalar helpers below append every varint of a length-delimited
// packed field to vals.  Proto2 readers must also accept repeated scalars in
// unpacked form; the message decoders handle that case inline.

func appendPackedSint64(vals []int64, b []byte) ([]int64, error) {
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		vals = append(vals, protowire.DecodeZigZag(v))
		b = b[n:]
	}

	return vals, nil
}

func appendPackedInt32(vals []int32, b []byte) ([]int32, error) {
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		vals = append(vals, int32(v))
		b = b[n:]
	}

	return vals, nil
}

func appendPackedSint32(vals []int32, b []byte) ([]int32, error) {
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		vals = append(vals, int32(protowire.DecodeZigZag(v)))
		b = b[n:]
	}

	return vals, nil
}

func appendPackedUint32(vals []uint32, b []byte) ([]uint32, error) {
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		vals = append(vals, uint32(v))
		b = b[n:]
	}

	return vals, nil
}

func appendPackedBool(vals []bool, b []byte) ([]bool, error) {
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}

		vals = append(vals, v != 0)
		b = b[n:]
	}

	return vals, nil
}
