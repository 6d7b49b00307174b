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
	"errors"
)

// The four fatal error kinds of a read.  Everything else is absorbed into
// diagnostics and a best-effort dataset.
var (
	// ErrFormat reports a structurally invalid stream: a wrong blob type
	// marker, an oversized header or body length, or an empty or unknown
	// compression payload.
	ErrFormat = errors.New("invalid file format")

	// ErrTruncated reports a stream that ended mid-header or mid-body.
	ErrTruncated = errors.New("truncated input")

	// ErrUnsupported reports a payload in the obsolete bzip2 encoding,
	// which is deliberately not implemented.
	ErrUnsupported = errors.New("unsupported compression format")

	// ErrCorrupted reports a blob whose contents do not decode: the
	// decompressed size differs from the declared raw size, or the
	// decompressed bytes are not a valid block message.
	ErrCorrupted = errors.New("file may be corrupted")
)
