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

package osmpbf

import (
	"m4o.io/osmpbf/internal/decoder"
)

// The error kinds that can abort a read, matchable with errors.Is.
var (
	// ErrFormat reports a structurally invalid stream.
	ErrFormat = decoder.ErrFormat

	// ErrTruncated reports a stream that ended mid-blob.
	ErrTruncated = decoder.ErrTruncated

	// ErrUnsupported reports the obsolete bzip2 blob encoding.
	ErrUnsupported = decoder.ErrUnsupported

	// ErrCorrupted reports a header blob whose contents do not decode.
	// For data blobs corruption is absorbed: the blob is skipped and the
	// read continues.
	ErrCorrupted = decoder.ErrCorrupted
)
