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

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPooledBuffer(t *testing.T) {
	buf := NewPooledBuffer()

	_, err := buf.WriteString("payload")
	assert.NoError(t, err)
	assert.Equal(t, []byte("payload"), buf.Bytes())

	assert.NoError(t, buf.Close())
	assert.Nil(t, buf.Buffer)

	// closing twice is harmless
	assert.NoError(t, buf.Close())
}

func TestPooledBuffer_ReuseStartsEmpty(t *testing.T) {
	buf := NewPooledBuffer()
	_, _ = buf.WriteString("residue")
	_ = buf.Close()

	again := NewPooledBuffer()
	defer again.Close()

	assert.Zero(t, again.Len())
}
