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

package osmpbf

import (
	"log/slog"
	"runtime"

	"m4o.io/osmpbf/model"
)

// DefaultBatchSize is the default batch size for unprocessed blobs.
const DefaultBatchSize = 16

// DefaultNCpu provides the default number of CPUs.
func DefaultNCpu() uint16 {
	cpus := uint16(runtime.GOMAXPROCS(-1))

	return max(cpus-1, 1)
}

// NodeFilter decides whether a decoded node enters the dataset, possibly
// substituting a modified copy.  Returning false drops the node.
type NodeFilter func(model.Node) (model.Node, bool)

// WayFilter decides whether a decoded way enters the dataset, possibly
// substituting a modified copy.  Returning false drops the way.
type WayFilter func(model.Way) (model.Way, bool)

// RelationFilter decides whether a decoded relation enters the dataset,
// possibly substituting a modified copy.  Returning false drops the
// relation.
type RelationFilter func(model.Relation) (model.Relation, bool)

// decoderOptions provides optional configuration parameters for Decoder construction.
type decoderOptions struct {
	protoBatchSize int          // batch size for blob un-marshaling
	nCPU           uint16       // the number of CPUs to use for background processing
	logger         *slog.Logger // sink for decoding diagnostics

	nodeFilter     NodeFilter
	wayFilter      WayFilter
	relationFilter RelationFilter
}

// DecoderOption configures how we set up the decoder.
type DecoderOption func(*decoderOptions)

// WithBatchSize lets you set the batch size for blob un-marshaling.
func WithBatchSize(s int) DecoderOption {
	return func(o *decoderOptions) {
		if s > 0 {
			o.protoBatchSize = s
		}
	}
}

// WithNCpus lets you set the number of CPUs to use for background processing.
func WithNCpus(n uint16) DecoderOption {
	return func(o *decoderOptions) {
		if n > 0 {
			o.nCPU = n
		}
	}
}

// WithLogger lets you direct decoding diagnostics to a specific logger.
func WithLogger(logger *slog.Logger) DecoderOption {
	return func(o *decoderOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNodeFilter installs a filter invoked for every decoded node.
func WithNodeFilter(f NodeFilter) DecoderOption {
	return func(o *decoderOptions) {
		o.nodeFilter = f
	}
}

// WithWayFilter installs a filter invoked for every decoded way.
func WithWayFilter(f WayFilter) DecoderOption {
	return func(o *decoderOptions) {
		o.wayFilter = f
	}
}

// WithRelationFilter installs a filter invoked for every decoded relation.
func WithRelationFilter(f RelationFilter) DecoderOption {
	return func(o *decoderOptions) {
		o.relationFilter = f
	}
}

// defaultDecoderConfig provides a default configuration for decoders.
var defaultDecoderConfig = decoderOptions{
	protoBatchSize: DefaultBatchSize,
	nCPU:           DefaultNCpu(),
}
