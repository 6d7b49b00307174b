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

// Package info implements the info subcommand, which prints the header
// of an OpenStreetMap PBF file and, optionally, entity and tag
// statistics gathered by scanning the whole file.
package info

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"m4o.io/osmpbf"
	"m4o.io/osmpbf/cmd/pbf/cli"
	"m4o.io/osmpbf/model"
)

var out io.Writer = os.Stdout

// input is bound to the --input flag via cli.NewReaderValue.
var input *os.File

// tagCount pairs a tag key with the number of entities carrying it.
type tagCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type extendedHeader struct {
	model.Header

	NodeCount     int64      `json:"node_count,omitempty"`
	WayCount      int64      `json:"way_count,omitempty"`
	RelationCount int64      `json:"relation_count,omitempty"`
	TopTags       []tagCount `json:"top_tags,omitempty"`
}

func init() {
	cli.RootCmd.AddCommand(infoCmd)

	flags := infoCmd.Flags()
	flags.VarP(cli.NewReaderValue(os.Stdin, &input, "file"), "input", "i", "OSM file to read, stdin when omitted")
	flags.BoolP("json", "j", false, "format information in JSON")
	flags.Uint16P("cpu", "c", uint16(runtime.GOMAXPROCS(-1)), "number of CPUs to use for scanning")
	flags.BoolP("extended", "e", false, "provide extended information (scans entire file)")
	flags.IntP("tags", "t", 0, "list the N most common tag keys (implies --extended)")
}

var infoCmd = &cobra.Command{
	Use:   "info [<OSM file>]",
	Short: "Print information about an OSM file",
	Long:  "Print information about an OSM file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {

		f := input
		if len(args) == 1 {
			var err error

			f, err = os.Open(args[0])
			if err != nil {
				log.Fatal(err)
			}
		}

		in, err := cli.WrapInputFile(f)
		if err != nil {
			log.Fatal(err)
		}

		flags := cmd.Flags()

		ncpu, err := flags.GetUint16("cpu")
		if err != nil {
			log.Fatal(err)
		}

		extended, err := flags.GetBool("extended")
		if err != nil {
			log.Fatal(err)
		}

		tags, err := flags.GetInt("tags")
		if err != nil {
			log.Fatal(err)
		}
		extended = extended || tags > 0

		info := runInfo(cmd.Context(), in, ncpu, extended, tags)

		if err := in.Close(); err != nil {
			log.Fatal(err)
		}

		jsonfmt, err := flags.GetBool("json")
		if err != nil {
			log.Fatal(err)
		}
		if jsonfmt {
			renderJSON(info, extended)
		} else {
			renderTxt(info, extended)
		}
	},
}

func runInfo(ctx context.Context, in io.Reader, ncpu uint16, extended bool, tags int) *extendedHeader {
	if ctx == nil {
		ctx = context.Background()
	}

	d, err := osmpbf.NewDecoder(ctx, in, osmpbf.WithNCpus(ncpu))
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	info := &extendedHeader{Header: d.Header}

	if !extended {
		return info
	}

	counts := make(map[string]int64)

	for {
		entities, err := d.Decode()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			log.Fatal(err)
		}

		for _, e := range entities {
			switch e.(type) {
			case model.Node:
				info.NodeCount++
			case model.Way:
				info.WayCount++
			case model.Relation:
				info.RelationCount++
			default:
				log.Fatalf("unknown type %T\n", e)
			}

			for k := range e.GetTags() {
				counts[k]++
			}
		}
	}

	info.TopTags = topTags(counts, tags)

	return info
}

// topTags returns the n most common tag keys, most common first.  Ties
// are broken by key so the output is stable.
func topTags(counts map[string]int64, n int) []tagCount {
	if n <= 0 {
		return nil
	}

	keys := maps.Keys(counts)
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}

		return cmp.Compare(a, b)
	})

	if len(keys) > n {
		keys = keys[:n]
	}

	top := make([]tagCount, 0, len(keys))
	for _, k := range keys {
		top = append(top, tagCount{Key: k, Count: counts[k]})
	}

	return top
}

func renderJSON(info *extendedHeader, extended bool) {
	// marshall the smallest struct needed
	var v interface{}
	if extended {
		v = info
	} else {
		v = info.Header
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Fprint(out, string(b))
}

func renderTxt(info *extendedHeader, extended bool) {
	fmt.Fprintf(out, "BoundingBox: %s\n", info.BoundingBox)
	fmt.Fprintf(out, "RequiredFeatures: %s\n", strings.Join(info.RequiredFeatures, ", "))
	fmt.Fprintf(out, "OptionalFeatures: %v\n", strings.Join(info.OptionalFeatures, ", "))
	fmt.Fprintf(out, "WritingProgram: %s\n", info.WritingProgram)
	fmt.Fprintf(out, "Source: %s\n", info.Source)
	fmt.Fprintf(out, "OsmosisReplicationTimestamp: %s\n", info.OsmosisReplicationTimestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "OsmosisReplicationSequenceNumber: %d\n", info.OsmosisReplicationSequenceNumber)
	fmt.Fprintf(out, "OsmosisReplicationBaseURL: %s\n", info.OsmosisReplicationBaseURL)
	if extended {
		fmt.Fprintf(out, "NodeCount: %s\n", humanize.Comma(info.NodeCount))
		fmt.Fprintf(out, "WayCount: %s\n", humanize.Comma(info.WayCount))
		fmt.Fprintf(out, "RelationCount: %s\n", humanize.Comma(info.RelationCount))

		for _, tc := range info.TopTags {
			fmt.Fprintf(out, "Tag %s: %s\n", tc.Key, humanize.Comma(tc.Count))
		}
	}
}
