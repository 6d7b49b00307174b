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

// Package cli holds the shared plumbing of the pbf command, its root
// command plus flag and terminal helpers used by the subcommands.
package cli

import (
	"github.com/spf13/cobra"
)

// RootCmd is the root of the pbf command tree.  Subcommands register
// themselves against it from their init functions.
var RootCmd = &cobra.Command{
	Use:   "pbf",
	Short: "pbf inspects OpenStreetMap PBF files",
	Long:  "pbf reads OpenStreetMap PBF files and prints information about their contents",
}
