// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/blockcells"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run:   showVersion,
}

var versionFlag struct {
	VersionOnly  bool
	KnownVersion bool
}

func init() {
	cmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVar(&versionFlag.VersionOnly, "version-only", false, "Only print out the version number")
	versionCmd.Flags().BoolVar(&versionFlag.KnownVersion, "known-version", false, "Return 1 if the version number is unknown")
}

func showVersion(*cobra.Command, []string) {
	if versionFlag.KnownVersion && !blockcells.IsVersionKnown() {
		defer os.Exit(1)
	}

	if versionFlag.VersionOnly {
		fmt.Println(blockcells.Version)
		return
	}

	fmt.Printf("%s %s\n", cmd.Short, blockcells.Version)
}
