// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/blockcells/pkg/merkle"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Create and apply Merkle updates",
}

var updateCreateCmd = &cobra.Command{
	Use:   "create <old file> <new file>",
	Short: "Create an update that transforms the old tree into the new one",
	Args:  cobra.ExactArgs(2),
	Run:   createUpdate,
}

var updateApplyCmd = &cobra.Command{
	Use:   "apply <update file> <old file>",
	Short: "Apply an update to the old tree and write the new tree",
	Args:  cobra.ExactArgs(2),
	Run:   applyUpdate,
}

var updateCheckCmd = &cobra.Command{
	Use:   "check <update file> [old file]",
	Short: "Check an update, and that it applies to the old tree",
	Args:  cobra.RangeArgs(1, 2),
	Run:   checkUpdate,
}

func init() {
	cmd.AddCommand(updateCmd)
	updateCmd.AddCommand(updateCreateCmd, updateApplyCmd, updateCheckCmd)
	addOutputFlags(updateCreateCmd.Flags())
	addOutputFlags(updateApplyCmd.Flags())
}

func createUpdate(_ *cobra.Command, args []string) {
	oldRoot, newRoot := readRoot(args[0]), readRoot(args[1])
	if oldRoot.Equal(newRoot) {
		warnf("the trees are identical")
	}

	u, err := merkle.CreateUpdate(oldRoot, newRoot)
	check(err)
	c, err := u.Cell()
	check(err)
	writeRoot(c)
}

func applyUpdate(_ *cobra.Command, args []string) {
	u, err := merkle.LoadUpdate(readRoot(args[0]))
	checkf(err, "invalid update")

	newRoot, err := u.Apply(readRoot(args[1]))
	checkf(err, "apply update")
	writeRoot(newRoot)
}

func checkUpdate(_ *cobra.Command, args []string) {
	u, err := merkle.LoadUpdate(readRoot(args[0]))
	checkf(err, "invalid update")
	fmt.Printf("Update from %v (depth %d) to %v (depth %d)\n", u.OldHash, u.OldDepth, u.NewHash, u.NewDepth)

	if len(args) < 2 {
		return
	}
	_, err = u.Check(readRoot(args[1]))
	checkf(err, "update does not apply")
	fmt.Println("Update applies")
}
