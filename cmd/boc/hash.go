// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash <file...>",
	Short: "Print the hashes of the roots of bags of cells",
	Args:  cobra.MinimumNArgs(1),
	Run:   hashBOC,
}

var hashFlag = struct {
	Levels bool
}{}

func init() {
	cmd.AddCommand(hashCmd)
	hashCmd.Flags().BoolVar(&hashFlag.Levels, "levels", false, "Print the hash of every significant level")
}

func hashBOC(_ *cobra.Command, args []string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Root", "Type", "Level", "Depth", "Hash"})
	table.SetAutoWrapText(false)

	for _, name := range args {
		data, err := readFile(name)
		checkf(err, "read %s", name)
		roots, err := decodeBOC(data)
		checkf(err, "decode %s", name)

		for i, root := range roots {
			table.Append([]string{
				name,
				strconv.Itoa(i),
				root.Type().String(),
				strconv.Itoa(root.Level()),
				strconv.Itoa(int(root.ReprDepth())),
				root.ReprHash().String(),
			})
			if !hashFlag.Levels || root.Level() == 0 {
				continue
			}
			depths := root.Depths()
			for j, h := range root.Hashes() {
				table.Append([]string{"", "", fmt.Sprintf("hash %d", j), "", strconv.Itoa(int(depths[j])), h.String()})
			}
		}
	}

	table.Render()
}
