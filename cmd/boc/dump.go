// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gopkg.in/yaml.v3"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the cells of a bag of cells",
	Args:  cobra.ExactArgs(1),
	Run:   dumpBOC,
}

var dumpFlag = struct {
	Format   string
	MaxDepth int
	Summary  bool
}{}

func init() {
	cmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringVarP(&dumpFlag.Format, "format", "f", "tree", "Output format: tree, yaml, json, or spew")
	dumpCmd.Flags().IntVar(&dumpFlag.MaxDepth, "max-depth", 0, "Limit how deep trees are printed (default from the configuration)")
	dumpCmd.Flags().BoolVarP(&dumpFlag.Summary, "summary", "s", false, "Only print the number of cells and the size")
}

type cellInfo struct {
	Type  string      `json:"type" yaml:"type"`
	Level int         `json:"level,omitempty" yaml:"level,omitempty"`
	Bits  int         `json:"bits" yaml:"bits"`
	Data  string      `json:"data" yaml:"data"`
	Hash  string      `json:"hash" yaml:"hash"`
	Depth uint16      `json:"depth" yaml:"depth"`
	Refs  []*cellInfo `json:"refs,omitempty" yaml:"refs,omitempty"`
	More  int         `json:"more,omitempty" yaml:"more,omitempty"`
}

func newCellInfo(c *cell.Cell, depth, maxDepth int) *cellInfo {
	info := &cellInfo{
		Type:  c.Type().String(),
		Level: c.Level(),
		Bits:  c.BitLen(),
		Data:  c.Bits().String(),
		Hash:  c.ReprHash().String(),
		Depth: c.ReprDepth(),
	}
	if maxDepth >= 0 && depth >= maxDepth {
		info.More = c.RefCount()
		return info
	}
	for _, r := range c.Refs() {
		info.Refs = append(info.Refs, newCellInfo(r, depth+1, maxDepth))
	}
	return info
}

func dumpBOC(cmd *cobra.Command, args []string) {
	data, err := readFile(args[0])
	checkf(err, "read %s", args[0])
	roots, err := decodeBOC(data)
	checkf(err, "decode %s", args[0])

	if dumpFlag.Summary {
		fmt.Printf("%d roots, %d cells, %s\n", len(roots), countCells(roots), humanize.Bytes(uint64(len(data))))
		return
	}

	maxDepth := cfg.Dump.MaxDepth
	if cmd.Flags().Changed("max-depth") {
		maxDepth = dumpFlag.MaxDepth
	}

	if dumpFlag.Format == "tree" {
		for _, root := range roots {
			fmt.Print(root.Dump(maxDepth))
		}
		return
	}

	infos := make([]*cellInfo, len(roots))
	for i, root := range roots {
		infos[i] = newCellInfo(root, 0, maxDepth)
	}

	switch dumpFlag.Format {
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		check(enc.Encode(infos))
		check(enc.Close())
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		check(enc.Encode(infos))
	case "spew":
		fmt.Print(spew.Sdump(infos))
	default:
		fatalf("unsupported format %q", dumpFlag.Format)
	}
}

// countCells returns the number of distinct cells reachable from roots.
func countCells(roots []*cell.Cell) int {
	seen := map[cell.Hash]bool{}
	var visit func(c *cell.Cell)
	visit = func(c *cell.Cell) {
		h := c.ReprHash()
		if seen[h] {
			return
		}
		seen[h] = true
		for _, r := range c.Refs() {
			visit(r)
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return len(seen)
}
