// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
	"gitlab.com/accumulatenetwork/blockcells/pkg/merkle"
	"golang.org/x/sync/errgroup"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file...>",
	Short: "Verify bags of cells, and the Merkle proofs and updates they hold",
	Args:  cobra.MinimumNArgs(1),
	Run:   verifyBOC,
}

var verifyFlag = struct {
	Jobs int
}{}

func init() {
	cmd.AddCommand(verifyCmd)
	verifyCmd.Flags().IntVarP(&verifyFlag.Jobs, "jobs", "j", runtime.NumCPU(), "Number of files to verify in parallel")
}

type verifyResult struct {
	roots int
	cells int
	size  int
	err   error
}

func verifyBOC(_ *cobra.Command, args []string) {
	results := make([]verifyResult, len(args))

	errg := new(errgroup.Group)
	errg.SetLimit(max(verifyFlag.Jobs, 1))
	for i, name := range args {
		i, name := i, name
		errg.Go(func() error {
			results[i] = verifyFile(name)
			return nil
		})
	}
	check(errg.Wait())

	var failed int
	for i, r := range results {
		switch {
		case errors.Code(r.err).IsMerkleError():
			failed++
			fmt.Fprintf(os.Stderr, "%s: rejected: %v\n", args[i], r.err)
			continue
		case r.err != nil:
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", args[i], r.err)
			continue
		}
		fmt.Printf("%s: ok, %d roots, %d cells, %s\n", args[i], r.roots, r.cells, humanize.Bytes(uint64(r.size)))
	}
	if failed > 0 {
		fatalf("%d of %d files failed verification", failed, len(args))
	}
}

func verifyFile(name string) verifyResult {
	data, err := readFile(name)
	if err != nil {
		return verifyResult{err: err}
	}
	roots, err := decodeBOC(data)
	if err != nil {
		return verifyResult{err: err}
	}

	for _, root := range roots {
		err = verifyRoot(root)
		if err != nil {
			return verifyResult{err: err}
		}
	}

	slog.Debug("Verified", "module", "boc", "file", name, "roots", len(roots))
	return verifyResult{roots: len(roots), cells: countCells(roots), size: len(data)}
}

func verifyRoot(root *cell.Cell) error {
	switch root.Type() {
	case cell.MerkleProof:
		_, err := merkle.LoadProof(root)
		return err
	case cell.MerkleUpdate:
		_, err := merkle.LoadUpdate(root)
		return err
	case cell.PrunedBranch:
		return errors.InvalidData.With("root is a pruned branch")
	}
	return nil
}
