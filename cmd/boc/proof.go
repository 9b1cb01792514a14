// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
	"gitlab.com/accumulatenetwork/blockcells/pkg/merkle"
)

var proofCmd = &cobra.Command{
	Use:   "proof",
	Short: "Create and check Merkle proofs",
}

var proofCreateCmd = &cobra.Command{
	Use:   "create <dictionary file> <key...>",
	Short: "Prove the values of keys of a dictionary",
	Args:  cobra.MinimumNArgs(2),
	Run:   createProof,
}

var proofCheckCmd = &cobra.Command{
	Use:   "check <proof file> [key...]",
	Short: "Check a Merkle proof and look up keys in the proven dictionary",
	Args:  cobra.MinimumNArgs(1),
	Run:   checkProof,
}

var proofFlag = struct {
	Hash string
}{}

func init() {
	cmd.AddCommand(proofCmd)
	proofCmd.AddCommand(proofCreateCmd, proofCheckCmd)

	addDictFlags(proofCreateCmd)
	addOutputFlags(proofCreateCmd.Flags())

	addDictFlags(proofCheckCmd)
	proofCheckCmd.Flags().StringVar(&proofFlag.Hash, "hash", "", "Expected hash of the proven tree")
}

func createProof(_ *cobra.Command, args []string) {
	root := readRoot(args[0])

	// Every cell parsed while looking up the keys goes into the proof
	usage := cell.NewUsageTree(root)
	m := loadDict(usage.Root())
	for _, arg := range args[1:] {
		key, err := parseKey(arg, dictFlag.Bits)
		check(err)
		v, err := m.Get(key)
		checkf(err, "get %s", arg)
		if v == nil {
			warnf("%s is not in the dictionary, proving its absence", arg)
		}
	}

	proof, err := merkle.CreateProofByUsage(root, usage)
	check(err)
	c, err := proof.Cell()
	check(err)
	writeRoot(c)
}

func checkProof(_ *cobra.Command, args []string) {
	proof, err := merkle.LoadProof(readRoot(args[0]))
	checkf(err, "invalid proof")

	if proofFlag.Hash != "" {
		want, err := cell.ParseHash(proofFlag.Hash)
		check(err)
		if proof.Hash != want {
			fatalf("proof is for %v, want %v", proof.Hash, want)
		}
	}
	fmt.Printf("Proof of %v (depth %d)\n", proof.Hash, proof.Depth)

	m := loadDict(proof.Virtualize())
	for _, arg := range args[1:] {
		key, err := parseKey(arg, dictFlag.Bits)
		check(err)
		v, err := m.Get(key)
		switch {
		case errors.Is(err, errors.PrunedCellAccess):
			fmt.Printf("%s: not proven\n", arg)
		case err != nil:
			checkf(err, "get %s", arg)
		case v == nil:
			fmt.Printf("%s: proven absent\n", arg)
		default:
			fmt.Printf("%s: %s\n", arg, formatValue(v))
		}
	}
}
