// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/dict"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

var dictCmd = &cobra.Command{
	Use:   "dict <file> [key...]",
	Short: "List the entries of a dictionary, or look up the given keys",
	Long: "List the entries of a dictionary, or look up the given keys.\n\n" +
		"Keys are decimal integers, hex strings, or binary strings prefixed with b:.",
	Args: cobra.MinimumNArgs(1),
	Run:  listDict,
}

var dictFlag = struct {
	Bits     int
	HashmapE bool
	Signed   bool
}{}

func init() {
	cmd.AddCommand(dictCmd)
	addDictFlags(dictCmd)
}

func addDictFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&dictFlag.Bits, "bits", "n", 256, "Key length in bits")
	cmd.Flags().BoolVarP(&dictFlag.HashmapE, "maybe", "e", false, "The root is a HashmapE (a maybe reference to the dictionary)")
	cmd.Flags().BoolVar(&dictFlag.Signed, "signed", false, "Print keys as signed integers")
}

// loadDict interprets root as a dictionary according to the flags.
func loadDict(root *cell.Cell) dict.Hashmap {
	if !dictFlag.HashmapE {
		return dict.HashmapFromRoot(dictFlag.Bits, root)
	}
	s, err := root.BeginParse()
	check(err)
	m, err := dict.LoadHashmapE(s, dictFlag.Bits)
	check(err)
	return m
}

func parseKey(s string, bits int) (cell.BitString, error) {
	if b, ok := strings.CutPrefix(s, "b:"); ok {
		k, err := cell.ParseBinary(b)
		if err != nil {
			return cell.BitString{}, err
		}
		if k.Len() != bits {
			return cell.BitString{}, errors.InvalidArgument.WithFormat("key %s has %d bits, want %d", s, k.Len(), bits)
		}
		return k, nil
	}

	if bits <= 64 {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			if v < 0 {
				return dict.SignedKey(v, bits), nil
			}
			if bits < 64 && uint64(v)>>bits != 0 {
				return cell.BitString{}, errors.InvalidArgument.WithFormat("key %s does not fit in %d bits", s, bits)
			}
			return dict.Key(uint64(v), bits), nil
		}
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return cell.BitString{}, errors.InvalidArgument.WithFormat("invalid key %q", s)
	}
	if len(b)*8 < bits {
		return cell.BitString{}, errors.InvalidArgument.WithFormat("key %s has %d bits, want %d", s, len(b)*8, bits)
	}
	return cell.NewBitString(b, bits), nil
}

func formatKey(k cell.BitString) string {
	if k.Len() > 64 {
		return k.String()
	}
	if dictFlag.Signed && k.Len() > 0 {
		shift := 64 - k.Len()
		return strconv.FormatInt(int64(k.Uint()<<shift)>>shift, 10)
	}
	return strconv.FormatUint(k.Uint(), 10)
}

func formatValue(s *cell.Slice) string {
	v := s.RemainingBits().String()
	if n := s.RefsLeft(); n > 0 {
		v += fmt.Sprintf(" +%d refs", n)
	}
	return v
}

func listDict(_ *cobra.Command, args []string) {
	m := loadDict(readRoot(args[0]))

	if len(args) > 1 {
		for _, arg := range args[1:] {
			key, err := parseKey(arg, dictFlag.Bits)
			check(err)
			v, err := m.Get(key)
			checkf(err, "get %s", arg)
			if v == nil {
				fmt.Printf("%s: not found\n", arg)
				continue
			}
			fmt.Printf("%s: %s\n", arg, formatValue(v))
		}
		return
	}

	n := 0
	_, err := m.Iterate(func(key cell.BitString, value *cell.Slice) (bool, error) {
		n++
		fmt.Printf("%s: %s\n", formatKey(key), formatValue(value))
		return true, nil
	})
	check(err)
	if n == 0 {
		warnf("dictionary is empty")
	}
}
