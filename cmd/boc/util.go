// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"gitlab.com/accumulatenetwork/blockcells/pkg/cell"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
	"golang.org/x/term"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func warnf(format string, args ...interface{}) {
	format = "WARNING: " + format + "\n"
	if isTerminal(os.Stderr) {
		fmt.Fprint(os.Stderr, color.RedString(format, args...))
	} else {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

var bocMagic = []byte{0xb5, 0xee, 0x9c, 0x72}

// readFile reads a file, or stdin if the name is "-".
func readFile(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

// decodeBOC decodes a bag of cells given as raw bytes, hex, or base64.
func decodeBOC(data []byte) ([]*cell.Cell, error) {
	if !bytes.HasPrefix(data, bocMagic) {
		s := strings.TrimSpace(string(data))
		b, err := hex.DecodeString(s)
		if err != nil {
			b, err = base64.StdEncoding.DecodeString(s)
		}
		if err != nil {
			return nil, errors.EncodingError.With("input is not a bag of cells in binary, hex, or base64 form")
		}
		data = b
	}
	return cell.Deserialize(data)
}

// readRoot reads a file and returns the single root of the bag of cells it
// holds.
func readRoot(name string) *cell.Cell {
	data, err := readFile(name)
	checkf(err, "read %s", name)
	roots, err := decodeBOC(data)
	checkf(err, "decode %s", name)
	if len(roots) != 1 {
		fatalf("%s: want one root, got %d", name, len(roots))
	}
	return roots[0]
}

var outputFlag = struct {
	File   string
	Format string
}{}

// writeRoot serializes root with the configured options and writes it to the
// output file or to stdout.
func writeRoot(root *cell.Cell) {
	data, err := cell.Serialize([]*cell.Cell{root}, cell.SerializeOptions{
		CRC32C: cfg.BOC.CRC32C,
		Index:  cfg.BOC.Index,
	})
	check(err)

	var out []byte
	switch outputFlag.Format {
	case "binary", "bin":
		out = data
		if outputFlag.File == "" && isTerminal(os.Stdout) {
			warnf("writing binary data to a terminal")
		}
	case "hex":
		out = []byte(hex.EncodeToString(data) + "\n")
	case "base64", "":
		out = []byte(base64.StdEncoding.EncodeToString(data) + "\n")
	default:
		fatalf("unsupported output format %q", outputFlag.Format)
	}

	if outputFlag.File == "" {
		_, err = os.Stdout.Write(out)
		check(err)
		return
	}
	checkf(os.WriteFile(outputFlag.File, out, 0644), "write %s", outputFlag.File)
}

func addOutputFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&outputFlag.File, "out", "o", "", "Output file (default stdout)")
	fs.StringVarP(&outputFlag.Format, "format", "f", "base64", "Output format: binary, hex, or base64")
}
