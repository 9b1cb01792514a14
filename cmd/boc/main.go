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

	"github.com/spf13/cobra"
	"gitlab.com/accumulatenetwork/blockcells/config"
	"gitlab.com/accumulatenetwork/blockcells/internal/logging"
	"gitlab.com/accumulatenetwork/blockcells/internal/metrics"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

var cmd = &cobra.Command{
	Use:   "boc",
	Short: "Inspect and manipulate bags of cells",

	PersistentPreRun:  setup,
	PersistentPostRun: teardown,
}

var flag = struct {
	Config   string
	LogLevel string
	Metrics  bool
}{}

var cfg = config.Default()

func init() {
	cmd.PersistentFlags().StringVarP(&flag.Config, "config", "c", "", "Configuration file")
	cmd.PersistentFlags().StringVar(&flag.LogLevel, "log-level", "", "Log level, overriding the configuration")
	cmd.PersistentFlags().BoolVar(&flag.Metrics, "metrics", false, "Print metrics to stderr when done")
}

func main() {
	_ = cmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) {
	if flag.Config != "" {
		c, err := config.Load(flag.Config)
		checkf(err, "load configuration")
		cfg = c
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = flag.LogLevel
	}

	var out = os.Stderr
	w := logging.ConsoleSlogWriter(out, cfg.Logging.Color && isTerminal(out))
	switch cfg.Logging.Format {
	case "plain", "":
	case "json":
		w = out
	default:
		fatalf("unsupported log format %q", cfg.Logging.Format)
	}

	level, w, err := logging.ParseLogLevel(cfg.Logging.Level, w)
	checkf(err, "log level")
	lvl, err := logging.SlogLevel(level)
	check(err)

	handler, err := logging.NewSlogHandler(logging.SlogConfig{DefaultLevel: lvl}, w)
	check(err)
	slog.SetDefault(slog.New(handler))
}

func teardown(*cobra.Command, []string) {
	if !flag.Metrics {
		return
	}
	check(metrics.Write(os.Stderr))
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func check(err error) {
	if err != nil {
		err = errors.UnknownError.Skip(1).Wrap(err)
		fatalf("%+v", err)
	}
}

func checkf(err error, format string, otherArgs ...interface{}) {
	if err != nil {
		err = errors.UnknownError.Skip(1).Wrap(err)
		fatalf(format+": %+v", append(otherArgs, err)...)
	}
}
