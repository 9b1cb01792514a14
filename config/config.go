// Copyright 2024 The Blockcells Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/spf13/viper"
	"gitlab.com/accumulatenetwork/blockcells/pkg/errors"
)

// LogLevel defines the default and per-module log level.
type LogLevel struct {
	Default string
	Modules [][2]string
}

// Parse parses a string such as "error;dict=debug" into a LogLevel.
func (l LogLevel) Parse(s string) LogLevel {
	for _, s := range strings.Split(s, ";") {
		s := strings.SplitN(s, "=", 2)
		if len(s) == 1 {
			l.Default = s[0]
		} else {
			l.Modules = append(l.Modules, *(*[2]string)(s))
		}
	}
	return l
}

// SetDefault sets the default log level.
func (l LogLevel) SetDefault(level string) LogLevel {
	l.Default = level
	return l
}

// SetModule sets the log level for a module.
func (l LogLevel) SetModule(module, level string) LogLevel {
	l.Modules = append(l.Modules, [2]string{module, level})
	return l
}

// String converts the log level into a string, for example
// "error;merkle=debug".
func (l LogLevel) String() string {
	s := new(strings.Builder)
	s.WriteString(l.Default)
	for _, m := range l.Modules {
		fmt.Fprintf(s, ";%s=%s", m[0], m[1])
	}
	return s.String()
}

var DefaultLogLevels = LogLevel{}.
	SetDefault("error").
	// SetModule("dict", "debug").
	// SetModule("merkle", "debug").
	String()

type Config struct {
	Logging Logging `toml:"logging" mapstructure:"logging"`
	BOC     BOC     `toml:"boc" mapstructure:"boc"`
	Dump    Dump    `toml:"dump" mapstructure:"dump"`
}

type Logging struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
	Color  bool   `toml:"color" mapstructure:"color"`
}

// BOC configures how bags of cells are written.
type BOC struct {
	CRC32C bool `toml:"crc32c" mapstructure:"crc32c"`
	Index  bool `toml:"index" mapstructure:"index"`
}

type Dump struct {
	// MaxDepth limits how deep cell trees are printed. Negative means no
	// limit.
	MaxDepth int `toml:"max-depth" mapstructure:"max-depth"`
}

func Default() *Config {
	return &Config{
		Logging: Logging{
			Level:  DefaultLogLevels,
			Format: "plain",
			Color:  true,
		},
		BOC: BOC{
			CRC32C: true,
		},
		Dump: Dump{
			MaxDepth: -1,
		},
	}
}

// Load reads a configuration file over the defaults.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("toml")

	def := Default()
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.color", def.Logging.Color)
	v.SetDefault("boc.crc32c", def.BOC.CRC32C)
	v.SetDefault("boc.index", def.BOC.Index)
	v.SetDefault("dump.max-depth", def.Dump.MaxDepth)

	err := v.ReadInConfig()
	if err != nil {
		return nil, errors.InvalidArgument.WithFormat("read %s: %w", file, err)
	}

	cfg := new(Config)
	err = v.Unmarshal(cfg)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("unmarshal %s: %w", file, err)
	}
	return cfg, nil
}

// Store writes the configuration to a file.
func Store(file string, cfg *Config) error {
	f, err := os.Create(file)
	if err != nil {
		return errors.UnknownError.Wrap(err)
	}
	defer f.Close()

	err = toml.NewEncoder(f).Encode(cfg)
	if err != nil {
		return errors.EncodingError.WithFormat("encode config: %w", err)
	}
	return nil
}
