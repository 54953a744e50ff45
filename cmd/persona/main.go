// Copyright 2026 The open-persona Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command persona is the CLI for the open-persona orchestration hub.
//
// Usage:
//
//	persona chat --persona excel-pro --config persona.yaml
//	persona index --persona excel-pro docs/guide.pdf
//	persona stats
//	persona schema > config.schema.json
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/logger"
)

const defaultConfigFile = "persona.yaml"

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Chat    ChatCmd    `cmd:"" help:"Start an interactive chat session."`
	Index   IndexCmd   `cmd:"" help:"Index documents into a persona's knowledge."`
	Stats   StatsCmd   `cmd:"" help:"Show index statistics per persona."`
	Schema  SchemaCmd  `cmd:"" help:"Generate JSON Schema for the config file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("open-persona version %s\n", version)
	return nil
}

// loadConfig resolves the effective configuration: the --config flag,
// then persona.yaml in the working directory, then the zero-config
// defaults driven by environment variables.
func loadConfig(cli *CLI) (*config.Config, error) {
	path := cli.Config
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path == "" {
		if err := config.LoadEnvFiles(); err != nil {
			return nil, err
		}
		return config.Default(), nil
	}
	return config.Load(path)
}

// initLogging configures the process-wide slog default from CLI flags.
// Returns a cleanup function closing the log file, if any.
func initLogging(cli *CLI) (func(), error) {
	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		return nil, err
	}

	output := os.Stderr
	cleanup := func() {}
	if cli.LogFile != "" {
		file, closeFile, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			return nil, err
		}
		output = file
		cleanup = closeFile
	}

	logger.Init(level, output, cli.LogFormat)
	return cleanup, nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("persona"),
		kong.Description("open-persona - retrieval-augmented persona orchestration"),
		kong.UsageOnError(),
	)

	cleanup, err := initLogging(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
