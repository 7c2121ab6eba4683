// Package cli provides the command-line interface for replay-runner.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "host",
		Usage:   "Device agent host (from the port bridge)",
		Value:   "127.0.0.1",
		EnvVars: []string{"REPLAY_HOST"},
	},
	&cli.IntFlag{
		Name:    "port",
		Usage:   "Device agent port (from the port bridge)",
		Value:   8080,
		EnvVars: []string{"REPLAY_PORT"},
	},
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Directory containing config.yaml",
		Value:   ".",
		EnvVars: []string{"REPLAY_CONFIG_DIR"},
	},
	&cli.StringFlag{
		Name:    "log",
		Usage:   "Diagnostic log file path",
		EnvVars: []string{"REPLAY_LOG"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"REPLAY_VERBOSE"},
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "replay-runner",
		Usage:   "Replay recorded UI workflows against a live Android device",
		Version: Version,
		Description: `Replay Runner executes recorded workflow documents against the
replay agent running on a device, reachable through a port bridge.

Examples:
  replay-runner run workflow.json --host 127.0.0.1 --port 8080
  replay-runner validate workflow.json
  replay-runner ping --port 8080`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			runCommand,
			validateCommand,
			pingCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
