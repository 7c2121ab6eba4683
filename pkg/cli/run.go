package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/replay-runner/pkg/config"
	"github.com/devicelab-dev/replay-runner/pkg/core"
	"github.com/devicelab-dev/replay-runner/pkg/device"
	"github.com/devicelab-dev/replay-runner/pkg/executor"
	"github.com/devicelab-dev/replay-runner/pkg/logger"
	"github.com/devicelab-dev/replay-runner/pkg/workflow"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Replay a workflow document against a device",
	ArgsUsage: "<workflow file>",
	Action:    runAction,
}

func runAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one workflow file, got %d arguments", c.Args().Len())
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if cfg.LogPath != "" {
		if err := logger.Init(cfg.LogPath); err != nil {
			return err
		}
		defer logger.Close()
	}
	logger.SetVerbose(cfg.Verbose)

	wf, err := workflow.ParseFile(c.Args().First())
	if err != nil {
		return err
	}

	client := device.NewClient(cfg.Host, cfg.Port)
	client.SetTimeout(cfg.HTTPTimeout())
	client.SetPingTimeout(cfg.PingTimeout())

	engine := executor.NewWithTransport(client, executor.EngineConfig{
		ConnectAttempts:   cfg.ConnectAttempts,
		ConnectRetryDelay: cfg.ConnectRetryDelay(),
	})
	defer engine.Disconnect()

	engine.AddProgressCallback(printProgress)

	// Ctrl-C cancels at the next step boundary.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\ncancelling...")
		engine.Cancel()
	}()

	fmt.Printf("Connecting to %s:%d...\n", cfg.Host, cfg.Port)
	if err := engine.Connect(c.Context); err != nil {
		return cli.Exit(fmt.Sprintf("device not reachable: %v", err), 1)
	}

	fmt.Printf("Replaying %q (%d steps)\n", wf.Name, len(wf.Steps))
	progress, err := engine.ExecuteWorkflow(c.Context, wf)
	if err != nil {
		return cli.Exit(fmt.Sprintf("run failed: %v", err), 1)
	}

	fmt.Printf("\n%s: %d passed, %d failed (%.0f%%)\n",
		progress.Status, progress.SuccessCount(), progress.FailedCount(), progress.ProgressPercent())

	if progress.Status != core.StatusCompleted {
		return cli.Exit("", 1)
	}
	return nil
}

// printProgress renders one line per completed step, and the terminal status.
func printProgress(p *core.ReplayProgress) {
	if len(p.StepResults) == 0 {
		return
	}
	last := p.StepResults[len(p.StepResults)-1]

	mark := "PASS"
	switch last.Outcome {
	case core.OutcomeFailed:
		mark = "FAIL"
	case core.OutcomeSkipped:
		mark = "SKIP"
	}

	detail := ""
	if last.SelectorUsed != "" {
		detail = " via " + last.SelectorUsed
		if last.FallbackUsed {
			detail += " (fallback)"
		}
	}

	fmt.Printf("  [%d/%d] %s %s%s (%dms)\n",
		p.CompletedSteps, p.TotalSteps, mark, last.StepName, detail, last.DurationMs)
	if last.Outcome == core.OutcomeFailed && last.Error != "" {
		fmt.Printf("         %s\n", last.Error)
	}
}

// loadConfig merges config.yaml with command-line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadFromDir(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("host") || cfg.Host == "" {
		cfg.Host = c.String("host")
	}
	if c.IsSet("port") || cfg.Port == 0 {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("log") {
		cfg.LogPath = c.String("log")
	}
	if c.IsSet("verbose") {
		cfg.Verbose = c.Bool("verbose")
	}
	cfg.ApplyDefaults()

	return cfg, nil
}
