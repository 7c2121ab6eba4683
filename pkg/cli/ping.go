package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/replay-runner/pkg/device"
)

var pingCommand = &cli.Command{
	Name:   "ping",
	Usage:  "Probe the device agent for liveness",
	Action: pingAction,
}

func pingAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	client := device.NewClient(cfg.Host, cfg.Port)
	client.SetPingTimeout(cfg.PingTimeout())
	defer client.Close()

	if !client.Ping() {
		return cli.Exit(fmt.Sprintf("no answer from %s:%d", cfg.Host, cfg.Port), 1)
	}

	fmt.Printf("%s:%d is alive\n", cfg.Host, cfg.Port)
	return nil
}
