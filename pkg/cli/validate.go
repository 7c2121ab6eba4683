package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/replay-runner/pkg/workflow"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Validate workflow documents without executing them",
	ArgsUsage: "<workflow file> [more files...]",
	Action:    validateAction,
}

func validateAction(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("expected at least one workflow file")
	}

	failures := 0
	for _, path := range c.Args().Slice() {
		wf, err := workflow.ParseFile(path)
		if err != nil {
			fmt.Printf("FAIL %s\n     %v\n", path, err)
			failures++
			continue
		}
		fmt.Printf("OK   %s (%q, %d steps)\n", path, wf.Name, len(wf.Steps))
	}

	if failures > 0 {
		return cli.Exit(fmt.Sprintf("%d document(s) failed validation", failures), 1)
	}
	return nil
}
