package cmd

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/grafana/webquery/common"
	"github.com/grafana/webquery/errext"
	"github.com/grafana/webquery/errext/exitcodes"
)

type cmdExists struct {
	root  *rootCommand
	query queryFlags
}

func (c *cmdExists) run(_ *cobra.Command, _ []string) error {
	var missing atomic.Int64
	err := c.root.forEachTarget(&c.query, func(ctx context.Context, t target) error {
		exists, err := c.exists(ctx, t.element())
		if err != nil {
			return err
		}
		if !exists {
			missing.Add(1)
		}
		fprintf(c.root.gs.Stdout, "%s\t%t\n", t.endpoint, exists)
		return nil
	})
	if err != nil {
		return err
	}
	if missing.Load() > 0 {
		return errext.WithExitCodeIfNone(errAlreadyReported, exitcodes.ElementMissing)
	}
	return nil
}

func (c *cmdExists) exists(ctx context.Context, el *common.Element) (bool, error) {
	if c.query.wait <= 0 {
		return el.Exists(ctx)
	}
	err := el.WaitUntilExists(ctx, c.query.wait)
	var tErr *common.TimeoutError
	if errors.As(err, &tErr) {
		return false, nil
	}
	return err == nil, err
}

func getCmdExists(root *rootCommand) *cobra.Command {
	c := &cmdExists{root: root}

	cmd := &cobra.Command{
		Use:   "exists",
		Short: "Check whether an element is rendered",
		Long: `Check whether an element matching the query is rendered in every
endpoint. Exits with 0 when it is and with 1 when it is missing anywhere.`,
		Example: `
  webquery exists -e http://127.0.0.1:9222 --attr id=checkout --wait 5s`[1:],
		Args: cobra.NoArgs,
		RunE: c.run,
	}
	cmd.Flags().AddFlagSet(c.query.flagSet())
	return cmd
}
