package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/grafana/webquery/common"
)

type cmdFind struct {
	root  *rootCommand
	query queryFlags
	limit int
}

func (c *cmdFind) run(_ *cobra.Command, _ []string) error {
	return c.root.forEachTarget(&c.query, func(ctx context.Context, t target) error {
		if c.query.wait > 0 {
			err := t.element().WaitUntilExists(ctx, c.query.wait)
			var tErr *common.TimeoutError
			if err != nil && !errors.As(err, &tErr) {
				return err
			}
		}

		finder := t.finder()
		found := 0
		for native, err := range finder.Find(ctx) {
			if err != nil {
				return err
			}
			el := t.page.WrapElement(native)
			tagName, err := el.TagName(ctx)
			if err != nil {
				return err
			}
			id, err := el.ID(ctx)
			if err != nil {
				return err
			}
			text, err := el.Text(ctx)
			if err != nil {
				return err
			}
			fprintf(c.root.gs.Stdout, "%s\t%s\t%s\t%s\n", t.endpoint, tagName, id, collapseSpace(text))

			found++
			if c.limit > 0 && found >= c.limit {
				break
			}
		}
		if found == 0 {
			return finder.NotFoundError()
		}
		return nil
	})
}

func getCmdFind(root *rootCommand) *cobra.Command {
	c := &cmdFind{root: root}

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Print the elements matching a query",
		Long: `Print the elements matching a query, one per line, as
endpoint, tag name, id and inner text separated by tabs.`,
		Example: `
  # Rows of the first table whose second cell is "Total"
  webquery find -e http://127.0.0.1:9222 --kind TableRow --row Total:1

  # Submit buttons in two browsers at once
  webquery find -e http://10.0.0.1:9222 -e http://10.0.0.2:9222 --tag input:submit`[1:],
		Args: cobra.NoArgs,
		RunE: c.run,
	}
	cmd.Flags().AddFlagSet(c.query.flagSet())
	cmd.Flags().IntVar(&c.limit, "limit", 0, "stop after this many matches per endpoint, 0 prints all")
	return cmd
}
