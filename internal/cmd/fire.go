package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

type cmdFire struct {
	root   *rootCommand
	query  queryFlags
	event  string
	params map[string]string
	noWait bool
}

func (c *cmdFire) run(_ *cobra.Command, _ []string) error {
	var params map[string]string
	if len(c.params) > 0 {
		params = c.params
	}
	return c.root.forEachTarget(&c.query, func(ctx context.Context, t target) error {
		el := t.element()
		if c.noWait {
			if err := el.FireEventNoWait(ctx, c.event, params); err != nil {
				return err
			}
			fprintf(c.root.gs.Stdout, "%s\t%s\tdispatched\n", t.endpoint, c.event)
			return nil
		}

		notCancelled, err := el.FireEvent(ctx, c.event, params)
		if err != nil {
			return err
		}
		fprintf(c.root.gs.Stdout, "%s\t%s\t%t\n", t.endpoint, c.event, notCancelled)
		return nil
	})
}

func getCmdFire(root *rootCommand) *cobra.Command {
	c := &cmdFire{root: root}

	cmd := &cobra.Command{
		Use:   "fire",
		Short: "Fire an event on the first matching element",
		Long: `Fire an event on the first element matching the query and print
whether no listener cancelled it.`,
		Example: `
  webquery fire -e http://127.0.0.1:9222 --kind Button --text Buy --event click
  webquery fire -e http://127.0.0.1:9222 --attr id=q --event keydown --param key=Enter`[1:],
		Args: cobra.NoArgs,
		RunE: c.run,
	}
	cmd.Flags().AddFlagSet(c.query.flagSet())
	cmd.Flags().StringVar(&c.event, "event", "click", "event name, with or without the 'on' prefix")
	cmd.Flags().StringToStringVar(&c.params, "param", nil,
		"event initializer parameter name=value, the rest use their defaults")
	cmd.Flags().BoolVar(&c.noWait, "no-wait", false, "do not wait for the listeners to finish")
	return cmd
}
