package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/grafana/webquery/chromium"
	"github.com/grafana/webquery/common"
	"github.com/grafana/webquery/errext"
	"github.com/grafana/webquery/errext/exitcodes"
	"github.com/grafana/webquery/native"
	"github.com/grafana/webquery/remote"
)

const defaultLaunchTimeout = 30 * time.Second

// queryFlags select the browsers to talk to and the elements to look for.
// They are shared by every command that acts on elements.
type queryFlags struct {
	endpoints     []string
	htmlFiles     []string
	launch        bool
	launchTimeout time.Duration

	kind  string
	tags  []string
	attrs []string
	text  string
	row   string
	wait  time.Duration
}

func (q *queryFlags) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringArrayVarP(&q.endpoints, "endpoint", "e", nil,
		"browser debugger endpoint, either http://host:port or a ws:// page URL (repeatable)")
	flags.StringArrayVar(&q.htmlFiles, "html", nil, "query a local HTML file in process instead of a browser (repeatable)")
	flags.BoolVar(&q.launch, "launch", false, "start a local headless browser and query it too")
	flags.DurationVar(&q.launchTimeout, "launch-timeout", defaultLaunchTimeout,
		"how long to wait for a launched browser to listen")
	flags.StringVarP(&q.kind, "kind", "k", "", "element kind, e.g. Button, TableRow, Link")
	flags.StringArrayVarP(&q.tags, "tag", "t", nil, "tag name, optionally with input types, e.g. 'input:text,password'")
	flags.StringArrayVarP(&q.attrs, "attr", "a", nil, "attribute constraint name=value (repeatable)")
	flags.StringVar(&q.text, "text", "", "exact inner text of the element")
	flags.StringVar(&q.row, "row", "", "table row whose cell at the given column has the text, as 'text:column'")
	flags.DurationVarP(&q.wait, "wait", "w", 0, "wait up to this long for the element to show up")
	return flags
}

// elementTags resolves the tags to search from --kind or --tag, matching
// any tag when neither is set.
func (q *queryFlags) elementTags() ([]common.ElementTag, error) {
	switch {
	case q.kind != "" && len(q.tags) > 0:
		return nil, errors.New("--kind and --tag are mutually exclusive")
	case q.kind != "":
		kind, err := common.ParseElementKind(q.kind)
		if err != nil {
			return nil, err
		}
		return common.TagsFor(kind), nil
	case len(q.tags) > 0:
		return common.ParseElementTags(q.tags...), nil
	default:
		return common.ParseElementTags("*"), nil
	}
}

// constraint combines every constraint flag with a logical and. Without
// any of them every element matches.
func (q *queryFlags) constraint() (common.Constraint, error) {
	var cs []common.Constraint
	for _, a := range q.attrs {
		c, err := common.ParseAttributeConstraint(a)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	if q.text != "" {
		cs = append(cs, common.ByText(q.text))
	}
	if q.row != "" {
		i := strings.LastIndex(q.row, ":")
		if i < 0 {
			return nil, fmt.Errorf("invalid row constraint %q, expected text:column", q.row)
		}
		column, err := strconv.Atoi(q.row[i+1:])
		if err != nil || column < 0 {
			return nil, fmt.Errorf("invalid column in row constraint %q", q.row)
		}
		cs = append(cs, common.ByRowText(q.row[:i], column))
	}

	switch len(cs) {
	case 0:
		return common.Any(), nil
	case 1:
		return cs[0], nil
	default:
		return common.And(cs[0], cs[1], cs[2:]...), nil
	}
}

// target is what a command acts on in one browser.
type target struct {
	endpoint string
	page     *common.Page
	tags     []common.ElementTag
	c        common.Constraint
}

func (t target) element() *common.Element {
	return t.page.ElementWithTags(t.tags, t.c)
}

func (t target) finder() *common.ElementFinder {
	return t.page.Finder(t.tags, t.c)
}

// forEachTarget connects to every endpoint, and parses every HTML file,
// concurrently and calls fn with a page on each one. The first failure
// cancels the others.
func (c *rootCommand) forEachTarget(q *queryFlags, fn func(ctx context.Context, t target) error) error {
	tags, err := q.elementTags()
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	constraint, err := q.constraint()
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	settings, err := c.settings()
	if err != nil {
		return err
	}

	endpoints := q.endpoints
	if q.launch {
		p, err := chromium.NewLauncher().Launch(c.gs.Ctx, q.launchTimeout)
		if err != nil {
			err = errext.WithHint(fmt.Errorf("launching browser: %w", err),
				"install Chromium or Chrome, or connect to a running browser with --endpoint")
			return errext.WithExitCodeIfNone(err, exitcodes.ConnectionFailed)
		}
		defer p.Close()
		c.logger.Debugf("cmd", "launched browser at %s", p.Endpoint)
		endpoints = append(endpoints, p.Endpoint)
	}
	if len(endpoints) == 0 && len(q.htmlFiles) == 0 {
		err := errext.WithHint(errors.New("no --endpoint or --html given and --launch not set"),
			"pass a browser debugger URL with --endpoint, an HTML file with --html, or --launch")
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	dial := c.gs.Dial(c.logger)
	g, ctx := errgroup.WithContext(c.gs.Ctx)
	for _, path := range q.htmlFiles {
		g.Go(func() error {
			data, err := afero.ReadFile(c.gs.FS, path)
			if err != nil {
				return errext.WithExitCodeIfNone(fmt.Errorf("reading %s: %w", path, err), exitcodes.InvalidConfig)
			}
			doc, err := native.NewDocument(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}
			page := doc.Page(settings, c.logger, c.tracer)
			return fn(ctx, target{endpoint: path, page: page, tags: tags, c: constraint})
		})
	}
	for _, endpoint := range endpoints {
		g.Go(func() error {
			port, err := remote.Connect(ctx, endpoint, dial, c.logger, c.tracer)
			if err != nil {
				return err
			}
			defer func() {
				if err := port.Close(); err != nil {
					c.logger.Debugf("cmd", "closing %s: %v", endpoint, err)
				}
			}()

			page := remote.NewDocument(port).Page(settings, c.logger, c.tracer)
			if err := page.WaitForComplete(ctx); err != nil {
				return fmt.Errorf("%s: %w", endpoint, err)
			}
			return fn(ctx, target{endpoint: endpoint, page: page, tags: tags, c: constraint})
		})
	}
	return g.Wait()
}
