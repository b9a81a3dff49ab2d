package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/deusflow/newsdesk/internal/app"
	"github.com/deusflow/newsdesk/internal/config"
	"github.com/deusflow/newsdesk/internal/feeds"
	"github.com/deusflow/newsdesk/internal/metrics"
	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/ratelimit"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

const envPrefix = "NEWSDESK"

type cli struct {
	engine  *app.Engine
	catalog *feeds.Catalog
	metrics *metrics.Metrics
	limiter *ratelimit.HostLimiter
	cfg     *config.Config
	log     *slog.Logger
	out     io.Writer
}

func newRootCommand(c *cli) *ffcli.Command {
	rootFlags := flag.NewFlagSet("newsdesk", flag.ContinueOnError)

	root := &ffcli.Command{
		Name:       "newsdesk",
		ShortUsage: "newsdesk <subcommand> [flags]",
		ShortHelp:  "Aggregate, cache and search regional news feeds.",
		FlagSet:    rootFlags,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Subcommands: []*ffcli.Command{
			c.listCommand(),
			c.getCommand(),
			c.searchCommand(),
			c.sourcesCommand(),
			c.regionsCommand(),
			c.serveCommand(),
		},
	}
	root.Exec = func(context.Context, []string) error {
		fmt.Fprintln(c.out, ffcli.DefaultUsageFunc(root))
		return nil
	}
	return root
}

// scopeFlags registers -region and -category on fs.
func scopeFlags(fs *flag.FlagSet, defRegion, defCategory string) (region, category *string) {
	region = fs.String("region", defRegion, "region code (US, UK, DE, ...)")
	category = fs.String("category", defCategory, "category (Top, World, Technology, ...)")
	return region, category
}

func parseScope(region, category string) (news.Region, news.Category, error) {
	r, err := news.ParseRegion(region)
	if err != nil {
		return "", "", err
	}
	c, err := news.ParseCategory(category)
	if err != nil {
		return "", "", err
	}
	return r, c, nil
}

func (c *cli) listCommand() *ffcli.Command {
	fs := flag.NewFlagSet("newsdesk list", flag.ContinueOnError)
	region, category := scopeFlags(fs, "US", "Top")
	limit := fs.Int("limit", 0, "show at most this many items (0 = all)")
	asJSON := fs.Bool("json", false, "print JSON")

	return &ffcli.Command{
		Name:       "list",
		ShortUsage: "newsdesk list [-region US] [-category Top]",
		ShortHelp:  "List the merged feed of a region and category.",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(ctx context.Context, _ []string) error {
			r, cat, err := parseScope(*region, *category)
			if err != nil {
				return err
			}

			res := c.engine.ListNewsResult(ctx, r, cat)
			if res.Degraded() {
				c.log.Warn("no source answered", "region", r, "category", cat)
			}
			items := res.Items
			if *limit > 0 && len(items) > *limit {
				items = items[:*limit]
			}
			return c.printItems(items, *asJSON)
		},
	}
}

func (c *cli) getCommand() *ffcli.Command {
	fs := flag.NewFlagSet("newsdesk get", flag.ContinueOnError)
	region, category := scopeFlags(fs, "", "")

	return &ffcli.Command{
		Name:       "get",
		ShortUsage: "newsdesk get [-region US] [-category Top] <id>",
		ShortHelp:  "Look up one article by id.",
		LongHelp: "Without -region only the cache is consulted. With -region the region's\n" +
			"feeds are fetched as needed.",
		FlagSet: fs,
		Options: []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errors.New("get takes exactly one article id")
			}

			var l app.Lookup
			l.ID = strings.TrimSpace(args[0])
			if *region != "" {
				r, err := news.ParseRegion(*region)
				if err != nil {
					return err
				}
				l.Region = r
			}
			if *category != "" {
				cat, err := news.ParseCategory(*category)
				if err != nil {
					return err
				}
				l.Category = cat
			}

			it, ok := c.engine.GetArticle(ctx, l)
			if !ok {
				return fmt.Errorf("article %q not found", l.ID)
			}
			return c.printJSON(it)
		},
	}
}

func (c *cli) searchCommand() *ffcli.Command {
	fs := flag.NewFlagSet("newsdesk search", flag.ContinueOnError)
	region := fs.String("region", "US", "region code")
	asJSON := fs.Bool("json", false, "print JSON")

	return &ffcli.Command{
		Name:       "search",
		ShortUsage: "newsdesk search [-region US] <query...>",
		ShortHelp:  "Search recently seen items of a region.",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(ctx context.Context, args []string) error {
			r, err := news.ParseRegion(*region)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			if strings.TrimSpace(query) == "" {
				return errors.New("search needs a query")
			}
			return c.printItems(c.engine.Search(ctx, query, r), *asJSON)
		},
	}
}

func (c *cli) sourcesCommand() *ffcli.Command {
	fs := flag.NewFlagSet("newsdesk sources", flag.ContinueOnError)
	region, category := scopeFlags(fs, "US", "Top")

	return &ffcli.Command{
		Name:       "sources",
		ShortUsage: "newsdesk sources [-region US] [-category Top]",
		ShortHelp:  "Print the feed URLs fetched for a region and category.",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(_ context.Context, _ []string) error {
			r, cat, err := parseScope(*region, *category)
			if err != nil {
				return err
			}
			for _, u := range c.catalog.SourcesFor(r, cat) {
				fmt.Fprintln(c.out, u)
			}
			return nil
		},
	}
}

func (c *cli) regionsCommand() *ffcli.Command {
	fs := flag.NewFlagSet("newsdesk regions", flag.ContinueOnError)

	return &ffcli.Command{
		Name:       "regions",
		ShortUsage: "newsdesk regions",
		ShortHelp:  "List supported regions and categories.",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(_ context.Context, _ []string) error {
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			for _, r := range news.Regions() {
				fmt.Fprintf(tw, "%s\t%s\n", r, r.Name())
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			labels := make([]string, 0, len(news.Categories()))
			for _, cat := range news.Categories() {
				labels = append(labels, fmt.Sprintf("%s (%s)", cat, cat.Label()))
			}
			_, err := fmt.Fprintf(c.out, "\ncategories: %s\n", strings.Join(labels, ", "))
			return err
		},
	}
}

func (c *cli) serveCommand() *ffcli.Command {
	fs := flag.NewFlagSet("newsdesk serve", flag.ContinueOnError)
	port := fs.String("port", c.cfg.MonitoringPort, "monitoring port")
	warm := fs.String("warm", "", "comma separated regions whose home categories are kept fresh")
	interval := fs.Duration("interval", c.cfg.FeedTTL, "refresh interval for -warm regions")

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "newsdesk serve [-port 8080] [-warm US,UK]",
		ShortHelp:  "Serve /health and /metrics, optionally keeping regions warm.",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Exec: func(ctx context.Context, _ []string) error {
			regions, err := parseRegions(*warm)
			if err != nil {
				return err
			}
			if len(regions) > 0 {
				go c.keepWarm(ctx, regions, *interval)
			}
			return runMonitoringServer(ctx, ":"+*port, c.metrics, c.engine.Store(), c.limiter, c.log)
		},
	}
}

func parseRegions(list string) ([]news.Region, error) {
	var out []news.Region
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := news.ParseRegion(part)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *cli) keepWarm(ctx context.Context, regions []news.Region, interval time.Duration) {
	if interval <= 0 {
		interval = c.cfg.FeedTTL
	}

	refresh := func() {
		for _, r := range regions {
			for _, cat := range news.HomeCategories {
				c.engine.ListNews(ctx, r, cat)
			}
		}
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

func (c *cli) printItems(items []news.Item, asJSON bool) error {
	if asJSON {
		return c.printJSON(items)
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			it.ID, it.PublishedAt.Local().Format("2006-01-02 15:04"), it.SourceName, it.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.out, "%d items\n", len(items))
	return err
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
