package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/gitjournal/internal"
	"github.com/starford/gitjournal/internal/apperr"
	"github.com/starford/gitjournal/internal/journal"
	"github.com/starford/gitjournal/internal/mcpserver"
	"github.com/starford/gitjournal/internal/models"
	"github.com/starford/gitjournal/internal/parser"
)

var version = "dev"

// Exit codes.
const (
	exitOK    = 0
	exitFatal = 1
	exitAbort = 2
)

var out = &printer{out: os.Stdout, err: os.Stderr}

// loadConfig reads the configuration, applies global flag overrides and
// installs the default logger.
func loadConfig(cmd *cli.Command) (*internal.Config, *slog.Logger, error) {
	cfg, path, err := internal.LoadConfig(cmd.String("config"), cmd.String("repo"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("log-level") {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
		if err := cfg.App.HTTP.Validate(); err != nil {
			return nil, nil, fmt.Errorf("port: %w", err)
		}
	}

	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)
	if path != "" {
		logger.Debug("config loaded", slog.String("path", path))
	}
	return cfg, logger, nil
}

// setup loads the configuration and wires the environment for the
// repository named by --repo.
func setup(ctx context.Context, cmd *cli.Command, opts ...internal.Option) (*internal.Env, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	opts = append([]internal.Option{
		internal.WithConfig(cfg),
		internal.WithRepoDir(cmd.String("repo")),
		internal.WithLogger(logger),
		internal.WithVersion(version),
	}, opts...)
	return internal.Open(ctx, opts...)
}

func ensureAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	op, err := env.Service.Ensure(ctx)
	if err != nil {
		return err
	}
	if op.Outcome == journal.OutcomeCreated {
		out.success("created %s", op.Location.File)
	} else {
		out.info("exists %s", op.Location.File)
	}
	return nil
}

func updateAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	entry := models.LogEntry{
		What:  cmd.String("what"),
		Why:   cmd.String("why"),
		Where: cmd.String("where"),
		Notes: cmd.String("notes"),
	}

	if cmd.Bool("dry-run") {
		op, err := env.Service.Preview(ctx, entry)
		if err != nil {
			return err
		}
		if !op.Location.Exists {
			out.info("%s does not exist yet; update would create it", op.Location.File)
		}
		out.diff(journal.Diff(op.Location.File, op.Previous, op.Content))
		return nil
	}

	op, err := env.Service.Update(ctx, entry)
	if err != nil {
		return err
	}
	switch op.Outcome {
	case journal.OutcomeCreated:
		out.success("created %s", op.Location.File)
	default:
		out.success("updated %s", op.Location.File)
	}
	return nil
}

func pathAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	_, loc, err := env.Service.Locate(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("relative") {
		out.plain(loc.File)
	} else {
		out.plain(loc.Abs)
	}
	if !loc.Exists {
		out.warn("journal does not exist yet; run `gitjournal ensure`")
	}
	return nil
}

func showAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	d, err := env.Service.Current(ctx)
	if err != nil {
		return err
	}

	name := cmd.String("section")
	if name == "" {
		out.plain(d.Content)
		return nil
	}
	k, ok := parser.ParseKind(name)
	if !ok {
		return fmt.Errorf("unknown section %q", name)
	}
	for _, sec := range d.Sections {
		if sec.Heading == k.Heading() {
			out.plain(sec.Body)
			return nil
		}
	}
	return fmt.Errorf("section %q: %w", k.Heading(), apperr.ErrNotFound)
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setup(ctx, cmd, internal.WithIndex())
	if err != nil {
		return err
	}
	defer env.Close()

	items, total, err := env.Service.List(ctx, int(cmd.Int("limit")), 0, cmd.String("sort"))
	if err != nil {
		return err
	}
	if total == 0 {
		out.info("no journals under %s", env.Journals.Locator().Dir())
		return nil
	}

	tw := tabwriter.NewWriter(out.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BRANCH\tCREATED\tLAST UPDATED\tENTRIES\tFOLDER")
	for _, m := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", m.Branch, m.Created, m.LastUpdated, m.Entries, m.Folder)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if total > len(items) {
		out.info("%d of %d journals shown", len(items), total)
	}
	return nil
}

func searchAction(ctx context.Context, cmd *cli.Command) error {
	query := cmd.Args().First()
	if query == "" {
		return errors.New("search: a query is required")
	}

	env, err := setup(ctx, cmd, internal.WithIndex())
	if err != nil {
		return err
	}
	defer env.Close()

	results, err := env.Service.Search(ctx, query, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if len(results) == 0 {
		out.info("no matches for %q", query)
		return nil
	}
	for _, r := range results {
		out.success("%s (%s)", r.Branch, r.Path)
		out.plain("  " + r.Snippet)
	}
	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx,
		internal.WithConfig(cfg),
		internal.WithRepoDir(cmd.String("repo")),
		internal.WithLogger(logger),
		internal.WithVersion(version),
	); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setup(ctx, cmd, internal.WithIndex())
	if err != nil {
		return err
	}
	defer env.Close()

	return mcpserver.New(env.Service, env.Version).ServeStdio()
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "gitjournal",
		Usage:   "Keep one Markdown journal per git branch",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: .gitjournal.yaml at the repository root, then the XDG config dir)",
				Sources: cli.EnvVars("GITJOURNAL_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "repo",
				Aliases: []string{"C"},
				Usage:   "Run as if started in this directory",
				Value:   ".",
				Sources: cli.EnvVars("GITJOURNAL_REPO"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override app.log_level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "ensure",
				Usage:  "Create the current branch's journal if it is missing",
				Action: ensureAction,
			},
			{
				Name:  "update",
				Usage: "Refresh Who/When and append an entry to the detailed log",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "what", Usage: "What changed (default: working-tree summary)"},
					&cli.StringFlag{Name: "why", Usage: "Why it changed"},
					&cli.StringFlag{Name: "where", Usage: "Files, modules or commands involved"},
					&cli.StringFlag{Name: "notes", Usage: "Anything else worth keeping"},
					&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "Print the change as a diff and write nothing"},
				},
				Action: updateAction,
			},
			{
				Name:  "path",
				Usage: "Print the path of the current branch's journal",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "relative", Usage: "Print the path relative to the repository root"},
				},
				Action: pathAction,
			},
			{
				Name:  "show",
				Usage: "Print the current branch's journal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "section", Usage: "Print only one section: why, what, where, who, when or log"},
				},
				Action: showAction,
			},
			{
				Name:  "list",
				Usage: "List the journals of all branches",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sort", Value: "last_updated", Usage: "last_updated, created or branch"},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "Maximum number of journals"},
				},
				Action: listAction,
			},
			{
				Name:      "search",
				Usage:     "Full-text search across journals",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum number of results"},
				},
				Action: searchAction,
			},
			{
				Name:  "serve",
				Usage: "Serve the REST API, the event stream, MCP over HTTP and the journal watcher",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Usage: "Override app.http.port"},
				},
				Action: serveAction,
			},
			{
				Name:   "mcp",
				Usage:  "Serve journal tools over MCP on stdio",
				Action: mcpAction,
			},
		},
	}
}

// exitCode maps an error to the process exit status: an update aborted
// because of a malformed journal is distinguished from fatal failures.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, apperr.ErrSchemaParse):
		return exitAbort
	default:
		return exitFatal
	}
}

func hint(err error) string {
	switch {
	case errors.Is(err, apperr.ErrSchemaParse):
		return "The journal was left untouched. Restore its section headings and run the command again."
	case errors.Is(err, apperr.ErrNoRepository):
		return "Run gitjournal inside a git working copy or pass --repo."
	case errors.Is(err, apperr.ErrNotFound):
		return "Run `gitjournal ensure` to create the journal."
	}
	return ""
}

func main() {
	err := newCommand().Run(context.Background(), os.Args)
	if err != nil {
		out.fail(err, hint(err))
	}
	os.Exit(exitCode(err))
}
