package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Fdondi/MindfulTab/internal/config"
	"github.com/Fdondi/MindfulTab/internal/errors"
	"github.com/Fdondi/MindfulTab/internal/journal"
	"github.com/Fdondi/MindfulTab/internal/karma"
	"github.com/Fdondi/MindfulTab/internal/session"
	"github.com/Fdondi/MindfulTab/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(d *daemon) *cli.App {
	app := &cli.App{
		Name:    "mindfultab",
		Usage:   "Mindful browsing companion",
		Version: Version,
		Commands: []*cli.Command{
			stateCmd(d),
			startCmd(d),
			resetCmd(d),
			forgiveCmd(d),
			optOutCmd(d),
			linksCmd(d),
			searchCmd(d),
			historyCmd(d),
			reflectionsCmd(d),
			serveCmd(d),
			mcpCmd(d),
			hostCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// stateCmd creates the state command.
func stateCmd(d *daemon) *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Show the active session, per-domain karma, and settings",
		Action: func(c *cli.Context) error {
			ctx := c.Context

			// Mirror the extension's status poll: checking state also
			// settles any session that expired while nothing was running.
			if _, err := d.sessions.FinishIfDue(ctx); err != nil {
				return outputError(err)
			}

			sess, err := d.sessions.Active(ctx)
			if err != nil {
				return outputError(err)
			}
			scores, err := d.ledger.All(ctx)
			if err != nil {
				return outputError(err)
			}
			visits, err := d.links.DomainVisits(ctx)
			if err != nil {
				return outputError(err)
			}
			settings, err := config.LoadSettings(ctx, d.store)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"session":       sess,
				"karmaByDomain": scores,
				"domainVisits":  visits,
				"settings":      settings,
			})
		},
	}
}

// startCmd creates the start command.
func startCmd(d *daemon) *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Start a timed focus session",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "minutes", Aliases: []string{"m"}, Value: 25, Usage: "Session length in minutes"},
			&cli.StringFlag{Name: "reason", Aliases: []string{"r"}, Usage: "Why this session is being started"},
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "URL the session is for"},
		},
		Action: func(c *cli.Context) error {
			sess, err := d.sessions.Start(c.Context, session.StartInput{
				DurationMinutes: c.Int("minutes"),
				Reason:          c.String("reason"),
				TabURL:          c.String("url"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"session": sess})
		},
	}
}

// resetCmd creates the reset command.
func resetCmd(d *daemon) *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Discard the active session",
		Action: func(c *cli.Context) error {
			if err := d.sessions.ResetForNewTab(c.Context); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"reset": true})
		},
	}
}

// forgiveCmd creates the forgive command.
func forgiveCmd(d *daemon) *cli.Command {
	return &cli.Command{
		Name:      "forgive",
		Usage:     "Recover one karma point for a domain",
		ArgsUsage: "<domain>",
		Action: func(c *cli.Context) error {
			domain := karma.Normalize(c.Args().First())
			if domain == "" {
				return outputError(errors.NewDomainRequired())
			}

			score, _, err := d.ledger.Recover(c.Context, domain, 1)
			if err != nil {
				return outputError(err)
			}
			err = d.journal.Append(c.Context, journal.Entry{Type: journal.TypeKarmaForgiven, Domain: domain})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"domain": domain, "score": score})
		},
	}
}

// optOutCmd creates the optout command.
func optOutCmd(d *daemon) *cli.Command {
	return &cli.Command{
		Name:      "optout",
		Usage:     "Exempt a domain from karma penalties and gating",
		ArgsUsage: "<domain>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "off", Usage: "Remove the exemption instead"},
		},
		Action: func(c *cli.Context) error {
			domain := karma.Normalize(c.Args().First())
			if domain == "" {
				return outputError(errors.NewDomainRequired())
			}

			optedOut := !c.Bool("off")
			if err := d.optOuts.Set(c.Context, domain, optedOut); err != nil {
				return outputError(err)
			}

			entryType := journal.TypeDomainOptOutDisabled
			if optedOut {
				entryType = journal.TypeDomainOptOutEnabled
			}
			if err := d.journal.Append(c.Context, journal.Entry{Type: entryType, Domain: domain}); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"domain": domain, "optedOut": optedOut})
		},
	}
}

// linksCmd creates the links command.
func linksCmd(d *daemon) *cli.Command {
	return &cli.Command{
		Name:  "links",
		Usage: "List visited links",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: config.HistoryModeBoth, Usage: "History mode filter"},
		},
		Action: func(c *cli.Context) error {
			linkSet, err := d.links.ByMode(c.Context, c.String("mode"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"links": linkSet})
		},
	}
}

// searchCmd creates the search command.
func searchCmd(d *daemon) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Rank visited links against a free-text query",
		ArgsUsage: "<query...>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: config.HistoryModeBoth, Usage: "History mode filter"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum results (default 8)"},
		},
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return outputError(errors.NewInvalidRequest("query is required"))
			}

			linkSet, err := d.links.ByMode(c.Context, c.String("mode"))
			if err != nil {
				return outputError(err)
			}
			results := d.engine.Suggest(c.Context, query, linkSet, c.Int("limit"))
			return outputJSON(map[string]any{"results": results})
		},
	}
}

// historyCmd creates the history command.
func historyCmd(d *daemon) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent session and gate activity, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 50, Usage: "Maximum entries"},
		},
		Action: func(c *cli.Context) error {
			entries, err := d.journal.Recent(c.Context, c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"entries": entries})
		},
	}
}

// reflectionsCmd creates the reflections command.
func reflectionsCmd(d *daemon) *cli.Command {
	return &cli.Command{
		Name:  "reflections",
		Usage: "Show recorded reflections, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 50, Usage: "Maximum entries"},
		},
		Action: func(c *cli.Context) error {
			reflections, err := d.journal.Reflections(c.Context, c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"reflections": reflections})
		},
	}
}

// serveCmd creates the serve command (local dashboard).
func serveCmd(d *daemon) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the local read-only dashboard",
		Action: func(_ *cli.Context) error {
			handlers := web.NewHandlers(d.store, d.sessions, d.ledger, d.optOuts,
				d.links, d.journal, d.engine, d.logger)
			srv, err := web.NewServer(handlers, d.cfg, Version, d.logger)
			if err != nil {
				return outputError(err)
			}
			return web.Run(srv, d.logger)
		},
	}
}

// mcpCmd creates the mcp command (stdio MCP server).
func mcpCmd(d *daemon) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve MCP tools over stdio",
		Action: func(_ *cli.Context) error {
			return d.runMCP()
		},
	}
}

// hostCmd creates the host command (native-messaging host).
func hostCmd(d *daemon) *cli.Command {
	return &cli.Command{
		Name:  "host",
		Usage: "Serve the native-messaging protocol over stdio",
		Action: func(c *cli.Context) error {
			return d.runHost(c.Context)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if mErr, ok := err.(*errors.MindfulError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", mErr.Code, mErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
