package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Fdondi/MindfulTab/internal/background"
	"github.com/Fdondi/MindfulTab/internal/config"
	"github.com/Fdondi/MindfulTab/internal/gate"
	"github.com/Fdondi/MindfulTab/internal/host"
	"github.com/Fdondi/MindfulTab/internal/journal"
	"github.com/Fdondi/MindfulTab/internal/karma"
	"github.com/Fdondi/MindfulTab/internal/links"
	"github.com/Fdondi/MindfulTab/internal/mcp"
	"github.com/Fdondi/MindfulTab/internal/msg"
	"github.com/Fdondi/MindfulTab/internal/search"
	"github.com/Fdondi/MindfulTab/internal/session"
	"github.com/Fdondi/MindfulTab/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"state": true, "start": true, "reset": true,
	"forgive": true, "optout": true,
	"links": true, "search": true, "history": true, "reflections": true,
	"serve": true, "mcp": true, "host": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs native-messaging host.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → native host
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → native host (browsers pass the extension origin as argv[1])
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   __  __ _         _  __      _ _____     _
  |  \/  (_)_ _  __| |/ _|_  _| |_   _|_ _| |__
  | |\/| | | ' \/ _' |  _| || | | | |/ _' | '_ \
  |_|  |_|_|_||_\__,_|_|  \_,_|_| |_|\__,_|_.__/

  Mindful browsing companion

  Usage: mindfultab <command> [options]
         mindfultab --help

  Native-messaging host mode requires piped input.`)
}

// daemon holds the wired component graph shared by every mode.
type daemon struct {
	store        *store.Store
	cfg          *config.Config
	logger       *zap.Logger
	tracker      *background.Tracker
	bridge       *msg.TabBridge
	historyCache *msg.HistoryCache
	ledger       *karma.Ledger
	optOuts      *karma.OptOuts
	links        *links.Set
	journal      *journal.Journal
	bypass       *gate.Bypass
	engine       *search.Engine
	alarms       *host.TimerAlarms
	sessions     *session.Manager
	watcher      *background.Watcher
}

// newDaemon wires all components. The tab bridge starts without an outbound
// writer; host mode attaches one once a connection exists.
func newDaemon(st *store.Store, cfg *config.Config, logger *zap.Logger) *daemon {
	d := &daemon{
		store:        st,
		cfg:          cfg,
		logger:       logger,
		tracker:      background.NewTracker(),
		historyCache: msg.NewHistoryCache(),
		ledger:       karma.NewLedger(st),
		optOuts:      karma.NewOptOuts(st),
		links:        links.NewSet(st),
		journal:      journal.New(st),
		bypass:       gate.NewBypass(),
		engine:       search.NewEngine(search.NewIndexer(st)),
	}

	d.bridge = msg.NewTabBridge(d.tracker, nil)
	d.alarms = host.NewTimerAlarms(d.onAlarm)
	d.sessions = session.NewManager(st, d.ledger, d.optOuts, d.journal,
		d.bridge, d.alarms, host.NewLogNotifier(logger), logger)
	d.watcher = background.NewWatcher(st, d.links, d.ledger, d.optOuts,
		d.sessions, d.journal, d.bypass, d.tracker,
		d.bridge, d.historyCache, gate.GatePagePath, logger)

	return d
}

// onAlarm runs on the timer goroutine when a scheduled wake-up fires.
func (d *daemon) onAlarm(name string) {
	if err := d.watcher.OnAlarm(context.Background(), name); err != nil {
		d.logger.Error("alarm handling failed", zap.String("alarm", name), zap.Error(err))
	}
}

// runHost serves the native-messaging protocol over stdin/stdout until EOF.
func (d *daemon) runHost(ctx context.Context) error {
	conn := msg.NewConn(os.Stdin, os.Stdout)
	d.bridge.SetPush(conn.Push)
	defer d.alarms.Stop()

	handlers := msg.NewHandlers(d.store, d.sessions, d.ledger, d.optOuts,
		d.links, d.journal, d.bypass, d.engine,
		d.watcher, d.bridge, d.historyCache, d.logger)
	router := msg.NewRouter(handlers, d.logger)

	return msg.Serve(ctx, conn, router, d.logger)
}

// runMCP serves MCP tools over stdio.
func (d *daemon) runMCP() error {
	handlers := mcp.NewHandlers(d.store, d.sessions, d.ledger, d.optOuts,
		d.links, d.journal, d.engine)
	return mcp.Run(handlers, d.cfg, Version)
}

// newLogger builds the process logger. Stdout belongs to the wire protocols
// in host and MCP mode, so logs always go to stderr.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".mindfultab")

	st, err := store.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.DBMaxOpenConns > 0 {
		st.DB().SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		st.DB().SetMaxIdleConns(cfg.DBMaxIdleConns)
	}

	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown disabled tools in config", zap.Strings("tools", unknown))
	}

	d := newDaemon(st, cfg, logger)

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(d)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start the host)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'mindfultab --help' for usage.\n")
		os.Exit(1)
	}

	// Native-messaging host mode (default when launched by the browser)
	if err := d.runHost(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
