// Command recolte captures report, diff and log sections from an open
// coding-agent task page and exports them to local files.
//
// Usage:
//
//	recolte                                  # export the visible turn, json
//	recolte -sections report,diffs,logs -all-turns -all-versions -format md
//	recolte -launch -url https://host/tasks/task_42
//	recolte -serve :8542 -auth-user admin -auth-hash '$2a$...'
//	recolte -mcp                             # expose the tools over stdio
//
// By default recolte attaches to the user's own Chrome on the DevTools
// port, so the task page keeps its login session.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/recolte/browser"
	"github.com/hazyhaar/recolte/capture"
	"github.com/hazyhaar/recolte/export"
	"github.com/hazyhaar/recolte/journal"
	"github.com/hazyhaar/recolte/sink"
	"github.com/hazyhaar/recolte/turns"
)

type options struct {
	attachURL   string
	launch      bool
	headless    bool
	pageURL     string
	sections    string
	format      string
	allTurns    bool
	allVersions bool
	settings    string
	journalPath string
	journalKeep int
	noJournal   bool
	turnsAPI    string
	turnsToken  string
	serveAddr   string
	authUser    string
	authHash    string
	mcpMode     bool
}

func main() {
	var o options
	flag.StringVar(&o.attachURL, "attach", "http://127.0.0.1:9222", "DevTools URL of a running Chrome")
	flag.BoolVar(&o.launch, "launch", false, "launch a Chrome instead of attaching")
	flag.BoolVar(&o.headless, "headless", false, "run the launched Chrome headless")
	flag.StringVar(&o.pageURL, "url", "", "task page URL (required with -launch, tab filter otherwise)")
	flag.StringVar(&o.sections, "sections", "", "comma-separated section keys: report,diffs,logs")
	flag.StringVar(&o.format, "format", "", "artifact format: json or md")
	flag.BoolVar(&o.allTurns, "all-turns", false, "sweep every turn instead of the one in view")
	flag.BoolVar(&o.allVersions, "all-versions", false, "visit every version of each turn")
	flag.StringVar(&o.settings, "settings", "", "path to settings.yaml")
	flag.StringVar(&o.journalPath, "journal", "", "path to the export journal db (default <export folder>/journal.db)")
	flag.IntVar(&o.journalKeep, "journal-keep", 0, "prune journal entries older than this many days (0 keeps everything)")
	flag.BoolVar(&o.noJournal, "no-journal", false, "disable the export journal")
	flag.StringVar(&o.turnsAPI, "turns-api", "", "backend base URL for turn metadata")
	flag.StringVar(&o.turnsToken, "turns-token", "", "bearer token for the turn metadata API")
	flag.StringVar(&o.serveAddr, "serve", "", "serve the HTTP API on this address instead of a one-shot export")
	flag.StringVar(&o.authUser, "auth-user", "", "basic auth user for serve mode (empty disables auth)")
	flag.StringVar(&o.authHash, "auth-hash", "", "bcrypt password hash for serve mode")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.BoolVar(&o.mcpMode, "mcp", false, "serve the MCP tools over stdio")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("recolte: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	if o.launch && o.pageURL == "" {
		return errors.New("-launch needs -url")
	}

	settings, err := sink.LoadSettings(o.settings)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	e, cleanup, err := buildExporter(ctx, logger, o, settings)
	if err != nil {
		return err
	}
	defer cleanup()

	switch {
	case o.serveAddr != "":
		return serveHTTP(ctx, logger, o, e)
	case o.mcpMode:
		return serveMCP(ctx, logger, e)
	default:
		return exportOnce(ctx, o, e)
	}
}

func buildExporter(ctx context.Context, logger *slog.Logger, o options, settings *sink.Settings) (*export.Exporter, func(), error) {
	cfg := browser.Config{Headless: o.headless, Logger: logger}
	if !o.launch {
		cfg.RemoteURL = o.attachURL
	}
	mgr := browser.NewManager(cfg)
	if _, err := mgr.Start(ctx); err != nil {
		return nil, nil, err
	}

	var tab *browser.Tab
	var err error
	if o.launch {
		tab, err = browser.OpenTab(ctx, mgr, o.pageURL)
	} else {
		match := o.pageURL
		if match == "" {
			match = "/tasks/"
		}
		tab, err = browser.AttachTab(ctx, mgr, match)
	}
	if err != nil {
		mgr.Close()
		return nil, nil, err
	}

	var resolver *turns.Resolver
	if o.turnsAPI != "" {
		resolver = turns.NewResolver(o.turnsAPI, o.turnsToken, logger)
	}
	session := capture.NewSession(tab, resolver, logger)
	files := sink.NewFileSink(settings.Root())

	var jr *journal.Journal
	if !o.noJournal {
		path := o.journalPath
		if path == "" {
			path = filepath.Join(settings.Root(), "journal.db")
		}
		jr, err = journal.Open(path)
		if err != nil {
			// The journal is bookkeeping; exports still work without it.
			logger.Warn("journal unavailable", "path", path, "error", err)
		}
		if jr != nil && o.journalKeep > 0 {
			keep := time.Duration(o.journalKeep) * 24 * time.Hour
			if n, err := jr.Prune(ctx, keep); err != nil {
				logger.Warn("journal prune failed", "error", err)
			} else if n > 0 {
				logger.Info("journal pruned", "removed", n)
			}
		}
	}

	cleanup := func() {
		if jr != nil {
			jr.Close()
		}
		if o.launch {
			tab.Close()
		}
		mgr.Close()
	}
	return export.New(session, files, jr, settings, logger), cleanup, nil
}

func exportOnce(ctx context.Context, o options, e *export.Exporter) error {
	req := export.Request{
		Format:      o.format,
		AllTurns:    o.allTurns,
		AllVersions: o.allVersions,
	}
	if o.sections != "" {
		for _, s := range strings.Split(o.sections, ",") {
			if s = strings.TrimSpace(s); s != "" {
				req.Sections = append(req.Sections, s)
			}
		}
	}

	res, err := e.Export(ctx, req)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	os.Stdout.Write([]byte("\n"))
	return nil
}

func serveHTTP(ctx context.Context, logger *slog.Logger, o options, e *export.Exporter) error {
	srv := &http.Server{
		Addr:              o.serveAddr,
		Handler:           e.Router(o.authUser, o.authHash),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("recolte: http api listening", "addr", o.serveAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func serveMCP(ctx context.Context, logger *slog.Logger, e *export.Exporter) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "recolte",
		Version: "1.0.0",
	}, nil)
	e.RegisterMCP(srv)

	logger.Info("recolte: mcp serving on stdio")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
