// CLAUDE:SUMMARY CLI entry point for vidharvest: one-shot single/module/rise harvests, HTTP API, or MCP over stdio.
// Command vidharvest harvests YouTube links from LMS course content.
//
// Usage:
//
//	vidharvest -url https://lms.example.edu/d2l/le/content/1/viewContent/2/View
//	vidharvest -links https://lms/.../Home,https://lms/.../Home
//	vidharvest -serve                  # HTTP API on $PORT (default 3000)
//	vidharvest -mcp                    # MCP tools over stdio
//
// Sign-in credentials come from VIDHARVEST_EMAIL and VIDHARVEST_PASSWORD,
// optionally loaded from a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/vidharvest/harvest"
	"github.com/hazyhaar/vidharvest/harvest/outcome"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to vidharvest.yaml config file")
	singleURL := flag.String("url", "", "harvest one content page and the pages after it")
	links := flag.String("links", "", "comma-separated course module addresses to harvest in one session")
	serve := flag.Bool("serve", false, "serve the HTTP API")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools over stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	_ = godotenv.Load()

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

	opts := options{
		configPath: *configPath,
		singleURL:  *singleURL,
		links:      *links,
		serve:      *serve,
		mcp:        *mcpMode,
	}
	if err := run(ctx, logger, opts); err != nil {
		logger.Error("vidharvest: fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	singleURL  string
	links      string
	serve      bool
	mcp        bool
}

var errUsage = errors.New("usage: vidharvest [-config file] -url <addr> | -links <a,b> | -serve | -mcp")

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg := harvest.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = harvest.LoadConfigFile(o.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	// Stdout carries the MCP protocol in -mcp mode.
	var stdout io.Writer = os.Stdout
	if o.mcp {
		stdout = os.Stderr
	}

	hopts := []harvest.Option{harvest.WithSinks(harvest.SinksFromConfig(cfg, stdout, logger)...)}
	if cfg.Store.Path != "" {
		st, err := harvest.OpenStore(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		hopts = append(hopts, harvest.WithStore(st))
	}
	h := harvest.New(cfg, logger, hopts...)
	defer h.Close()

	switch {
	case o.serve:
		return serveHTTP(ctx, logger, cfg, h)
	case o.mcp:
		return serveMCP(ctx, h)
	case o.singleURL != "":
		return report(stdout, h.RunSingleContentScrape(ctx, envCredentials(), o.singleURL))
	case o.links != "":
		return report(stdout, h.RunModuleScrape(ctx, envCredentials(), splitList(o.links)))
	}
	return errUsage
}

func serveMCP(ctx context.Context, h *harvest.Harvester) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "vidharvest", Version: version}, nil)
	h.RegisterMCP(srv, envCredentials)
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

// report prints the outcome and turns a failed run into an error.
func report(w io.Writer, out outcome.RunOutcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !out.OK() {
		return fmt.Errorf("run %s failed: %s: %s", out.ID, out.Reason, out.Detail)
	}
	return nil
}

func envCredentials() *harvest.Credentials {
	email := os.Getenv("VIDHARVEST_EMAIL")
	password := os.Getenv("VIDHARVEST_PASSWORD")
	if email == "" && password == "" {
		return nil
	}
	return &harvest.Credentials{Email: email, Password: password}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
