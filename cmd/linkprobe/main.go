package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"linkprobe/internal/config"
	"linkprobe/internal/inspect"
	"linkprobe/internal/logging"
	"linkprobe/internal/report"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

const usageHint = "Please provide the url of sitemap e.g. http://localhost:8080/sitemap.xml"

type CLIFlags struct {
	ConfigFile  string
	Concurrency int
	Timeout     time.Duration
	RPS         float64
	UserAgent   string
	Insecure    bool
	LogLevel    string
	LogJSON     bool
	JSONOut     string
	XLSXOut     string
	NoColor     bool
	Strict      bool

	SitemapURL string

	// names of flags given on the command line
	set map[string]bool
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			fmt.Fprintf(os.Stderr, "received %s, stopping\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if flags.SitemapURL == "" {
		fmt.Fprintln(stderr, usageHint)
		return exitUsage
	}

	red := color.New(color.FgRed)
	if flags.NoColor {
		red.DisableColor()
	}

	cfg, err := buildConfig(flags)
	if err != nil {
		red.Fprintln(stderr, err)
		return exitFailed
	}

	logger := logging.New(cfg.LogLevel, cfg.LogJSON, stderr)

	inspector, err := inspect.NewInspector(cfg, logger)
	if err != nil {
		red.Fprintln(stderr, err)
		return exitFailed
	}

	fmt.Fprintf(stdout, "Inspecting sitemap from %s...\n", flags.SitemapURL)

	rep, err := inspector.Inspect(ctx, flags.SitemapURL)
	if err != nil {
		red.Fprintln(stderr, err)
		return exitFailed
	}

	report.Print(stdout, rep, report.PrintOptions{NoColor: flags.NoColor})

	if err := writeExports(flags, rep, logger); err != nil {
		red.Fprintln(stderr, err)
		return exitFailed
	}

	return exitCode(rep, flags.Strict)
}

func parseFlags(args []string, output io.Writer) (*CLIFlags, error) {
	flags := &CLIFlags{set: make(map[string]bool)}
	defaults := config.DefaultConfig()

	fs := flag.NewFlagSet("linkprobe", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: linkprobe <sitemap-url> [flags]")
		fs.PrintDefaults()
	}

	fs.StringVar(&flags.ConfigFile, "config", "", "path to a TOML config file")
	fs.IntVar(&flags.Concurrency, "concurrency", defaults.Concurrency, "max simultaneous page fetches")
	fs.DurationVar(&flags.Timeout, "timeout", defaults.RequestTimeout, "per-request timeout")
	fs.Float64Var(&flags.RPS, "rps", defaults.RequestsPerSecond, "global request rate limit (0=unlimited)")
	fs.StringVar(&flags.UserAgent, "user-agent", defaults.UserAgent, "User-Agent header")
	fs.BoolVar(&flags.Insecure, "insecure", defaults.InsecureSkipVerify, "skip TLS certificate verification")
	fs.StringVar(&flags.LogLevel, "log-level", defaults.LogLevel, "log level (TRACE/DEBUG/INFO/WARN/ERROR)")
	fs.BoolVar(&flags.LogJSON, "log-json", defaults.LogJSON, "output logs as JSON")
	fs.StringVar(&flags.JSONOut, "json", "", "write the report as JSON to this file")
	fs.StringVar(&flags.XLSXOut, "xlsx", "", "write the report as an Excel workbook to this file")
	fs.BoolVar(&flags.NoColor, "no-color", false, "disable colored output")
	fs.BoolVar(&flags.Strict, "strict", false, "exit non-zero for broken links on other domains too")

	// the sitemap URL may come before, between or after flags; everything
	// after "--" is positional
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			positional = append(positional, rest...)
			break
		}
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
	if len(positional) > 1 {
		return nil, fmt.Errorf("expected one sitemap url, got %d: %v", len(positional), positional)
	}
	if len(positional) == 1 {
		flags.SitemapURL = positional[0]
	}

	fs.Visit(func(f *flag.Flag) { flags.set[f.Name] = true })
	return flags, nil
}

// buildConfig layers command line flags over the config file over defaults.
func buildConfig(flags *CLIFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flags.ConfigFile != "" {
		var err error
		if cfg, err = config.LoadFile(flags.ConfigFile); err != nil {
			return nil, err
		}
	}

	if flags.set["concurrency"] {
		cfg.Concurrency = flags.Concurrency
	}
	if flags.set["timeout"] {
		cfg.RequestTimeout = flags.Timeout
	}
	if flags.set["rps"] {
		cfg.RequestsPerSecond = flags.RPS
	}
	if flags.set["user-agent"] {
		cfg.UserAgent = flags.UserAgent
	}
	if flags.set["insecure"] {
		cfg.InsecureSkipVerify = flags.Insecure
	}
	if flags.set["log-level"] {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.set["log-json"] {
		cfg.LogJSON = flags.LogJSON
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func writeExports(flags *CLIFlags, rep *inspect.Report, logger *logrus.Logger) error {
	if flags.JSONOut != "" {
		if err := report.WriteJSON(flags.JSONOut, rep); err != nil {
			return err
		}
		logger.WithField("path", flags.JSONOut).Info("wrote json report")
	}
	if flags.XLSXOut != "" {
		if err := report.WriteXLSX(flags.XLSXOut, rep); err != nil {
			return err
		}
		logger.WithField("path", flags.XLSXOut).Info("wrote xlsx report")
	}
	return nil
}

func exitCode(rep *inspect.Report, strict bool) int {
	if len(rep.SameOrigin()) > 0 {
		return exitFailed
	}
	if strict && len(rep.BrokenLinks) > 0 {
		return exitFailed
	}
	return exitOK
}
