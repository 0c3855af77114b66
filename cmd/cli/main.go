package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dvloznov/ledger/internal/api/handlers"
	"github.com/dvloznov/ledger/internal/app"
	"github.com/dvloznov/ledger/internal/config"
	"github.com/dvloznov/ledger/internal/domain"
	"github.com/dvloznov/ledger/internal/logger"
	"github.com/dvloznov/ledger/internal/pipeline"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"
)

// cli keeps command output on stdout and logs on stderr so json and csv
// output can be piped.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	opts   app.Options
}

func main() {
	c := &cli{stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(c.run(os.Args[1:]))
}

func (c *cli) run(args []string) int {
	if len(args) < 1 {
		c.printUsage()
		return 1
	}

	switch args[0] {
	case "help", "-h", "--help":
		c.printUsage()
		return 0
	case "analyze", "health":
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n\n", args[0])
		c.printUsage()
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(c.stderr, "Invalid configuration: %v\n", err)
		return 1
	}
	log := c.newLogger(cfg.LogLevel)

	if args[0] == "analyze" {
		return c.runAnalyze(cfg, log, args[1:])
	}
	return c.runHealth(cfg, log, args[1:])
}

func (c *cli) newLogger(level string) zerolog.Logger {
	return logger.NewWithWriter(zerolog.ConsoleWriter{
		Out:        c.stderr,
		TimeFormat: time.RFC3339,
	}).Level(logger.ParseLevel(level))
}

func (c *cli) printUsage() {
	fmt.Fprintln(c.stdout, "Ledger CLI")
	fmt.Fprintln(c.stdout, "\nUsage:")
	fmt.Fprintln(c.stdout, "  cli <command> [options]")
	fmt.Fprintln(c.stdout, "\nCommands:")
	fmt.Fprintln(c.stdout, "  analyze   Analyze a local bank statement PDF")
	fmt.Fprintln(c.stdout, "  health    Show the configuration the server would report")
	fmt.Fprintln(c.stdout, "  help      Show this help message")
	fmt.Fprintln(c.stdout, "\nRun 'cli <command> -h' for more information on a command.")
}

func (c *cli) runAnalyze(cfg config.Config, log zerolog.Logger, args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	filePath := fs.String("file", "", "Path to local PDF file")
	format := fs.String("format", "summary", "Output format: summary, json or csv")
	mock := fs.Bool("mock", false, "Use mock extraction and categorization")
	timeout := fs.Duration("timeout", 5*time.Minute, "Overall deadline for the analysis")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *filePath == "" {
		log.Error().Msg("Usage: cli analyze -file PATH [-format summary|json|csv] [-mock]")
		return 2
	}
	switch *format {
	case "summary", "json", "csv":
	default:
		log.Error().Str("format", *format).Msg("Unknown output format")
		return 2
	}

	pdf, err := os.ReadFile(*filePath)
	if err != nil {
		log.Error().Err(err).Str("file", *filePath).Msg("Failed to read file")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	opts := c.opts
	opts.ForceMock = opts.ForceMock || *mock
	application, err := app.New(ctx, cfg, log, opts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialise application")
		return 1
	}
	defer func() {
		if err := application.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to stop application")
		}
	}()

	log.Info().
		Str("file", *filePath).
		Str("size", humanize.Bytes(uint64(len(pdf)))).
		Bool("ai_enabled", application.AIEnabled()).
		Msg("Analyzing statement")

	result, err := application.Analyze(ctx, filepath.Base(*filePath), pdf)
	if err != nil {
		var perr *pipeline.Error
		if errors.As(err, &perr) {
			log.Error().Str("kind", string(perr.Kind)).Str("stage", string(perr.Stage)).Msg(perr.Message)
		} else {
			log.Error().Err(err).Msg("Analysis failed")
		}
		return 1
	}

	if err := writeResult(c.stdout, result, *format); err != nil {
		log.Error().Err(err).Msg("Failed to write output")
		return 1
	}
	return 0
}

func writeResult(w io.Writer, result domain.AnalysisResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "csv":
		return gocsv.Marshal(result.Transactions, w)
	default:
		printSummary(w, result)
		return nil
	}
}

func printSummary(w io.Writer, result domain.AnalysisResult) {
	if result.Period != "" {
		fmt.Fprintf(w, "Period: %s\n", result.Period)
	}
	fmt.Fprintf(w, "Transactions: %d\n\n", result.TransactionCount)

	fmt.Fprintln(w, "Spend by category:")
	for _, c := range result.Categories {
		fmt.Fprintf(w, "  %-28s ₹%12s  %5.1f%%  (%d)\n", c.Name, humanize.CommafWithDigits(c.Total, 2), c.PctOfSpend, c.Count)
	}

	if len(result.Subscriptions) > 0 {
		fmt.Fprintln(w, "\nSubscriptions:")
		for _, s := range result.Subscriptions {
			fmt.Fprintf(w, "  %s  %-28s ₹%s\n", s.Date, s.Description, humanize.CommafWithDigits(s.Amount, 2))
		}
	}

	ic := result.IdleCash
	fmt.Fprintln(w, "\nIdle cash:")
	fmt.Fprintf(w, "  Income:             ₹%s\n", humanize.CommafWithDigits(ic.TotalIncome, 2))
	fmt.Fprintf(w, "  Monthly burn:       ₹%s\n", humanize.CommafWithDigits(ic.MonthlyBurn, 2))
	fmt.Fprintf(w, "  Safety buffer:      ₹%s\n", humanize.CommafWithDigits(ic.SafetyBuffer, 2))
	fmt.Fprintf(w, "  Investable surplus: ₹%s\n", humanize.CommafWithDigits(ic.InvestableSurplus, 2))
	if ic.Recommendation != nil {
		fmt.Fprintf(w, "\n%s\n", *ic.Recommendation)
	}
}

func (c *cli) runHealth(cfg config.Config, log zerolog.Logger, args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(handlers.NewHealth(cfg.AIEnabled(), cfg.Gemini.Model, config.Version)); err != nil {
		log.Error().Err(err).Msg("Failed to encode health")
		return 1
	}
	return 0
}
