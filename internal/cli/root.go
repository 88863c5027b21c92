// internal/cli/root.go
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"iluma-intelligence/internal/common/config"
	apperrors "iluma-intelligence/internal/common/errors"
	"iluma-intelligence/internal/common/logger"
	"iluma-intelligence/internal/intelligence"
	"iluma-intelligence/internal/repository"
)

// Build metadata, set from cmd/bizintel via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const (
	OutputJSON = "json"
	OutputText = "text"
)

type RootOptions struct {
	ConfigPath   string
	InputPath    string
	LogLevel     string
	OutputFormat string
	Timeout      time.Duration
}

// CLIContext is built once per invocation and shared with subcommands.
type CLIContext struct {
	Engine       *intelligence.Engine
	Logger       logger.Logger
	InputPath    string
	OutputFormat string
	Timeout      time.Duration
}

type cliContextKey struct{}

// NewRootCommand builds the bizintel command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bizintel",
		Short: "Business intelligence over a file of business records",
		Long: `bizintel scores, matches, clusters and reports on business records
read from a JSON file (an array or one document per line).

Engine settings are taken from the intelligence section of --config when
given, otherwise the built-in defaults apply.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (reads the intelligence section)")
	pf.StringVarP(&opts.InputPath, "input", "i", "", "business records file, - for stdin")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputJSON, "output format (json|text)")
	pf.DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "operation timeout")

	cmd.AddCommand(
		NewScoreCmd(),
		NewMatchCmd(),
		NewFindMatchesCmd(),
		NewClusterCmd(),
		NewStatsCmd(),
		NewActivitiesCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	switch strings.ToLower(opts.OutputFormat) {
	case OutputJSON, OutputText:
	default:
		return apperrors.NewValidationError("output", fmt.Sprintf("unsupported output format %q", opts.OutputFormat))
	}
	if opts.InputPath == "" {
		return apperrors.NewValidationError("input", "--input is required")
	}

	engineCfg := intelligence.DefaultConfig()
	if opts.ConfigPath != "" {
		ic, err := config.LoadIntelligence(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("config initialization failed: %w", err)
		}
		if engineCfg, err = ic.EngineConfig(); err != nil {
			return fmt.Errorf("config initialization failed: %w", err)
		}
	}

	log := newLogger(cmd.ErrOrStderr(), opts.LogLevel)
	engine, err := intelligence.NewEngine(engineCfg, intelligence.WithLogger(log))
	if err != nil {
		return fmt.Errorf("engine initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Engine:       engine,
		Logger:       log,
		InputPath:    opts.InputPath,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Timeout:      opts.Timeout,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// newLogger writes console-encoded logs to w so stdout carries only results.
func newLogger(w io.Writer, level string) logger.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		logger.ParseLevel(level),
	)
	return logger.NewZapAdapter(zap.New(core))
}

// GetCLIContext extracts the CLIContext stored by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, apperrors.NewValidationError("context", "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, apperrors.NewValidationError("context", "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute runs the CLI with os.Args.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintError writes err to stderr.
func PrintError(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
}

// printResult writes data as indented JSON, or through text when the text
// format was requested.
func printResult(cmd *cobra.Command, cliCtx *CLIContext, data interface{}, text func(io.Writer) error) error {
	if cliCtx.OutputFormat == OutputText && text != nil {
		return text(cmd.OutOrStdout())
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// loadBatch reads, validates and scores the input records.
func loadBatch(ctx context.Context, cliCtx *CLIContext) (intelligence.BatchResult, []repository.RecordIssue, error) {
	var r io.Reader = os.Stdin
	if cliCtx.InputPath != "-" {
		f, err := os.Open(cliCtx.InputPath)
		if err != nil {
			return intelligence.BatchResult{}, nil, apperrors.NewProfileSourceFailedError("file", err)
		}
		defer f.Close()
		r = f
	}

	records, issues, err := repository.ReadRecords(r)
	if err != nil {
		return intelligence.BatchResult{}, nil, err
	}
	for _, issue := range issues {
		cliCtx.Logger.Warn("record skipped", map[string]interface{}{
			"index":  issue.Index,
			"id":     issue.ID,
			"errors": issue.Errors,
		})
	}

	batch, err := cliCtx.Engine.ScorePopulation(ctx, records, nil)
	if err != nil {
		return intelligence.BatchResult{}, issues, err
	}
	for _, report := range batch.Reports {
		if report.Rejected {
			cliCtx.Logger.Warn("record rejected", map[string]interface{}{"id": report.ID, "errors": report.Errors})
		}
	}
	return batch, issues, nil
}

// commandContext returns the CLIContext and a context bounded by --timeout.
func commandContext(cmd *cobra.Command) (*CLIContext, context.Context, context.CancelFunc, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	return cliCtx, ctx, cancel, nil
}
