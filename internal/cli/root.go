// Package cli implements the descent command line tool.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/descent/internal/logging"
)

type rootOptions struct {
	logLevel  string
	logFormat string

	logger *logging.Logger
	zap    *zap.Logger
}

// NewRootCommand builds the command tree. Output goes to the command's
// configured writers so tests can capture it.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "descent",
		Short: "Unconstrained minimization by steepest descent",
		Long: `descent minimizes smooth objective functions with steepest descent and a
More–Thuente line search, and reports the best point found.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(opts.logFormat)
			if err != nil {
				return err
			}
			opts.logger = logging.New(parseLevel(opts.logLevel), cmd.ErrOrStderr()).WithFormat(format)
			opts.zap = logging.NewZapLogger(opts.logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newProblemsCommand())
	cmd.AddCommand(newDefaultsCommand())
	return cmd
}

func parseLevel(level string) logging.LogLevel {
	switch level {
	case "debug":
		return logging.DebugLevel
	case "info":
		return logging.InfoLevel
	case "error":
		return logging.ErrorLevel
	default:
		return logging.WarnLevel
	}
}

func parseFormat(format string) (logging.Format, error) {
	switch format {
	case "text":
		return logging.TextFormat, nil
	case "json":
		return logging.JSONFormat, nil
	default:
		return "", fmt.Errorf("--log-format must be text or json, got %q", format)
	}
}
