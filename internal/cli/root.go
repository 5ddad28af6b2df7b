// Package cli implements the tidewise command line tool.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tidewise/tidewise/internal/config"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	BuildTime string
}

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the tidewise command tree.
func NewRootCommand(info BuildInfo) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "tidewise",
		Short: "Rank outdoor activities against a day of conditions",
		Long: `tidewise scores activities such as swimming or kitesurfing against a day of
sun, tide, wind and weather data and prints the best time windows.`,
		SilenceUsage: true,
	}
	root.CompletionOptions.HiddenDefaultCmd = true

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a tidewise.yaml config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		newSuggestCommand(opts),
		newTokenCommand(opts),
		newVersionCommand(info),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute(info BuildInfo) {
	if err := NewRootCommand(info).Execute(); err != nil {
		os.Exit(1)
	}
}

// load reads configuration and builds a console logger on the command's
// error stream.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	logCfg := config.LogConfig{Level: "warn", Format: "console"}
	if o.verbose {
		logCfg.Level = "debug"
	}
	return cfg, logCfg.NewLogger(cmd.ErrOrStderr(), "tidewise-cli", ""), nil
}
