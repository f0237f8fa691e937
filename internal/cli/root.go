// Package cli implements the Cobra command-line interface for safegate.
package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/safegate/safegate/internal/config"
	"github.com/safegate/safegate/internal/output"
	"github.com/safegate/safegate/internal/policy"
	"github.com/safegate/safegate/internal/utils"
)

// Version information set by goreleaser
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flag values
var (
	flagConfig  string
	flagOutput  string
	flagJSON    bool
	flagVerbose bool
	flagProject string
)

var logger = utils.InitDefaultLogger()

var rootCmd = &cobra.Command{
	Use:   "safegate",
	Short: "Deny-by-default safety gate for agent actions",
	Long: `safegate renders an authorization decision for a proposed agent action
before that action is permitted to execute.

Each action is an operation name plus a target (file path or command line).
Actions are classified into risk levels:
  NONE       - Read-only operations, always allowed
  MEDIUM     - Ordinary writes and command execution, allowed
  HIGH       - Unrecognized actions, denied by default
  CRITICAL   - Destructive or sensitive-file actions; scoped deletions are
               allowed with a caution, unbounded ones are blocked

Anything safegate does not affirmatively recognize is denied.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagVerbose {
			logger.SetLevel(log.DebugLevel)
		}
		if flagProject == "" {
			return nil
		}
		if err := os.Chdir(flagProject); err != nil {
			return fmt.Errorf("changing directory to %s: %w", flagProject, err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		userPath, projectPath := config.ConfigPaths(flagProject, flagConfig)

		payload := map[string]any{
			"version":             version,
			"commit":              commit,
			"build_date":          date,
			"go_version":          runtime.Version(),
			"user_config_path":    userPath,
			"project_config_path": projectPath,
		}

		out, err := newWriter(cfg, cmd)
		if err != nil {
			return err
		}
		return out.Write(payload)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads configuration honoring the global flags.
func loadConfig() (config.Config, error) {
	return config.Load(config.LoadOptions{
		ProjectDir: flagProject,
		ConfigFile: flagConfig,
	})
}

// resolveFormat returns the effective output format.
// Precedence: CLI flags > SAFEGATE_OUTPUT_FORMAT env > config files > default
// (env and files are resolved inside config.Load).
func resolveFormat(cfg config.Config) (output.Format, error) {
	format := cfg.Output.Format
	if flagJSON {
		format = "json"
	} else if flagOutput != "" {
		format = flagOutput
	}
	f := output.Format(format)
	if !f.Valid() {
		return "", fmt.Errorf("unsupported format: %s", format)
	}
	return f, nil
}

// newWriter builds an output writer bound to the command's streams so
// tests can capture output through cobra.
func newWriter(cfg config.Config, cmd *cobra.Command) (*output.Writer, error) {
	f, err := resolveFormat(cfg)
	if err != nil {
		return nil, err
	}
	return output.New(f,
		output.WithOutput(cmd.OutOrStdout()),
		output.WithErrorOutput(cmd.ErrOrStderr()),
	), nil
}

// newEngine builds the decision engine with config extensions applied.
func newEngine(cfg config.Config) (*policy.Engine, error) {
	lib, err := policy.NewLibraryWithExtensions(cfg.Extensions())
	if err != nil {
		return nil, err
	}
	return policy.NewEngine(lib, policy.WithLogger(logger)), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "output format: text, json, yaml (env: SAFEGATE_OUTPUT_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "shorthand for --output=json")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "C", "", "project directory")

	rootCmd.AddCommand(versionCmd)
}
