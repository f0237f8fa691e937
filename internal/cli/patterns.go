package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/safegate/safegate/internal/output"
	"github.com/safegate/safegate/internal/policy"
)

var flagPatternsOutputFile string

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect the pattern library used for classification",
	Long: `Inspect the pattern groups safegate consults when classifying actions.

Built-in patterns are fixed in the binary. Config files can append to the
groups (making the gate stricter or teaching it new read-only verbs) but
can never remove a built-in pattern.`,
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all pattern groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		lib, err := policy.NewLibraryWithExtensions(cfg.Extensions())
		if err != nil {
			return err
		}

		export := lib.Export()
		f, err := resolveFormat(cfg)
		if err != nil {
			return err
		}
		if f == output.FormatText {
			for _, group := range []policy.Group{
				policy.GroupRead, policy.GroupWrite, policy.GroupExecute,
				policy.GroupDestructive, policy.GroupCriticalFile, policy.GroupRootScope,
			} {
				patterns := export.Groups[string(group)]
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d):\n", group, len(patterns))
				for _, p := range patterns {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", p)
				}
			}
			return nil
		}
		out, err := newWriter(cfg, cmd)
		if err != nil {
			return err
		}
		return out.Write(export)
	},
}

var patternsTestCmd = &cobra.Command{
	Use:   "test <target>",
	Short: "Show which pattern groups a target matches",
	Long: `Test a target string against every pattern group and report the matches.

This shows raw group matches only; it does not render a decision. Use
'safegate check' for the full classification.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		lib, err := policy.NewLibraryWithExtensions(cfg.Extensions())
		if err != nil {
			return err
		}

		target := policy.NormalizeTarget(args[0])

		resp := map[string]any{
			"target":            target,
			"destructive":       false,
			"critical_file":     false,
			"root_scope":        false,
			"trailing_wildcard": policy.HasTrailingWildcard(target),
		}
		if p := lib.MatchDestructive(target); p != nil {
			resp["destructive"] = true
			resp["destructive_pattern"] = p.Pattern
		}
		if s := lib.MatchCriticalFile(target); s != "" {
			resp["critical_file"] = true
			resp["critical_file_match"] = s
		}
		if p := lib.MatchRootScope(target); p != nil {
			resp["root_scope"] = true
			resp["root_scope_pattern"] = p.Pattern
		}
		if verb := policy.CommandVerb(target); verb != "" {
			resp["command_verb"] = verb
		}

		out, err := newWriter(cfg, cmd)
		if err != nil {
			return err
		}
		return out.Write(resp)
	},
}

var patternsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the pattern library for external tools",
	Long: `Export all pattern groups as JSON with a SHA256 hash of the full set.

The hash changes whenever the effective pattern set changes (new binary or
new config extensions), so external tools can detect drift.

Examples:
  safegate patterns export                  # JSON to stdout
  safegate patterns export -o patterns.json # JSON to file`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		lib, err := policy.NewLibraryWithExtensions(cfg.Extensions())
		if err != nil {
			return err
		}

		export := lib.Export()
		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal export: %w", err)
		}

		if flagPatternsOutputFile != "" {
			if err := os.WriteFile(flagPatternsOutputFile, append(data, '\n'), 0644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			out, err := newWriter(cfg, cmd)
			if err != nil {
				return err
			}
			return out.Write(map[string]any{
				"status": "exported",
				"file":   flagPatternsOutputFile,
				"sha256": export.SHA256,
			})
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var patternsVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show pattern library version and hash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		lib, err := policy.NewLibraryWithExtensions(cfg.Extensions())
		if err != nil {
			return err
		}

		export := lib.Export()
		out, err := newWriter(cfg, cmd)
		if err != nil {
			return err
		}
		return out.Write(map[string]any{
			"version": export.Version,
			"sha256":  export.SHA256,
			"counts":  export.Counts,
		})
	},
}

func init() {
	patternsExportCmd.Flags().StringVarP(&flagPatternsOutputFile, "output-file", "O", "", "write export to file instead of stdout")

	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsTestCmd)
	patternsCmd.AddCommand(patternsExportCmd)
	patternsCmd.AddCommand(patternsVersionCmd)

	rootCmd.AddCommand(patternsCmd)
}
