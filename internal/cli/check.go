package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/safegate/safegate/internal/output"
	"github.com/safegate/safegate/internal/policy"
)

var (
	flagCheckAction   string
	flagCheckTarget   string
	flagCheckPlan     string
	flagCheckExitCode bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Decide whether a proposed action may proceed",
	Long: `Check classifies a proposed action and emits the authorization decision.

The decision record has a stable shape (allowed, risk_level, reason,
warnings, timestamp) so calling agents can parse it to gate their next
action. Anything not affirmatively recognized is denied at HIGH risk.

Examples:
  safegate check --action read_file --target src/main.go
  safegate check --action run_command --target "rm -rf ./build"
  safegate check --action write_to_file --target .env --plan "rotate keys"

Use --exit-code to also return exit status 1 when the action is denied.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	req := policy.Request{
		Action: flagCheckAction,
		Target: flagCheckTarget,
		Plan:   flagCheckPlan,
	}

	// Invocation validation precedes any classification: a bad invocation
	// fails hard and produces no decision record.
	if err := req.Validate(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	dec := engine.Evaluate(req)

	out, err := newWriter(cfg, cmd)
	if err != nil {
		return err
	}
	if err := out.Write(output.Report{Request: req, Decision: dec}); err != nil {
		return err
	}

	if flagCheckExitCode && !dec.Allowed {
		os.Exit(1)
	}
	return nil
}

func init() {
	checkCmd.Flags().StringVarP(&flagCheckAction, "action", "a", "", "operation name (required)")
	checkCmd.Flags().StringVarP(&flagCheckTarget, "target", "t", "", "file path or command line (required)")
	checkCmd.Flags().StringVarP(&flagCheckPlan, "plan", "p", "", "free-text plan context (recorded, never classified)")
	checkCmd.Flags().BoolVar(&flagCheckExitCode, "exit-code", false, "return non-zero exit code if the action is denied")

	rootCmd.AddCommand(checkCmd)
}
