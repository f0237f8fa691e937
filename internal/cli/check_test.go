package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// newTestCheckCmd creates a fresh check command tree for testing.
func newTestCheckCmd(t *testing.T) *cobra.Command {
	t.Helper()
	root := newTestRootCmd(t)

	flagCheckAction = ""
	flagCheckTarget = ""
	flagCheckPlan = ""
	flagCheckExitCode = false

	c := &cobra.Command{
		Use:  "check",
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
	c.Flags().StringVarP(&flagCheckAction, "action", "a", "", "operation name")
	c.Flags().StringVarP(&flagCheckTarget, "target", "t", "", "file path or command line")
	c.Flags().StringVarP(&flagCheckPlan, "plan", "p", "", "plan context")
	c.Flags().BoolVar(&flagCheckExitCode, "exit-code", false, "non-zero exit on denial")

	root.AddCommand(c)
	return root
}

func decodeDecision(t *testing.T, stdout string) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	return result
}

func TestCheckCommand_ReadAllowed(t *testing.T) {
	cmd := newTestCheckCmd(t)
	stdout, _, err := executeCommand(cmd, "check", "-a", "read_file", "-t", "src/main.go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := decodeDecision(t, stdout)
	if result["allowed"] != true {
		t.Errorf("expected allowed=true, got %v", result["allowed"])
	}
	if result["risk_level"] != "NONE" {
		t.Errorf("expected risk_level=NONE, got %v", result["risk_level"])
	}
}

func TestCheckCommand_RecordShape(t *testing.T) {
	cmd := newTestCheckCmd(t)
	stdout, _, err := executeCommand(cmd, "check", "-a", "run_command", "-t", "go test ./...")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := decodeDecision(t, stdout)
	for _, key := range []string{"allowed", "risk_level", "reason", "warnings", "timestamp"} {
		if _, ok := result[key]; !ok {
			t.Errorf("expected %q in record", key)
		}
	}
	if len(result) != 5 {
		t.Errorf("expected exactly 5 fields, got %d: %v", len(result), result)
	}
	if _, ok := result["warnings"].([]any); !ok {
		t.Errorf("expected warnings to be an array, got %T", result["warnings"])
	}
}

func TestCheckCommand_RootWipeDenied(t *testing.T) {
	cmd := newTestCheckCmd(t)
	stdout, _, err := executeCommand(cmd, "check", "-a", "run_command", "-t", "rm -rf /")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := decodeDecision(t, stdout)
	if result["allowed"] != false {
		t.Errorf("expected allowed=false, got %v", result["allowed"])
	}
	if result["risk_level"] != "CRITICAL" {
		t.Errorf("expected risk_level=CRITICAL, got %v", result["risk_level"])
	}
	warnings, _ := result["warnings"].([]any)
	if len(warnings) == 0 {
		t.Error("expected at least one warning")
	}
}

func TestCheckCommand_UnknownActionDenied(t *testing.T) {
	cmd := newTestCheckCmd(t)
	stdout, _, err := executeCommand(cmd, "check", "-a", "launch_missiles", "-t", "somewhere")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := decodeDecision(t, stdout)
	if result["allowed"] != false {
		t.Errorf("expected allowed=false, got %v", result["allowed"])
	}
	if result["risk_level"] != "HIGH" {
		t.Errorf("expected risk_level=HIGH, got %v", result["risk_level"])
	}
}

func TestCheckCommand_MissingActionFailsBeforeClassification(t *testing.T) {
	cmd := newTestCheckCmd(t)
	stdout, _, err := executeCommand(cmd, "check", "-t", "src/main.go")
	if err == nil {
		t.Fatal("expected error when action is missing")
	}
	if !strings.Contains(err.Error(), "action") {
		t.Errorf("unexpected error: %v", err)
	}
	// A bad invocation must produce no decision record.
	if strings.TrimSpace(stdout) != "" {
		t.Errorf("expected empty stdout, got %q", stdout)
	}
}

func TestCheckCommand_MissingTargetFailsBeforeClassification(t *testing.T) {
	cmd := newTestCheckCmd(t)
	_, _, err := executeCommand(cmd, "check", "-a", "read_file", "-t", "   ")
	if err == nil {
		t.Fatal("expected error when target is blank")
	}
	if !strings.Contains(err.Error(), "target") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheckCommand_PatternExtensionsFromConfig(t *testing.T) {
	cmd := newTestCheckCmd(t)

	// Teach the gate a project-specific critical file via config.
	path := projectTestConfigPath(t)
	if err := writeTestConfigValue(path, "patterns.critical_files", []string{"vault"}); err != nil {
		t.Fatalf("write config: %v", err)
	}

	stdout, _, err := executeCommand(cmd, "check", "-a", "write_to_file", "-t", "deploy/vault.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := decodeDecision(t, stdout)
	if result["allowed"] != false {
		t.Errorf("expected allowed=false for extended critical file, got %v", result["allowed"])
	}
	if result["risk_level"] != "CRITICAL" {
		t.Errorf("expected risk_level=CRITICAL, got %v", result["risk_level"])
	}
}
