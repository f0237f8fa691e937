package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/safegate/safegate/internal/policy"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Evaluate a Claude Code PreToolUse call from stdin",
	Long: `Hook reads a PreToolUse JSON document on stdin, maps the tool call to a
safegate action, and prints the hook response on stdout.

Install it in Claude Code settings as a PreToolUse hook:

  {"matcher": "Bash", "hooks": [{"type": "command", "command": "safegate hook"}]}

Responses use the hook protocol: {"action": "allow"|"ask"|"block", ...}.
A denied decision blocks; an allowed-but-critical decision (scoped
destructive command) asks for confirmation. Unreadable input blocks:
the gate fails closed.`,
	Args: cobra.NoArgs,
	RunE: runHook,
}

// hookInput is the PreToolUse document Claude Code pipes to hooks.
// tool_input carries mixed value types (Bash sends numeric timeout and
// boolean run_in_background alongside the command), so it decodes loosely
// and the string keys are extracted afterwards.
type hookInput struct {
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
	SessionID string         `json:"session_id"`
}

// stringField returns the named tool_input value when it is a string,
// otherwise "".
func (in hookInput) stringField(key string) string {
	v, _ := in.ToolInput[key].(string)
	return v
}

// hookResponse is the decision in hook protocol form.
type hookResponse struct {
	Action    string   `json:"action"` // "allow", "ask", "block"
	Message   string   `json:"message"`
	RiskLevel string   `json:"risk_level"`
	Warnings  []string `json:"warnings,omitempty"`
}

func runHook(cmd *cobra.Command, args []string) error {
	enc := json.NewEncoder(cmd.OutOrStdout())

	var in hookInput
	if err := json.NewDecoder(cmd.InOrStdin()).Decode(&in); err != nil {
		logger.Warn("unreadable hook input", "err", err)
		return enc.Encode(hookResponse{
			Action:    "block",
			Message:   "safegate could not read the hook input; blocking",
			RiskLevel: string(policy.RiskHigh),
		})
	}

	req, err := mapToolCall(in)
	if err != nil {
		logger.Warn("unmappable tool call", "tool", in.ToolName, "err", err)
		return enc.Encode(hookResponse{
			Action:    "block",
			Message:   err.Error(),
			RiskLevel: string(policy.RiskHigh),
		})
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
	return enc.Encode(hookDecision(dec))
}

// mapToolCall translates a Claude Code tool call into a gate request.
// Unknown tools pass their name through as the action, which routes to the
// default-deny branch downstream.
func mapToolCall(in hookInput) (policy.Request, error) {
	tool := strings.ToLower(strings.TrimSpace(in.ToolName))
	if tool == "" {
		return policy.Request{}, fmt.Errorf("hook input has no tool_name")
	}

	var req policy.Request
	switch tool {
	case "bash":
		req = policy.Request{Action: "run_command", Target: in.stringField("command")}
	case "write", "edit", "notebookedit":
		req = policy.Request{Action: "write_to_file", Target: in.stringField("file_path")}
	case "read":
		req = policy.Request{Action: "read_file", Target: in.stringField("file_path")}
	case "glob", "grep":
		req = policy.Request{Action: "search_files", Target: firstNonEmpty(in.stringField("pattern"), in.stringField("path"), ".")}
	default:
		req = policy.Request{Action: tool, Target: firstNonEmpty(in.stringField("command"), in.stringField("file_path"), in.stringField("path"))}
	}

	if err := req.Validate(); err != nil {
		return policy.Request{}, fmt.Errorf("tool %s: %w", in.ToolName, err)
	}
	return req, nil
}

// hookDecision maps a gate decision to the hook protocol. The scoped
// destructive branch (allowed at CRITICAL) becomes "ask": the gate grants
// provisional trust and pushes confirmation to the calling layer.
func hookDecision(dec policy.Decision) hookResponse {
	resp := hookResponse{
		Message:   dec.Reason,
		RiskLevel: string(dec.RiskLevel),
		Warnings:  dec.Warnings,
	}
	switch {
	case !dec.Allowed:
		resp.Action = "block"
	case dec.RiskLevel == policy.RiskCritical:
		resp.Action = "ask"
	default:
		resp.Action = "allow"
	}
	return resp
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(hookCmd)
}
