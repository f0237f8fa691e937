package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/safegate/safegate/internal/policy"
	"github.com/safegate/safegate/internal/utils"
)

func TestWriter_Write_JSON(t *testing.T) {
	var out bytes.Buffer
	w := New(FormatJSON, WithOutput(&out))

	if err := w.Write(map[string]any{"risk_level": "HIGH"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["risk_level"] != "HIGH" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestWriter_Write_YAML(t *testing.T) {
	var out bytes.Buffer
	w := New(FormatYAML, WithOutput(&out))

	if err := w.Write(map[string]any{"allowed": true}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var got map[string]any
	if err := yaml.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	if got["allowed"] != true {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestWriter_Write_TextGoesToStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	w := New(FormatText, WithOutput(&out), WithErrorOutput(&errOut))

	if err := w.Write("hello"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("text leaked to stdout: %q", out.String())
	}
	if got := errOut.String(); got != "hello\n" {
		t.Fatalf("unexpected stderr: %q", got)
	}
}

func TestWriter_Write_UnsupportedFormat(t *testing.T) {
	w := New(Format("toml"))
	if err := w.Write("x"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestFormat_Valid(t *testing.T) {
	for _, f := range []Format{FormatText, FormatJSON, FormatYAML} {
		if !f.Valid() {
			t.Errorf("%s reported invalid", f)
		}
	}
	if Format("toon").Valid() {
		t.Error("unknown format reported valid")
	}
}

func TestWriter_Error(t *testing.T) {
	var out bytes.Buffer
	w := New(FormatJSON, WithOutput(&out))
	w.Error(errors.New("boom"))

	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["message"] != "boom" {
		t.Fatalf("unexpected error payload: %v", got)
	}
}

func testReport() Report {
	return Report{
		Request: policy.Request{Action: "run_command", Target: "rm ./temp.txt"},
		Decision: policy.Decision{
			Allowed:   true,
			RiskLevel: policy.RiskCritical,
			Reason:    "Scoped destructive command permitted; confirm before executing.",
			Warnings:  []string{"destructive command \"rm\" detected; verify the target scope"},
			Timestamp: "2026-03-14T09:26:53Z",
		},
	}
}

func TestReport_MarshalJSON_BareRecord(t *testing.T) {
	data, err := json.Marshal(testReport())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(raw) != 5 {
		t.Fatalf("record has %d keys, want 5 (no request fields): %s", len(raw), data)
	}
	if _, ok := raw["target"]; ok {
		t.Fatal("request leaked into serialized record")
	}
}

func TestReport_RenderText(t *testing.T) {
	plain := utils.StripANSI(testReport().RenderText())

	for _, want := range []string{"ALLOWED", "[CRITICAL]", "run_command", "rm ./temp.txt", "confirm before executing", "2026-03-14T09:26:53Z"} {
		if !strings.Contains(plain, want) {
			t.Errorf("rendered text missing %q:\n%s", want, plain)
		}
	}
}

func TestReport_RenderText_SanitizesTarget(t *testing.T) {
	r := testReport()
	r.Request.Target = "\x1b[2J\x07rm ./x"
	plain := r.RenderText()
	if strings.Contains(plain, "\x07") {
		t.Error("control characters survived rendering")
	}
}

func TestReport_WriteThroughWriter_Text(t *testing.T) {
	var out, errOut bytes.Buffer
	w := New(FormatText, WithOutput(&out), WithErrorOutput(&errOut))

	if err := w.Write(testReport()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("text mode wrote to stdout: %q", out.String())
	}
	if !strings.Contains(utils.StripANSI(errOut.String()), "ALLOWED") {
		t.Fatalf("unexpected text rendering: %q", errOut.String())
	}
}
