package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/safegate/safegate/internal/policy"
	"github.com/safegate/safegate/internal/utils"
)

// Report pairs a request with its decision for display. It serializes as
// the bare decision record: downstream agents depend on the record carrying
// exactly the decision fields, while text mode can still show the request
// for context.
type Report struct {
	Request  policy.Request
	Decision policy.Decision
}

// MarshalJSON emits only the decision record.
func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Decision)
}

var (
	verdictAllow = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	verdictDeny  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	riskStyles = map[policy.RiskLevel]lipgloss.Style{
		policy.RiskNone:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		policy.RiskMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		policy.RiskHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		policy.RiskCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
)

// RenderText produces the human-readable form shown in text mode.
func (r Report) RenderText() string {
	var sb strings.Builder

	verdict := verdictDeny.Render("DENIED")
	if r.Decision.Allowed {
		verdict = verdictAllow.Render("ALLOWED")
	}

	badge := riskStyles[r.Decision.RiskLevel].Render("[" + string(r.Decision.RiskLevel) + "]")

	action := utils.SanitizeInput(strings.TrimSpace(r.Request.Action))
	target := utils.Truncate(utils.SanitizeInput(strings.TrimSpace(r.Request.Target)), 80)
	fmt.Fprintf(&sb, "%s %s %s: %s\n", verdict, badge, action, target)

	fmt.Fprintf(&sb, "  %s\n", r.Decision.Reason)
	for _, w := range r.Decision.Warnings {
		fmt.Fprintf(&sb, "  %s %s\n", warnStyle.Render("!"), w)
	}
	sb.WriteString("  " + dimStyle.Render(r.Decision.Timestamp))

	return sb.String()
}
