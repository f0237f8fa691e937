package policy

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// ErrMissingAction is returned when a request has no action.
var ErrMissingAction = errors.New("action is required")

// ErrMissingTarget is returned when a request has no target.
var ErrMissingTarget = errors.New("target is required")

// Request is a proposed agent action awaiting authorization.
type Request struct {
	// Action is the operation category, e.g. "read_file", "write_to_file",
	// "run_command".
	Action string `json:"action"`
	// Target is the file path or command line the action operates on.
	Target string `json:"target"`
	// Plan is optional free-text context. It is carried for audit but no
	// current rule consumes it.
	Plan string `json:"plan,omitempty"`
}

// Validate checks the invocation contract. It runs before normalization;
// a failed validation produces no Decision.
func (r Request) Validate() error {
	if NormalizeAction(r.Action) == "" {
		return ErrMissingAction
	}
	if NormalizeTarget(r.Target) == "" {
		return ErrMissingTarget
	}
	return nil
}

// Decision is the authorization verdict for a single request.
type Decision struct {
	// Allowed reports whether the action may proceed.
	Allowed bool `json:"allowed"`
	// RiskLevel is the classified severity.
	RiskLevel RiskLevel `json:"risk_level"`
	// Reason is a single sentence explaining the verdict.
	Reason string `json:"reason"`
	// Warnings lists supplementary cautions. It is always non-nil so the
	// serialized record carries [] rather than null.
	Warnings []string `json:"warnings"`
	// Timestamp is the decision generation instant, RFC 3339 in UTC.
	Timestamp string `json:"timestamp"`
}

// Engine evaluates requests against a pattern library.
//
// Evaluate is a pure function of its input apart from the final clock read:
// the library is immutable and the engine holds no per-call state, so a
// single Engine may serve any number of concurrent callers.
type Engine struct {
	lib    *Library
	logger *log.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for branch traces at debug level.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the timestamp source. Tests use this to pin the
// encoded timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine over the given library. A nil library gets
// the built-in pattern set.
func NewEngine(lib *Library, opts ...Option) *Engine {
	if lib == nil {
		lib = NewLibrary()
	}
	e := &Engine{
		lib:    lib,
		logger: log.New(io.Discard),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Library returns the pattern library the engine consults.
func (e *Engine) Library() *Library {
	return e.lib
}

// Evaluate renders the authorization decision for a request.
//
// The branches are strictly ordered and mutually exclusive; the first match
// wins. Two orderings are load-bearing: the critical-file check precedes
// the generic write allowance so sensitivity overrides the default
// "writes are fine" posture, and the root/wildcard check precedes the
// scoped-destructive allowance so blast radius overrides provisional trust.
// The terminal branch denies anything unrecognized.
func (e *Engine) Evaluate(req Request) Decision {
	action := NormalizeAction(req.Action)
	target := NormalizeTarget(req.Target)

	warnings := []string{}
	var (
		allowed bool
		level   RiskLevel
		reason  string
	)

	switch {
	case e.lib.IsReadAction(action):
		allowed = true
		level = RiskNone
		reason = "Read-only operation permitted."
		e.trace(1, action, target, level)

	case e.lib.IsWriteAction(action) && e.lib.MatchCriticalFile(target) != "":
		indicator := e.lib.MatchCriticalFile(target)
		allowed = false
		level = RiskCritical
		reason = "Write to sensitive file blocked."
		warnings = append(warnings, fmt.Sprintf("target matches critical-file indicator %q", indicator))
		e.trace(2, action, target, level)

	case e.lib.IsWriteAction(action):
		allowed = true
		level = RiskMedium
		reason = "Content modification permitted."
		e.trace(3, action, target, level)

	case e.lib.IsExecuteAction(action) && e.lib.MatchDestructive(target) != nil &&
		(e.lib.MatchRootScope(target) != nil || HasTrailingWildcard(target)):
		allowed = false
		level = RiskCritical
		reason = "Destructive command with unbounded scope blocked."
		warnings = append(warnings, "command targets a filesystem root, drive root, or unrestricted wildcard")
		e.trace(4, action, target, level)

	case e.lib.IsExecuteAction(action) && e.lib.MatchDestructive(target) != nil:
		allowed = true
		level = RiskCritical
		reason = "Scoped destructive command permitted; confirm before executing."
		if verb := CommandVerb(target); verb != "" {
			warnings = append(warnings, fmt.Sprintf("destructive command %q detected; verify the target scope", verb))
		} else {
			warnings = append(warnings, "destructive command detected; verify the target scope")
		}
		e.trace(5, action, target, level)

	case e.lib.IsExecuteAction(action):
		allowed = true
		level = RiskMedium
		reason = "Command execution permitted."
		e.trace(6, action, target, level)

	default:
		allowed = false
		level = RiskHigh
		reason = "Unrecognized action category; explicit confirmation required."
		e.trace(7, action, target, level)
	}

	return Decision{
		Allowed:   allowed,
		RiskLevel: level,
		Reason:    reason,
		Warnings:  warnings,
		Timestamp: e.now().UTC().Format(time.RFC3339),
	}
}

func (e *Engine) trace(branch int, action, target string, level RiskLevel) {
	e.logger.Debug("classified request",
		"branch", branch,
		"action", action,
		"target", target,
		"risk_level", string(level),
	)
}
