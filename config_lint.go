package goSession

import (
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks a [LintWarning].
type LintSeverity int

const (
	// LintInfo marks a setting worth knowing about.
	LintInfo LintSeverity = iota
	// LintWarn marks a setting that weakens the store's guarantees.
	LintWarn
	// LintHigh marks a setting that is unsafe for production.
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one advisory finding. Code is stable and machine-readable.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings from [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (ws LintResult) Codes() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

// BySeverity returns warnings at or above min.
func (ws LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds warnings at or above min into one error, or nil when there
// are none. Use it to fail startup on risky configuration.
func (ws LintResult) AsError(min LintSeverity) error {
	hits := ws.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, len(hits))
	for i, w := range hits {
		parts[i] = fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message)
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports configurations that pass [Config.Validate] but are likely
// mistakes or unsafe in production. It never mutates c.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.Session.MaxIdle > c.Session.Timeout() {
		add("idle_window_exceeds_timeout", LintWarn,
			"MaxIdle %s exceeds storage timeout %s; tiers expire sessions before the idle check can", c.Session.MaxIdle, c.Session.Timeout())
	}
	if c.Session.MaxAge > c.Session.Timeout() {
		add("max_age_exceeds_timeout", LintInfo,
			"MaxAge %s exceeds storage timeout %s; sessions idle past the timeout are dropped earlier", c.Session.MaxAge, c.Session.Timeout())
	}
	if c.Session.MaxSessionsPerUser == 0 {
		add("session_limit_disabled", LintWarn, "MaxSessionsPerUser is 0; concurrent sessions are unbounded")
	}
	if c.Session.MaxSessionsPerUser > 50 {
		add("session_limit_high", LintInfo, "MaxSessionsPerUser %d is unusually high", c.Session.MaxSessionsPerUser)
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are disabled; invalidations leave no trail")
	}
	if c.Audit.Enabled && c.Audit.DropIfFull {
		add("audit_drop_if_full", LintInfo, "audit events are dropped when the buffer is full")
	}
	if !c.Reaper.Enabled {
		add("reaper_disabled", LintWarn, "reaper disabled; expired SQL and memory sessions accumulate until swept manually")
	}
	if c.Timeouts.BackendCall > 2*time.Second {
		add("backend_timeout_long", LintWarn,
			"BackendCall %s; a stalled tier delays every request by this much before failover", c.Timeouts.BackendCall)
	}
	if strings.HasPrefix(c.Redis.URL, "redis://") {
		sev := LintWarn
		if c.Security.ProductionMode {
			sev = LintHigh
		}
		add("redis_plaintext_url", sev, "Redis URL is not TLS (use rediss://)")
	}
	if !c.Security.ProductionMode {
		add("production_mode_disabled", LintInfo, "ProductionMode is off; Tier 1 transport security is not enforced")
	}

	return ws
}
