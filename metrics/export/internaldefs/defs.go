package internaldefs

import (
	"github.com/emberbase/auth/metrics"
)

// CounterDef binds a metric slot to its exported name and help text.
type CounterDef struct {
	ID   metrics.ID
	Name string
	Help string
}

// HistogramDef binds a histogram slot to its exported name and help text.
type HistogramDef struct {
	ID   metrics.ID
	Name string
	Help string
}

// CounterDefs is the canonical export order for counters. Exporters must
// not reorder it: dashboards key on position-stable output.
var CounterDefs = []CounterDef{
	{ID: metrics.MetricCeremonyBegun, Name: "emberauth_ceremony_begun_total", Help: "Sign-in and sign-up ceremonies started."},
	{ID: metrics.MetricPromptAccepted, Name: "emberauth_prompt_accepted_total", Help: "Prompt submissions accepted by a factor."},
	{ID: metrics.MetricPromptRejected, Name: "emberauth_prompt_rejected_total", Help: "Prompt submissions rejected by a factor."},
	{ID: metrics.MetricPromptSkipped, Name: "emberauth_prompt_skipped_total", Help: "Factors skipped by the resolver."},
	{ID: metrics.MetricPromptSent, Name: "emberauth_prompt_sent_total", Help: "Out-of-band prompt deliveries."},
	{ID: metrics.MetricValidationSent, Name: "emberauth_validation_sent_total", Help: "Validation code deliveries."},
	{ID: metrics.MetricValidationAccepted, Name: "emberauth_validation_accepted_total", Help: "Accepted validation codes."},
	{ID: metrics.MetricValidationRejected, Name: "emberauth_validation_rejected_total", Help: "Rejected validation codes."},
	{ID: metrics.MetricCeremonyCompleted, Name: "emberauth_ceremony_completed_total", Help: "Ceremonies that reached the terminal."},
	{ID: metrics.MetricIdentityCreated, Name: "emberauth_identity_created_total", Help: "Identities persisted by registration."},
	{ID: metrics.MetricSessionCreated, Name: "emberauth_session_created_total", Help: "Session records written."},
	{ID: metrics.MetricRefreshSuccess, Name: "emberauth_refresh_success_total", Help: "Successful refresh operations."},
	{ID: metrics.MetricRefreshFailure, Name: "emberauth_refresh_failure_total", Help: "Rejected refresh operations."},
	{ID: metrics.MetricSignOut, Name: "emberauth_sign_out_total", Help: "Sign-out operations."},
	{ID: metrics.MetricRateLimitHit, Name: "emberauth_rate_limit_hit_total", Help: "Requests denied by a rate window."},
}

// HistogramDefs is the canonical export order for histograms.
var HistogramDefs = []HistogramDef{
	{ID: metrics.MetricSubmitLatency, Name: "emberauth_submit_latency_ms", Help: "Submit-prompt latency distribution."},
}

// HistogramBounds are the Prometheus le labels, aligned with the core's
// fixed buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are metric-name-safe bucket suffixes for exporters
// that cannot carry labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
