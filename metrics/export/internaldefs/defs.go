package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef binds a counter ID to its exported name.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram ID to its exported name.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists exported counters in render order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSignInSuccess, Name: "gosession_sign_in_success_total", Help: "Sign-ins that reached the authenticated state."},
	{ID: goSession.MetricSignInFailure, Name: "gosession_sign_in_failure_total", Help: "Sign-ins that returned an error."},
	{ID: goSession.MetricSecondFactorRequired, Name: "gosession_second_factor_required_total", Help: "First factors that required a second factor."},
	{ID: goSession.MetricSecondFactorSuccess, Name: "gosession_second_factor_success_total", Help: "Accepted second-factor codes."},
	{ID: goSession.MetricSecondFactorFailure, Name: "gosession_second_factor_failure_total", Help: "Rejected second-factor codes."},
	{ID: goSession.MetricBackupCodeUsed, Name: "gosession_backup_code_used_total", Help: "Accepted backup codes."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Successful token refreshes."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: goSession.MetricRefreshShared, Name: "gosession_refresh_shared_total", Help: "Callers served by a refresh started by another caller."},
	{ID: goSession.MetricRefreshDiscarded, Name: "gosession_refresh_discarded_total", Help: "Refresh results discarded after sign-out or re-login."},
	{ID: goSession.MetricPrincipalRefetchFailure, Name: "gosession_principal_refetch_failure_total", Help: "Failed principal re-fetches."},
	{ID: goSession.MetricRolesDegraded, Name: "gosession_roles_degraded_total", Help: "Principals loaded with an empty role list after a roles endpoint failure."},
	{ID: goSession.MetricSignOut, Name: "gosession_sign_out_total", Help: "Sign-outs."},
	{ID: goSession.MetricRestoreSuccess, Name: "gosession_restore_success_total", Help: "Sessions restored from the store."},
	{ID: goSession.MetricRestoreFailure, Name: "gosession_restore_failure_total", Help: "Failed session restores."},
	{ID: goSession.MetricPersistFailure, Name: "gosession_persist_failure_total", Help: "Failed best-effort store writes."},
}

// HistogramDefs lists exported histograms.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "Refresh round-trip latency histogram."},
}

// StateGaugeName is the per-state gauge: 1 for the current state, 0 for the
// others.
const StateGaugeName = "gosession_state"

// States lists every state kind in export order.
var States = []goSession.StateKind{
	goSession.StateUnauthenticated,
	goSession.StateAuthenticating,
	goSession.StateAwaitingSecondFactor,
	goSession.StateAuthenticated,
	goSession.StateRefreshFailed,
}

// HistogramBounds are the upper bounds of the eight buckets, in seconds.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix are instrument-name-safe forms of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
