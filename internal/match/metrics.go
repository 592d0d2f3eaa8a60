package match

import "expvar"

var (
	matchesStarted      = expvar.NewInt("matches_started_total")
	matchesSettled      = expvar.NewInt("matches_settled_total")
	matchesForfeited    = expvar.NewInt("matches_forfeited_total")
	escrowFailures      = expvar.NewInt("escrow_failures_total")
	reconciliationCount = expvar.NewInt("reconciliations_total")
	sessionsLive        = expvar.NewInt("sessions_live")
	queueWaiting        = expvar.NewInt("queue_waiting")
	rollerFallbacks     = expvar.NewInt("roller_entropy_fallbacks_total")
)
