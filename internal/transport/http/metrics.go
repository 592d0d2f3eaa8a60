package httptransport

import "expvar"

var (
	metricTopupTotal  = expvar.NewInt("admin_topup_total")
	metricTopupErrors = expvar.NewInt("admin_topup_errors_total")

	metricHistoryQueries = expvar.NewInt("match_history_query_total")
	metricHistoryErrors  = expvar.NewInt("match_history_query_errors_total")
)
