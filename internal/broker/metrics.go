package broker

import "expvar"

var (
	metricPublished     = expvar.NewInt("broker_published_total")
	metricPublishFailed = expvar.NewInt("broker_publish_failed_total")
	metricDropped       = expvar.NewInt("broker_dropped_total")
	metricQueueLen      = expvar.NewInt("broker_queue_len")
)
