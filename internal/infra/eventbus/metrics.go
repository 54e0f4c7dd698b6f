package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_published_total",
			Help: "Total number of events appended to a stream partition",
		},
		[]string{"stream", "result"}, // result: success, error
	)

	consumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_consumed_total",
			Help: "Total number of stream entries processed by the consumer",
		},
		[]string{"stream", "result"}, // result: acked, handler_error, poison
	)

	readErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_read_errors_total",
			Help: "Total number of failed stream commands issued by the consumer",
		},
		[]string{"stream"},
	)

	claimedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_claimed_total",
			Help: "Total number of pending entries taken over from other consumer names",
		},
		[]string{"stream"},
	)
)
