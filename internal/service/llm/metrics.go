package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyboard_chat_turns_total",
		Help: "Chat turns by final outcome",
	}, []string{"model", "outcome"})

	chatSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storyboard_chat_steps",
		Help:    "Model steps used per chat turn",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 20},
	})

	chatRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_chat_request_retries_total",
		Help: "Model requests retried after a transient error",
	})
)
