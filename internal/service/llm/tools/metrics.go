package tools

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure" // tool ran and reported success=false
	outcomeError   = "error"   // tool could not run
)

var (
	toolExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyboard_tool_executions_total",
			Help: "Tool executions by tool name and outcome",
		},
		[]string{"tool", "outcome"},
	)

	toolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyboard_tool_duration_seconds",
			Help:    "Tool execution latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		},
		[]string{"tool"},
	)

	imageGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyboard_image_generations_total",
			Help: "Image generation attempts by result",
		},
		[]string{"result"},
	)
)

type toolTimer struct {
	name  string
	start time.Time
}

func newToolTimer(name string) toolTimer {
	return toolTimer{name: name, start: time.Now()}
}

func (t toolTimer) observe() {
	toolDuration.WithLabelValues(t.name).Observe(time.Since(t.start).Seconds())
}

// outcomeOf classifies a tool result by its success flag
func outcomeOf(result interface{}) string {
	if m, ok := result.(map[string]interface{}); ok {
		if success, _ := m["success"].(bool); !success {
			return outcomeFailure
		}
	}
	return outcomeSuccess
}
