package imapserver

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/emersion/go-imapfake"
)

var (
	connectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imapfake_sessions_total",
			Help: "Number of sessions created.",
		},
	)
	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imapfake_command_duration_seconds",
			Help:    "IMAP command duration and result codes in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.100, 0.5, 1, 5, 10, 20},
		},
		[]string{
			"cmd",
			"result", // ok, no, bad, pending
		},
	)
)

func observeCommand(name string, resp *imap.StatusResponse, d time.Duration) {
	result := "pending"
	if resp != nil {
		result = strings.ToLower(string(resp.Type))
	}
	commandDuration.WithLabelValues(name, result).Observe(d.Seconds())
}
