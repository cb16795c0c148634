package command

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK            = "ok"
	outcomeNoAPIKey      = "no_api_key"
	outcomeProviderError = "provider_error"
	outcomeNotFound      = "location_not_found"
	outcomeUnknownError  = "unknown_error"
	outcomeRateLimited   = "rate_limited"
)

type commandMetrics struct {
	commands *prometheus.CounterVec
}

var (
	cmdMetricsInstance *commandMetrics
	cmdMetricsOnce     sync.Once
	cmdRegistry        = prometheus.DefaultRegisterer
)

func newCommandMetrics() *commandMetrics {
	cmdMetricsOnce.Do(func() {
		cmdMetricsInstance = &commandMetrics{
			commands: promauto.With(cmdRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "oweather_commands_total",
				Help: "Chat commands handled, by command and outcome",
			}, []string{"command", "outcome"}),
		}
	})
	return cmdMetricsInstance
}

func (m *commandMetrics) observe(command, outcome string) {
	m.commands.WithLabelValues(command, outcome).Inc()
}

func resetCommandMetricsForTesting() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	cmdRegistry = reg
	cmdMetricsInstance = nil
	cmdMetricsOnce = sync.Once{}
	return reg
}
