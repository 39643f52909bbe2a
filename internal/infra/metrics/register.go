package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

// register enqueues collectors from each file's init. Nothing touches the
// default registry until MustRegister drains the queue.
func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister installs every enqueued collector into the default Prometheus
// registry. Safe to call from multiple binaries; only the first call does
// anything.
func MustRegister() {
	registerOnce.Do(func() {
		for _, c := range pending {
			prometheus.MustRegister(c)
		}
		pending = nil
	})
}

// norm keeps label values boring: lowercase, no stray whitespace.
func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
