// SPDX-License-Identifier: GPL-3.0-or-later

// Package prommetrics exports the [serversock.Stats] counters of a
// [*serversock.Pool] as Prometheus metrics.
package prommetrics

import (
	"github.com/bassosimone/serversock"
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource abstracts the [*serversock.Pool] Stats method.
type StatsSource interface {
	Stats() serversock.Stats
}

// Collector is a [prometheus.Collector] reading a [StatsSource] at scrape time.
//
// Scrapes run on the HTTP server goroutines, which is safe because
// [*serversock.Pool.Stats] only reads atomic counters.
type Collector struct {
	source StatsSource
	descs  []counterDesc
}

type counterDesc struct {
	desc  *prometheus.Desc
	value func(serversock.Stats) uint64
}

var _ prometheus.Collector = &Collector{}

// NewCollector returns a [*Collector] whose metric names start with namespace.
func NewCollector(namespace string, source StatsSource) *Collector {
	newDesc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}
	return &Collector{
		source: source,
		descs: []counterDesc{{
			desc:  newDesc("accepted_total", "Connections bound to a client slot."),
			value: func(s serversock.Stats) uint64 { return s.Accepted },
		}, {
			desc:  newDesc("accept_rejected_total", "Connections refused because the server was full or not accepting."),
			value: func(s serversock.Stats) uint64 { return s.AcceptRejected },
		}, {
			desc:  newDesc("received_bytes_total", "Bytes delivered by the engine."),
			value: func(s serversock.Stats) uint64 { return s.ReceivedBytes },
		}, {
			desc:  newDesc("dropped_bytes_total", "Received bytes lost to receive buffer overflow."),
			value: func(s serversock.Stats) uint64 { return s.DroppedBytes },
		}, {
			desc:  newDesc("rejected_segments_total", "Segments handed back to the engine by the reject policy."),
			value: func(s serversock.Stats) uint64 { return s.RejectedSegments },
		}, {
			desc:  newDesc("recorded_errors_total", "Engine errors and peer closes recorded on client slots."),
			value: func(s serversock.Stats) uint64 { return s.RecordedErrors },
		}, {
			desc:  newDesc("sent_bytes_total", "Bytes accepted by the engine send queue."),
			value: func(s serversock.Stats) uint64 { return s.SentBytes },
		}},
	}
}

// Describe implements [prometheus.Collector].
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d.desc
	}
}

// Collect implements [prometheus.Collector].
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	for _, d := range c.descs {
		ch <- prometheus.MustNewConstMetric(d.desc, prometheus.CounterValue, float64(d.value(stats)))
	}
}
