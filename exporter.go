package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nuetoban/counter-bot/model"
)

type StatisticsGetter interface {
	Statistics() (model.Statistics, error)
}

type metricsCollector struct {
	sg StatisticsGetter

	guildsTotal  *prometheus.Desc
	activeGuilds *prometheus.Desc
	hiddenGuilds *prometheus.Desc
	highestCount *prometheus.Desc

	submissions    *prometheus.CounterVec
	commands       *prometheus.CounterVec
	relayFailures  prometheus.Counter
	eventsReceived prometheus.Counter
	eventsDropped  prometheus.Counter
}

func newMetricsCollector(sg StatisticsGetter) *metricsCollector {
	return &metricsCollector{
		sg: sg,
		guildsTotal: prometheus.NewDesc("counter_guilds_total",
			"Shows how many guilds have counting data",
			nil, nil,
		),
		activeGuilds: prometheus.NewDesc("counter_active_guilds",
			"Shows how many guilds have a count above zero",
			nil, nil,
		),
		hiddenGuilds: prometheus.NewDesc("counter_hidden_guilds",
			"Shows how many guilds are hidden from the leaderboard",
			nil, nil,
		),
		highestCount: prometheus.NewDesc("counter_highest_count",
			"Shows the highest current count across guilds",
			nil, nil,
		),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "counter_submissions_total",
			Help: "Shows how many submissions were judged, by outcome",
		}, []string{"outcome", "reason"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "counter_commands_total",
			Help: "Shows how many times each command has been called",
		}, []string{"command"}),
		relayFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "counter_relay_failures_total",
			Help: "Shows how many delete or repost calls failed",
		}),
		eventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "counter_message_events_total",
			Help: "Shows how many message events have been received",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "counter_message_events_dropped_total",
			Help: "Shows how many message events were dropped on a full queue",
		}),
	}
}

// Writes all descriptors to the prometheus desc channel
func (c *metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.guildsTotal
	ch <- c.activeGuilds
	ch <- c.hiddenGuilds
	ch <- c.highestCount
	c.submissions.Describe(ch)
	c.commands.Describe(ch)
	c.relayFailures.Describe(ch)
	c.eventsReceived.Describe(ch)
	c.eventsDropped.Describe(ch)
}

// Collect implements required collect function for all promehteus collectors
func (c *metricsCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.sg.Statistics()
	if err != nil {
		log.Errorf("metricsCollector: cannot get statistics: %v", err)
	} else {
		ch <- prometheus.MustNewConstMetric(c.guildsTotal, prometheus.GaugeValue, float64(stats.Guilds))
		ch <- prometheus.MustNewConstMetric(c.activeGuilds, prometheus.GaugeValue, float64(stats.ActiveGuilds))
		ch <- prometheus.MustNewConstMetric(c.hiddenGuilds, prometheus.GaugeValue, float64(stats.HiddenGuilds))
		ch <- prometheus.MustNewConstMetric(c.highestCount, prometheus.GaugeValue, float64(stats.HighestCount))
	}

	c.submissions.Collect(ch)
	c.commands.Collect(ch)
	c.relayFailures.Collect(ch)
	c.eventsReceived.Collect(ch)
	c.eventsDropped.Collect(ch)
}

func (c *metricsCollector) observeDecision(d model.Decision) {
	c.submissions.WithLabelValues(d.Outcome.String(), string(d.Reason)).Inc()
}
