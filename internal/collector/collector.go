// Package collector exposes the triage board as Prometheus metrics.
//
// Priorities depend on the clock, so nothing is cached: every scrape lists
// the board and classifies each open issue at that moment.
//
// Metrics:
//   - triage_open_issues{severity,priority}: open issues per severity and priority
//   - triage_oldest_open_issue_age_seconds{priority}: age of the oldest open issue per priority
//   - triage_build_info{version,git_commit,build_date,go_version}: constant 1
package collector

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jensholdgaard/issue-triage-bot/internal/issue"
	"github.com/jensholdgaard/issue-triage-bot/internal/triage"
	"github.com/jensholdgaard/issue-triage-bot/internal/version"
)

// Lister is the part of triage.Board the collector reads.
type Lister interface {
	List(ctx context.Context) []triage.Snapshot
}

var severities = []issue.Severity{issue.Feature, issue.Bug, issue.Other}

// BoardCollector implements prometheus.Collector over a triage board.
type BoardCollector struct {
	board Lister

	openIssues *prometheus.Desc
	oldestAge  *prometheus.Desc
	buildInfo  *prometheus.Desc
}

// NewBoardCollector creates a collector for board.
func NewBoardCollector(board Lister) *BoardCollector {
	return &BoardCollector{
		board: board,
		openIssues: prometheus.NewDesc(
			"triage_open_issues",
			"Number of open issues by severity and current priority.",
			[]string{"severity", "priority"},
			nil,
		),
		oldestAge: prometheus.NewDesc(
			"triage_oldest_open_issue_age_seconds",
			"Age of the oldest open issue at each priority.",
			[]string{"priority"},
			nil,
		),
		buildInfo: prometheus.NewDesc(
			"triage_build_info",
			"Build version information.",
			[]string{"version", "git_commit", "build_date", "go_version"},
			nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *BoardCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.openIssues
	ch <- c.oldestAge
	ch <- c.buildInfo
}

// Collect implements prometheus.Collector
func (c *BoardCollector) Collect(ch chan<- prometheus.Metric) {
	type key struct {
		severity issue.Severity
		priority issue.Priority
	}
	counts := make(map[key]int)
	oldest := make(map[issue.Priority]float64)

	for _, s := range c.board.List(context.Background()) {
		sev := s.Severity
		if !sev.Known() {
			sev = issue.Other
		}
		counts[key{sev, s.Priority}]++

		age := s.Age.Seconds()
		if cur, ok := oldest[s.Priority]; !ok || age > cur {
			oldest[s.Priority] = age
		}
	}

	// The full grid is always exported so absent combinations read as 0
	// rather than disappearing.
	for _, sev := range severities {
		for _, p := range issue.Priorities {
			ch <- prometheus.MustNewConstMetric(
				c.openIssues,
				prometheus.GaugeValue,
				float64(counts[key{sev, p}]),
				sev.String(), p.String(),
			)
		}
	}

	for _, p := range issue.Priorities {
		age, ok := oldest[p]
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.oldestAge, prometheus.GaugeValue, age, p.String())
	}

	info := version.Info()
	ch <- prometheus.MustNewConstMetric(
		c.buildInfo,
		prometheus.GaugeValue,
		1,
		info["version"], info["git_commit"], info["build_date"], info["go_version"],
	)
}
