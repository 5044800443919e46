package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org_import",
		Subsystem: "runs",
		Name:      "total",
		Help:      "Total number of import calls broken down by entity and final status.",
	}, []string{"entity", "status"})

	importRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org_import",
		Subsystem: "records",
		Name:      "total",
		Help:      "Total number of processed rows broken down by entity and result.",
	}, []string{"entity", "result"})

	importValidationIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org_import",
		Subsystem: "validation",
		Name:      "issues_total",
		Help:      "Total number of validation issues broken down by entity, issue code and scope.",
	}, []string{"entity", "code", "scope"})

	importDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "org_import",
		Subsystem: "runs",
		Name:      "duration_seconds",
		Help:      "Duration of single-entity import calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"entity"})
)

func recordRun(entity string, status Status) {
	if status == "" {
		status = StatusFailure
	}
	importRuns.WithLabelValues(entity, string(status)).Inc()
}

func recordRecord(entity string, result string) {
	importRecords.WithLabelValues(entity, result).Inc()
}

func recordValidationIssues(entity string, res ValidationResult) {
	for _, issue := range res.Issues {
		importValidationIssues.WithLabelValues(entity, issue.Code, string(issue.Scope)).Inc()
	}
}

func observeDuration(entity string, d time.Duration) {
	importDuration.WithLabelValues(entity).Observe(d.Seconds())
}
