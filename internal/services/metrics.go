package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments shared by the pipeline services.
type Metrics struct {
	RecommendationsGenerated *prometheus.CounterVec
	RecommendationLatency    prometheus.Histogram
	RuleCacheHits            prometheus.Counter
	RuleCacheMisses          prometheus.Counter
	FallbackProfiles         prometheus.Counter
	BranchFailures           *prometheus.CounterVec
	AuditWriteFailures       prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		RecommendationsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendations_generated_total",
			Help: "Recommendations generated, by kind (generate, preview, reused)",
		}, []string{"kind"}),
		RecommendationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recommendation_generation_seconds",
			Help:    "End-to-end recommendation generation latency",
			Buckets: prometheus.DefBuckets,
		}),
		RuleCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rule_match_cache_hits_total",
			Help: "Rule-match cache hits by context fingerprint",
		}),
		RuleCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rule_match_cache_misses_total",
			Help: "Rule-match cache misses by context fingerprint",
		}),
		FallbackProfiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fallback_candidate_profiles_total",
			Help: "Candidate profiles synthesized because no rules matched",
		}),
		BranchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_branch_failures_total",
			Help: "Pipeline branch failures, by branch (user, global)",
		}, []string{"branch"}),
		AuditWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit log writes that failed and were swallowed",
		}),
	}

	prometheus.MustRegister(
		m.RecommendationsGenerated,
		m.RecommendationLatency,
		m.RuleCacheHits,
		m.RuleCacheMisses,
		m.FallbackProfiles,
		m.BranchFailures,
		m.AuditWriteFailures,
	)

	return m
}
