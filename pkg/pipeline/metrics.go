package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeProcessed = "processed"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
)

var (
	messagesMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatlens_pipeline_messages_total",
		Help: "Messages handled by the analysis pipeline, by outcome.",
	}, []string{"outcome"})
	embeddingsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatlens_pipeline_embeddings_total",
		Help: "Embedding attempts made by the analysis pipeline, by status.",
	}, []string{"status"})
	autoRepliesMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatlens_pipeline_auto_replies_total",
		Help: "Auto replies stored by batch sweeps, by outcome.",
	}, []string{"outcome"})
	batchDurationMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatlens_pipeline_batch_duration_seconds",
		Help:    "Time taken by one batch sweep over unprocessed messages.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
