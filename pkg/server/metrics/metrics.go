package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/analysis"
	"github.com/chatlens/chatlens/pkg/api"
	"github.com/chatlens/chatlens/pkg/apis/cache"
)

const (
	conversationsMetricName    = "chatlens_conversations"
	sentimentMessagesName      = "chatlens_sentiment_messages"
	negativeShareMetricName    = "chatlens_negative_sentiment_ratio"
	avgResponseMinutesName     = "chatlens_avg_response_minutes"
	aiServiceUpMetricName      = "chatlens_ai_service_up"
	refreshTimestampMetricName = "chatlens_metrics_last_refresh_timestamp_seconds"
)

var (
	conversationsMetric = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: conversationsMetricName,
		Help: "Number of distinct conversations, overall and started today.",
	}, []string{"period"})
	sentimentMessagesMetric = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: sentimentMessagesName,
		Help: "Labeled messages per sentiment over the insight window.",
	}, []string{"sentiment"})
	negativeShareMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Name: negativeShareMetricName,
		Help: "Fraction of labeled messages that are negative over the insight window.",
	})
	avgResponseMinutesMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Name: avgResponseMinutesName,
		Help: "Average response latency in minutes over the insight window.",
	})
	aiServiceUpMetric = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: aiServiceUpMetricName,
		Help: "1 if the AI service answered its last probe, 0 otherwise.",
	}, []string{"service"})
	refreshTimestampMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Name: refreshTimestampMetricName,
		Help: "Unix time of the last completed metrics refresh.",
	})
)

// RefreshMetrics recomputes the dashboard gauges. Individual report failures
// are logged and the remaining gauges are still updated.
func RefreshMetrics(ctx context.Context, reports *api.Reports, probes map[string]ai.Prober) {
	log.Info("beginning refresh metrics")
	start := time.Now()

	counts, errs := reports.ConversationCounts(ctx)
	logErrors("conversation counts", errs)
	conversationsMetric.WithLabelValues("total").Set(float64(counts.Total))
	conversationsMetric.WithLabelValues("today").Set(float64(counts.Today))

	window := reports.Trailing(api.InsightWindowDays)
	sentiments, errs := reports.SentimentDistribution(ctx, window, cache.RequestOptions{})
	logErrors("sentiment distribution", errs)
	for _, c := range sentiments {
		sentimentMessagesMetric.WithLabelValues(string(c.Sentiment)).Set(float64(c.Count))
	}
	share, _ := analysis.NegativeShare(sentiments)
	negativeShareMetric.Set(share)

	overview, errs := reports.Overview(ctx, window)
	logErrors("overview", errs)
	avgResponseMinutesMetric.Set(overview.AvgResponseMinutes)

	for name, p := range probes {
		if p == nil {
			aiServiceUpMetric.WithLabelValues(name).Set(0)
			continue
		}
		if err := p.Probe(ctx); err != nil {
			log.WithError(err).WithField("service", name).Warning("AI service probe failed")
			aiServiceUpMetric.WithLabelValues(name).Set(0)
			continue
		}
		aiServiceUpMetric.WithLabelValues(name).Set(1)
	}

	refreshTimestampMetric.SetToCurrentTime()
	log.Infof("refresh metrics completed in %s", time.Since(start))
}

func logErrors(report string, errs []error) {
	for _, err := range errs {
		log.WithError(err).WithField("report", report).Error("error refreshing metrics")
	}
}
