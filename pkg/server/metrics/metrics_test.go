package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlens/chatlens/pkg/ai"
	"github.com/chatlens/chatlens/pkg/analysis"
	"github.com/chatlens/chatlens/pkg/api"
	"github.com/chatlens/chatlens/pkg/api/apitest"
	apitype "github.com/chatlens/chatlens/pkg/apis/api"
	"github.com/chatlens/chatlens/pkg/db/query"
)

type prober struct {
	err error
}

func (p prober) Probe(context.Context) error { return p.err }

func (p prober) ModelName() string { return "m" }

// gaugeValue finds the gauge called name whose label (if given) has value.
func gaugeValue(t *testing.T, name, label, value string) float64 {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" {
				return m.GetGauge().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%q} not found", name, label, value)
	return 0
}

func TestRefreshMetrics(t *testing.T) {
	store := &apitest.Store{
		Total: 40,
		Today: 3,
		Sentiments: []apitype.SentimentCount{
			{Sentiment: apitype.SentimentPositive, Count: 6},
			{Sentiment: apitype.SentimentNegative, Count: 3},
			{Sentiment: apitype.SentimentNeutral, Count: 1},
		},
		PeriodTotals: query.PeriodTotals{AvgResponseMinutes: 4.5},
	}
	reports := api.NewReports(store, nil, analysis.DefaultLexicon(), nil)

	RefreshMetrics(context.Background(), reports, map[string]ai.Prober{
		ai.EmbeddingService:  prober{},
		ai.GenerationService: prober{err: errors.New("down")},
		"missing":            nil,
	})

	assert.Equal(t, 40.0, gaugeValue(t, conversationsMetricName, "period", "total"))
	assert.Equal(t, 3.0, gaugeValue(t, conversationsMetricName, "period", "today"))
	assert.Equal(t, 3.0, gaugeValue(t, sentimentMessagesName, "sentiment", "negative"))
	assert.InDelta(t, 0.3, gaugeValue(t, negativeShareMetricName, "", ""), 1e-9)
	assert.Equal(t, 1.0, gaugeValue(t, aiServiceUpMetricName, "service", ai.EmbeddingService))
	assert.Equal(t, 0.0, gaugeValue(t, aiServiceUpMetricName, "service", ai.GenerationService))
	assert.Equal(t, 0.0, gaugeValue(t, aiServiceUpMetricName, "service", "missing"))
	assert.Greater(t, gaugeValue(t, refreshTimestampMetricName, "", ""), 0.0)
}
