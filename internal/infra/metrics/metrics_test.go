package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestConversionsCounter(t *testing.T) {
	c := Conversions.WithLabelValues("convert", OutcomeOK)
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestCollectorsRegistered(t *testing.T) {
	CacheHits.WithLabelValues("docx").Add(0)
	PandocDuration.WithLabelValues("docx").Observe(0.1)

	assert.Equal(t, 1, testutil.CollectAndCount(PandocDuration))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(CacheHits), 1)
}
