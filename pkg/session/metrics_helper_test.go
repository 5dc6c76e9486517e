package session

import (
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ritzau/trust-graph/pkg/metrics"
)

func testCounter(c *metrics.Collector, result string) (float64, error) {
	counter, err := c.Edits.GetMetricWithLabelValues(result)
	if err != nil {
		return 0, err
	}
	return testutil.ToFloat64(counter), nil
}
