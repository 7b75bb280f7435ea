/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMetric(t assert.TestingT, m prometheus.Metric) (*dto.Metric, bool) {
	var res dto.Metric
	if !assert.NoError(t, m.Write(&res)) {
		return nil, false
	}
	return &res, true
}

// AssertSamplesCountInHistogram asserts the number of observations in the histogram.
func AssertSamplesCountInHistogram(t assert.TestingT, hist prometheus.Histogram, wantSamplesCount int) bool {
	helper(t)
	m, ok := writeMetric(t, hist)
	return ok && assert.EqualValues(t, wantSamplesCount, m.GetHistogram().GetSampleCount())
}

// RequireSamplesCountInCounter asserts the value of the counter and stops the test on failure.
func RequireSamplesCountInCounter(t require.TestingT, counter prometheus.Counter, wantCount int) {
	helper(t)
	m, ok := writeMetric(t, counter)
	if !ok || !assert.EqualValues(t, wantCount, m.GetCounter().GetValue()) {
		t.FailNow()
	}
}
