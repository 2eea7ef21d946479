package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsFreshAt(t *testing.T) {
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsFreshAt(now.Add(-4*time.Minute), FreshnessHourlySeries, now))
	assert.False(t, IsFreshAt(now.Add(-6*time.Minute), FreshnessHourlySeries, now))

	assert.True(t, IsFreshAt(now.Add(-29*time.Minute), FreshnessSixHourSeries, now))
	assert.False(t, IsFreshAt(now.Add(-31*time.Minute), FreshnessSixHourSeries, now))

	assert.True(t, IsFreshAt(now.Add(-23*time.Hour), FreshnessDailySeries, now))
	assert.False(t, IsFreshAt(now.Add(-25*time.Hour), FreshnessDailySeries, now))

	// Zero update time is never fresh.
	assert.False(t, IsFreshAt(time.Time{}, FreshnessDailySeries, now))
}
