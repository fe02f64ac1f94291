package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportmill/internal/models"
)

func TestNextRunCadences(t *testing.T) {
	r := NewResolver(8, time.UTC)
	from := time.Date(2024, time.January, 15, 13, 45, 30, 0, time.UTC)

	tests := []struct {
		frequency models.Frequency
		want      time.Time
	}{
		{models.FrequencyDaily, time.Date(2024, time.January, 16, 8, 0, 0, 0, time.UTC)},
		{models.FrequencyWeekly, time.Date(2024, time.January, 22, 8, 0, 0, 0, time.UTC)},
		{models.FrequencyMonthly, time.Date(2024, time.February, 1, 8, 0, 0, 0, time.UTC)},
		{models.FrequencyQuarterly, time.Date(2024, time.April, 1, 8, 0, 0, 0, time.UTC)},
		{models.FrequencySemester, time.Date(2024, time.July, 1, 8, 0, 0, 0, time.UTC)},
		{models.FrequencyAnnual, time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			got, err := r.Next(from, tt.frequency)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestNextRunAlwaysInFuture(t *testing.T) {
	r := NewResolver(8, time.UTC)
	frequencies := []models.Frequency{
		models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly,
		models.FrequencyQuarterly, models.FrequencySemester, models.FrequencyAnnual,
	}
	instants := []time.Time{
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, time.February, 29, 8, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 30, 7, 59, 59, 999999999, time.UTC),
	}

	for _, f := range frequencies {
		for _, now := range instants {
			next, err := r.Next(now, f)
			require.NoError(t, err)
			assert.True(t, next.After(now), "%s from %s: next run %s not after now", f, now, next)
			assert.Equal(t, 8, next.Hour())
			assert.Equal(t, 0, next.Minute())
			assert.Equal(t, 0, next.Second())
			assert.Equal(t, 0, next.Nanosecond())
		}
	}
}

func TestNextRunMonthRollover(t *testing.T) {
	r := NewResolver(8, time.UTC)

	// Quarterly from November rolls into the next year.
	next, err := r.Next(time.Date(2024, time.November, 20, 10, 0, 0, 0, time.UTC), models.FrequencyQuarterly)
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2025, time.February, 1, 8, 0, 0, 0, time.UTC)))

	// Semester from August also rolls over.
	next, err = r.Next(time.Date(2024, time.August, 2, 8, 0, 0, 0, time.UTC), models.FrequencySemester)
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2025, time.February, 1, 8, 0, 0, 0, time.UTC)))
}

func TestNextRunWeeklyScenario(t *testing.T) {
	r := NewResolver(8, time.UTC)

	next, err := r.Next(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), models.FrequencyWeekly)
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2024, time.January, 8, 8, 0, 0, 0, time.UTC)))

	// Advancing from that fire lands on the following week.
	next, err = r.Next(next, models.FrequencyWeekly)
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)))
}

func TestNextRunHonorsTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	r := NewResolver(8, loc)
	next, err := r.Next(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC), models.FrequencyDaily)
	require.NoError(t, err)

	assert.Equal(t, 8, next.In(loc).Hour())
}

func TestNextRunRejectsUnknownFrequency(t *testing.T) {
	r := NewResolver(8, time.UTC)

	_, err := r.Next(time.Now(), models.Frequency("fortnightly"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFrequency)
}
