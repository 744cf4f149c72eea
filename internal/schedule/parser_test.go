package schedule

import (
	"testing"
	"time"

	"github.com/minisource/httpscheduler/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepeat(t *testing.T) {
	t.Run("valid 5s", func(t *testing.T) {
		s, err := Parse("5s", models.ScheduleTypeRepeat)
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, s.Interval)
	})

	t.Run("valid 30d", func(t *testing.T) {
		s, err := Parse("30d", models.ScheduleTypeRepeat)
		require.NoError(t, err)
		assert.Equal(t, 30*24*time.Hour, s.Interval)
	})

	t.Run("rejects too-fast seconds interval", func(t *testing.T) {
		_, err := Parse("3s", models.ScheduleTypeRepeat)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Minimum interval is 5 seconds")
	})

	t.Run("rejects zero", func(t *testing.T) {
		_, err := Parse("0s", models.ScheduleTypeRepeat)
		require.Error(t, err)
	})

	t.Run("rejects days over bound", func(t *testing.T) {
		_, err := Parse("31d", models.ScheduleTypeRepeat)
		require.Error(t, err)
	})

	t.Run("rejects malformed unit", func(t *testing.T) {
		_, err := Parse("5x", models.ScheduleTypeRepeat)
		require.Error(t, err)
	})

	t.Run("rejects overflowing seconds value", func(t *testing.T) {
		_, err := Parse("9999999999999999s", models.ScheduleTypeRepeat)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too large")
	})

	t.Run("case insensitive unit", func(t *testing.T) {
		s, err := Parse("5S", models.ScheduleTypeRepeat)
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, s.Interval)
	})
}

func TestParseCron(t *testing.T) {
	t.Run("valid 5-field", func(t *testing.T) {
		_, err := Parse("0 * * * *", models.ScheduleTypeCron)
		require.NoError(t, err)
	})

	t.Run("valid 6-field seconds-precision", func(t *testing.T) {
		_, err := Parse("*/30 * * * * *", models.ScheduleTypeCron)
		require.NoError(t, err)
	})

	t.Run("rejects malformed", func(t *testing.T) {
		_, err := Parse("not a cron", models.ScheduleTypeCron)
		require.Error(t, err)
	})

	t.Run("rejects too few fields", func(t *testing.T) {
		_, err := Parse("* * *", models.ScheduleTypeCron)
		require.Error(t, err)
	})
}

func TestNextAfterCronHourly(t *testing.T) {
	s, err := Parse("0 * * * *", models.ScheduleTypeCron)
	require.NoError(t, err)

	from := time.Date(2026, 1, 1, 12, 59, 30, 0, time.UTC)
	next := NextAfter(s, from)
	assert.Equal(t, time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC), next)
}

func TestUpcomingRepeatFiveSeconds(t *testing.T) {
	s, err := Parse("5s", models.ScheduleTypeRepeat)
	require.NoError(t, err)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times := Upcoming(s, from, 5)
	require.Len(t, times, 5)

	for i := 1; i < len(times); i++ {
		assert.Equal(t, 5*time.Second, times[i].Sub(times[i-1]))
	}
	assert.Equal(t, 5*time.Second, times[0].Sub(from))
}

func TestDescribe(t *testing.T) {
	repeat, _ := Parse("10m", models.ScheduleTypeRepeat)
	assert.Contains(t, Describe(repeat), "10m0s")

	unrecognizedCron := Schedule{Type: models.ScheduleTypeCron, raw: "@every weird"}
	assert.Equal(t, "cron: @every weird", Describe(unrecognizedCron))
}

func TestValidate(t *testing.T) {
	ok, msg := Validate("5s", models.ScheduleTypeRepeat)
	assert.True(t, ok)
	assert.Empty(t, msg)

	ok, msg = Validate("3s", models.ScheduleTypeRepeat)
	assert.False(t, ok)
	assert.NotEmpty(t, msg)
}
