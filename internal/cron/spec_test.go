package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    string
		wantErr bool
	}{
		{name: "six fields", spec: "0 0 9 * * ?", want: "0 0 9 * * ?"},
		{name: "five fields", spec: "*/5 * * * *", want: "*/5 * * * *"},
		{name: "descriptor", spec: "@daily", want: "@daily"},
		{name: "wildcard year dropped", spec: "0 0 9 ? * MON-FRI *", want: "0 0 9 ? * MON-FRI"},
		{name: "question mark year dropped", spec: " 0 30 8 * * ? ? ", want: "0 30 8 * * ?"},
		{name: "explicit year rejected", spec: "0 0 9 * * ? 2030", wantErr: true},
		{name: "empty", spec: "  ", wantErr: true},
		{name: "quartz monday", spec: "0 0 9 ? * 2", want: "0 0 9 ? * 1"},
		{name: "quartz saturday", spec: "0 0 9 ? * 7", want: "0 0 9 ? * 6"},
		{name: "quartz list and range", spec: "0 0 9 ? * 1,3-5", want: "0 0 9 ? * 0,2-4"},
		{name: "quartz step start", spec: "0 0 9 ? * 2/2", want: "0 0 9 ? * 1/2"},
		{name: "quartz names untouched", spec: "0 0 9 ? * MON-FRI", want: "0 0 9 ? * MON-FRI"},
		{name: "quartz year with day", spec: "0 0 9 ? * 1 *", want: "0 0 9 ? * 0"},
		{name: "quartz zero rejected", spec: "0 0 9 ? * 0", wantErr: true},
		{name: "quartz eight rejected", spec: "0 0 9 ? * 8", wantErr: true},
		{name: "five fields keep classic days", spec: "0 9 * * 1", want: "0 9 * * 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSpec(tt.spec)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCron)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSpec_QuartzDaily(t *testing.T) {
	schedule, err := ParseSpec("0 0 9 * * ?")
	require.NoError(t, err)

	from := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), schedule.Next(from))
}

func TestParseSpec_QuartzDayOfWeek(t *testing.T) {
	sunday := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

	monday, err := ParseSpec("0 0 9 ? * 2")
	require.NoError(t, err)
	next := monday.Next(sunday)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), next)

	saturday, err := ParseSpec("0 0 9 ? * 7")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 24, 9, 0, 0, 0, time.UTC), saturday.Next(sunday))

	sun, err := ParseSpec("0 0 9 ? * 1")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, sun.Next(sunday).Weekday())
}

func TestValidateSpec(t *testing.T) {
	assert.NoError(t, ValidateSpec("0 0 10 * * ?"))
	assert.NoError(t, ValidateSpec("@every 1h"))
	assert.ErrorIs(t, ValidateSpec("not a cron"), ErrInvalidCron)
	assert.ErrorIs(t, ValidateSpec("0 0 25 * * ?"), ErrInvalidCron)
}

func TestOnceSchedule(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := onceSchedule{at: at}

	assert.Equal(t, at, s.Next(at.Add(-time.Minute)))
	assert.True(t, s.Next(at).IsZero())
	assert.True(t, s.Next(at.Add(time.Second)).IsZero())
}
