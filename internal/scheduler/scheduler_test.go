package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmstock/internal/config"
	"github.com/mamadbah2/farmstock/internal/domain/models"
	"github.com/mamadbah2/farmstock/internal/service/reporting"
)

type runnerFunc func(ctx context.Context, farmID models.ID, now time.Time) (*reporting.Digest, error)

func (f runnerFunc) Run(ctx context.Context, farmID models.ID, now time.Time) (*reporting.Digest, error) {
	return f(ctx, farmID, now)
}

func TestNewSchedulerRejectsUnknownTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * 5", Timezone: "Nowhere/Land"}, nil, nil)
	assert.Error(t, err)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "every friday", Timezone: "UTC"}, nil, nil)
	require.NoError(t, err)
	assert.Error(t, s.Start())
}

func TestSendInventoryDigest(t *testing.T) {
	t.Parallel()

	var (
		gotFarm models.ID
		gotNow  time.Time
		calls   int
	)
	runner := runnerFunc(func(ctx context.Context, farmID models.ID, now time.Time) (*reporting.Digest, error) {
		calls++
		gotFarm = farmID
		gotNow = now

		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(runTimeout), deadline, time.Minute)

		if calls > 1 {
			return nil, errors.New("backend unavailable")
		}
		return &reporting.Digest{FarmID: farmID}, nil
	})

	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * 5", Timezone: "Africa/Conakry", FarmID: "farmA"}, runner, nil)
	require.NoError(t, err)

	s.sendInventoryDigest()
	s.sendInventoryDigest()

	assert.Equal(t, 2, calls)
	assert.Equal(t, models.ID("farmA"), gotFarm)
	assert.Equal(t, "Africa/Conakry", gotNow.Location().String())
}

func TestStartAndStop(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * 5", Timezone: "UTC"}, runnerFunc(nil), nil)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}
