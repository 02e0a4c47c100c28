package security

import (
	"context"
	"testing"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionSweeper_Sweep(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	day := 24 * time.Hour

	seedEvent(t, env, model.EventLoginSuccess, model.SeverityInfo, 400*day, nil)
	seedEvent(t, env, model.EventLoginSuccess, model.SeverityInfo, 300*day, nil)
	seedAlert(t, env, model.SeverityWarning, 200*day, true)
	seedAlert(t, env, model.SeverityWarning, 30*day, true)
	seedAlert(t, env, model.SeverityWarning, 400*day, false)

	result, err := env.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.EventsDeleted)
	assert.EqualValues(t, 1, result.AlertsDeleted)

	var events, alerts int64
	require.NoError(t, env.db.Model(&model.SecurityEvent{}).Count(&events).Error)
	require.NoError(t, env.db.Model(&model.SecurityAlert{}).Count(&alerts).Error)
	assert.EqualValues(t, 1, events)
	assert.EqualValues(t, 2, alerts)
}

func TestRetentionSweeper_Schedule(t *testing.T) {
	env := newTestEnv(t, nil)
	c := cron.New()

	id, err := env.sweeper.Schedule(context.Background(), c, "0 3 * * *")
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = env.sweeper.Schedule(context.Background(), c, "not a schedule")
	assert.Error(t, err)
}
