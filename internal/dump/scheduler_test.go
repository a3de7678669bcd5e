package dump

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mysql-dump/internal/errors"
	"mysql-dump/internal/logging"
)

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	scheduler := NewScheduler("not a cron line", logging.NewDefaultLogger())

	err := scheduler.Run(context.Background(), func(context.Context) {})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeConfig, apperrors.GetErrorType(err))
	assert.Contains(t, err.Error(), "invalid schedule expression")
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	scheduler := NewScheduler("*/5 * * * *", logging.NewDefaultLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- scheduler.Run(ctx, func(context.Context) {
			t.Error("the schedule must not fire for a cancelled context")
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}
