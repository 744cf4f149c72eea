package retention

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/config"
	"github.com/minisource/httpscheduler/internal/models"
	"github.com/minisource/httpscheduler/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Job{}, &models.ExecutionLog{}))
	return db
}

func TestSweepNowDeletesOldLogsOnly(t *testing.T) {
	db := newTestDB(t)
	logRepo := repository.NewLogRepository(db)

	jobID := uuid.New()
	old := models.ExecutionLog{ID: uuid.New(), JobID: jobID, ExecutedAt: time.Now().AddDate(0, 0, -10), Status: models.ExecutionStatusSuccess}
	recent := models.ExecutionLog{ID: uuid.New(), JobID: jobID, ExecutedAt: time.Now(), Status: models.ExecutionStatusSuccess}

	require.NoError(t, logRepo.Insert(context.Background(), &old))
	require.NoError(t, logRepo.Insert(context.Background(), &recent))

	sweeper := NewSweeper(logRepo, config.RetentionConfig{Days: 3, SweepCron: "0 0 * * *"}, time.UTC)

	deleted, err := sweeper.SweepNow(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := logRepo.Count(context.Background(), models.LogFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)
}

func TestSweepNowNoopWhenRetentionNotPositive(t *testing.T) {
	db := newTestDB(t)
	logRepo := repository.NewLogRepository(db)

	sweeper := NewSweeper(logRepo, config.RetentionConfig{Days: 0, SweepCron: "0 0 * * *"}, time.UTC)

	deleted, err := sweeper.SweepNow(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestSweepNowHonorsOverride(t *testing.T) {
	db := newTestDB(t)
	logRepo := repository.NewLogRepository(db)

	jobID := uuid.New()
	entry := models.ExecutionLog{ID: uuid.New(), JobID: jobID, ExecutedAt: time.Now().AddDate(0, 0, -2), Status: models.ExecutionStatusSuccess}
	require.NoError(t, logRepo.Insert(context.Background(), &entry))

	sweeper := NewSweeper(logRepo, config.RetentionConfig{Days: 30, SweepCron: "0 0 * * *"}, time.UTC)

	override := 1
	deleted, err := sweeper.SweepNow(context.Background(), &override)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
