package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerodha-allocator/internal/models"
)

func TestLogAllocation(t *testing.T) {
	var buf bytes.Buffer
	logger := WithMode(zerolog.New(&buf), models.AmountDriven)

	LogAllocation(logger, &models.AllocationResult{
		Mode:   models.AmountDriven,
		Rows:   make([]models.RowResult, 2),
		Totals: models.Totals{Funds: 1000, TotalCost: 1200, Remaining: -200},
		Issues: []models.Issue{{Level: models.LevelError, Code: models.CodeAmountOverFunds}},
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "allocation", entry["event"])
	assert.Equal(t, "amount", entry["mode"])
	assert.Equal(t, float64(1), entry["errors"])
	assert.Equal(t, float64(2), entry["rows"])
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := WithPlan(zerolog.New(&buf), "p-1", "q1")

	fromCtx := FromContext(WithLogger(context.Background(), logger), zerolog.Nop())
	fromCtx.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"plan_id":"p-1"`)

	var fallback bytes.Buffer
	fromFallback := FromContext(context.Background(), zerolog.New(&fallback))
	fromFallback.Info().Msg("fallback")
	assert.Contains(t, fallback.String(), `"message":"fallback"`)
	assert.NotContains(t, buf.String(), "fallback")
}

func TestNewLoggerWithConfig_FileOnly(t *testing.T) {
	cfg := LogConfig{
		Level:    "debug",
		File:     true,
		FilePath: filepath.Join(t.TempDir(), "logs", "allocator.log"),
		MaxSize:  1,
	}

	logger := NewLoggerWithConfig(cfg)
	logger.Debug().Msg("written")

	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	assert.FileExists(t, cfg.FilePath)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("bogus"))
	assert.Equal(t, zerolog.Disabled, parseLevel("disabled"))
}
