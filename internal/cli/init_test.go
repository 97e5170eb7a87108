package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"autonomos/internal/config"
	"autonomos/internal/events"
	"autonomos/internal/log"
	"autonomos/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:         "3000",
		DataBackend:  config.BackendMemory,
		DispatchMode: config.DispatchInline,
		Workers:      1,
		QueueSize:    1,
		Transcriber:  config.TranscriberNone,
		Timezone:     "America/Sao_Paulo",
		KafkaTopic:   "ledger.entries",
	}
}

func TestSetupLogger(t *testing.T) {
	cfg := testConfig()
	cfg.LogLevel = "debug"

	logger := SetupLogger(cfg, log.ComponentWorker)
	assert.Equal(t, log.ComponentWorker, logger.Component())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewTranscriber(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	tr, closeFn, err := NewTranscriber(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, tr)
	assert.NoError(t, closeFn())

	cfg.Transcriber = config.TranscriberOpenAI
	cfg.OpenAIAPIKey = "sk-test"
	tr, _, err = NewTranscriber(ctx, cfg)
	require.NoError(t, err)
	assert.NotNil(t, tr)

	cfg.Transcriber = "vosk"
	_, closeFn, err = NewTranscriber(ctx, cfg)
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}

func TestNewEventPublisher(t *testing.T) {
	cfg := testConfig()
	logger := log.Default(log.ComponentApp)

	assert.IsType(t, events.NopPublisher{}, NewEventPublisher(cfg, logger))

	cfg.KafkaBrokers = []string{"localhost:9092"}
	p := NewEventPublisher(cfg, logger)
	assert.IsType(t, &events.KafkaPublisher{}, p)
	assert.NoError(t, p.Close())
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	logger := log.Default(log.ComponentApp)

	cfg := testConfig()
	cfg.DataBackend = config.BackendSQLite
	cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "ledger.db")

	res, err := OpenBackend(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })
	assert.NoError(t, res.Backend.Ping(ctx))
}

func TestNewBot(t *testing.T) {
	cfg := testConfig()
	bot, cleanup, err := NewBot(context.Background(), cfg, memory.New(), log.Default(log.ComponentApp))
	require.NoError(t, err)
	assert.NotNil(t, bot)
	cleanup()
}
