package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tigr-go/extract"
	"tigr-go/internal/config"
)

func simConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))
	config.Normalize(cfg)
	return cfg
}

func TestRunWritesRecoverableImage(t *testing.T) {
	img := filepath.Join(t.TempDir(), "card.img")
	cfg := simConfig(t, `
node:
  measurement: 19
card:
  image: `+img+`
  blocks: 256
sim:
  rate_hz: 400
  duration_ms: 300
  seed: 3
`)
	core, logs := observer.New(zap.InfoLevel)
	s, err := New(cfg, zap.New(core))
	require.NoError(t, err)

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, sum.RunID)
	require.Positive(t, sum.Hits)
	require.Equal(t, uint32(sum.Hits), sum.Status.Events)
	require.Zero(t, sum.Status.Recorder.Pending)

	f, err := os.Open(img)
	require.NoError(t, err)
	defer f.Close()
	res, err := extract.Records(f, 0)
	require.NoError(t, err)
	require.Zero(t, res.Malformed)
	require.Len(t, res.Records, sum.Hits)
	for i, r := range res.Records {
		require.Equal(t, uint32(i+1), r.Seq)
		require.Equal(t, int32(19), r.Measurement)
	}
	require.Equal(t, int(sum.Status.Cursor), res.Blocks)

	require.Equal(t, 1, logs.FilterMessage("run complete").Len())
	require.Positive(t, logs.FilterMessage("flush").Len())
}

func TestRunWithAbsentCardSkipsBlocks(t *testing.T) {
	cfg := simConfig(t, `
card:
  absent: true
  blocks: 16
sim:
  rate_hz: 200
  duration_ms: 200
`)
	cfg.Card.InitAttempts = 1
	core, logs := observer.New(zap.DebugLevel)
	s, err := New(cfg, zap.New(core))
	require.NoError(t, err)

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, sum.Status.Cursor)
	require.Zero(t, sum.Status.Recorder.Written)
	if sum.Hits > 0 {
		require.Positive(t, sum.Status.Recorder.Skipped)
	}
	require.Positive(t, logs.FilterMessage("card: not detected").Len())
	require.Positive(t, logs.FilterMessage("card unavailable, blocks go to diagnostics").Len())
}

func TestMeasurementDefaultsToCalibratedSensor(t *testing.T) {
	cfg := simConfig(t, "")
	s, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	m := s.measurement()
	for i := 0; i < 20; i++ {
		v := m.Sample()
		require.GreaterOrEqual(t, v, int32(22))
		require.LessOrEqual(t, v, int32(23))
	}
}
