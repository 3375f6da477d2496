// Package sim runs a detector node on the host against an emulated card and
// a synthetic pulse source.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tigr-go/diag"
	"tigr-go/internal/config"
	"tigr-go/measure"
	"tigr-go/node"
	"tigr-go/platform"
	"tigr-go/record"
	"tigr-go/recorder"
	"tigr-go/sdemu"
)

// Synthetic sensor calibration: 10 raw counts per degree.
const (
	simCal30 = 1000
	simCal85 = 1550
)

type media interface {
	sdemu.Media
	Sync() error
	Close() error
}

type memMedia struct{ sdemu.Memory }

func (memMedia) Sync() error  { return nil }
func (memMedia) Close() error { return nil }

// Summary is the outcome of one run.
type Summary struct {
	RunID  string
	Hits   int
	Status node.Status
}

// Sim owns one simulated node.
type Sim struct {
	cfg   *config.Config
	sugar *zap.SugaredLogger
	log   *zap.Logger
	runID string

	media media
	board *platform.Sim
	node  *node.Node
}

// New opens the card media and builds the node. cfg must already be
// validated and normalized.
func New(cfg *config.Config, logger *zap.Logger) (*Sim, error) {
	runID := uuid.New().String()
	logger = logger.With(zap.String("run", runID))
	s := &Sim{cfg: cfg, log: logger, sugar: logger.Sugar(), runID: runID}

	if cfg.Card.Image != "" {
		m, err := sdemu.OpenImage(cfg.Card.Image, cfg.Card.Blocks)
		if err != nil {
			return nil, fmt.Errorf("sim: open image: %w", err)
		}
		s.media = m
	} else {
		s.media = memMedia{sdemu.NewMemory(cfg.Card.Blocks)}
	}

	card := sdemu.New(s.media)
	card.SetFaults(sdemu.Faults{Absent: cfg.Card.Absent})
	s.board = platform.NewSim(card)
	s.node = node.New(cfg.NodeConfig(), s.board.Hardware(s.measurement()))
	s.node.Handler().OnFlush(s.logFlush)
	return s, nil
}

func (s *Sim) Node() *node.Node { return s.node }

func (s *Sim) measurement() measure.Source {
	if m := s.cfg.Node.Measurement; m != nil {
		return measure.Fixed(*m)
	}
	rng := rand.New(rand.NewSource(s.cfg.Sim.Seed + 1))
	var mu sync.Mutex
	return &measure.Calibrated{
		Cal30: simCal30,
		Cal85: simCal85,
		Read: func() (uint16, error) {
			mu.Lock()
			defer mu.Unlock()
			// 22..23 C
			return uint16(simCal30 - 80 + rng.Intn(11) - 5), nil
		},
	}
}

func (s *Sim) logFlush(r recorder.Report) {
	fields := []zap.Field{
		zap.Int("records", r.Records),
		zap.Int("blocks", r.Blocks),
		zap.Int("written", r.Written),
		zap.Int("failed", r.Failed),
		zap.Int("skipped", r.Skipped),
	}
	if r.Written > 0 {
		fields = append(fields, zap.Uint32("first_addr", r.FirstAddr))
	}
	if r.Err != nil {
		s.log.Warn("flush", append(fields, zap.Error(r.Err))...)
		return
	}
	s.log.Info("flush", fields...)
}

// Run initializes the card, then fires synthetic hits until ctx is done or
// the configured duration elapses. The node flushes its buffer on the way
// out and the media is synced and closed.
func (s *Sim) Run(ctx context.Context) (Summary, error) {
	defer func() {
		if err := s.media.Sync(); err != nil {
			s.sugar.Warnw("image sync", "err", err)
		}
		if err := s.media.Close(); err != nil {
			s.sugar.Warnw("image close", "err", err)
		}
	}()

	lw := &diag.LineWriter{Sink: func(line string) {
		s.log.Debug(line, zap.String("component", "node"))
	}}

	if err := s.node.Init(); err != nil {
		s.sugar.Warnw("card unavailable, blocks go to diagnostics", "err", err)
	} else {
		s.sugar.Infow("card ready", "blocks", s.cfg.Card.Blocks, "image", s.cfg.Card.Image)
	}

	if d := s.cfg.SimDuration(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	hits := 0
	nodeCtx, stopNode := context.WithCancel(context.Background())
	defer stopNode()
	g, gctx := errgroup.WithContext(nodeCtx)
	g.Go(func() error { return s.node.Run(gctx) })
	g.Go(func() error { return s.node.Diag().Pump(gctx, lw, 50*time.Millisecond) })

	if err := s.waitArmed(ctx); err == nil {
		hits = s.generate(ctx)
	}
	stopNode()
	err := g.Wait()
	s.node.Diag().Drain(lw)
	lw.Flush()

	sum := Summary{RunID: s.runID, Hits: hits, Status: s.node.Status()}
	st := sum.Status
	s.sugar.Infow("run complete",
		"hits", hits,
		"events", st.Events,
		"cursor", st.Cursor,
		"flushes", st.Recorder.Flushes,
		"written", st.Recorder.Written,
		"skipped", st.Recorder.Skipped,
		"diag_dropped", st.DiagDropped,
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return sum, err
	}
	return sum, nil
}

func (s *Sim) waitArmed(ctx context.Context) error {
	for _, p := range s.board.Lines {
		for !p.Armed() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
	}
	return nil
}

// generate fires pulses with exponentially distributed gaps. A pulse is
// only fired once the previous one has been handled, so none coalesce in
// the latch.
func (s *Sim) generate(ctx context.Context) int {
	rng := rand.New(rand.NewSource(s.cfg.Sim.Seed))
	mean := s.cfg.SimPeriod()
	n := 0
	for {
		gap := time.Duration(rng.ExpFloat64() * float64(mean))
		select {
		case <-ctx.Done():
			return n
		case <-time.After(gap):
		}
		s.board.Hit(uint8(rng.Intn(record.NumBands) + 1))
		n++
		want := uint32(n)
		for s.node.Handler().Events() < want {
			select {
			case <-ctx.Done():
				return n
			case <-time.After(100 * time.Microsecond):
			}
		}
	}
}
