//go:build !rp2040

// Command tigr-sim runs a detector node on the host against an emulated
// card, firing synthetic pulses.
//
//	tigr-sim [-config tigr.yaml] [-image card.img] [-console] [-prod]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tigr-go/console"
	"tigr-go/internal/config"
	"tigr-go/internal/sim"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file (defaults apply when empty)")
	image := flag.String("image", "", "card image file, overrides card.image")
	interactive := flag.Bool("console", false, "serve the diagnostic console on stdin")
	prod := flag.Bool("prod", false, "production (JSON) logging")
	flag.Parse()

	logger, err := newLogger(*prod)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg := &config.Config{}
	if *cfgPath != "" {
		if cfg, err = config.Load(*cfgPath); err != nil {
			sugar.Fatalw("load config", "err", err)
		}
	}
	if *image != "" {
		cfg.Card.Image = *image
	}
	if err := config.Validate(cfg); err != nil {
		sugar.Fatalw("invalid config", "err", err)
	}
	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	s, err := sim.New(cfg, logger)
	if err != nil {
		sugar.Fatalw("start", "err", err)
	}
	if *interactive {
		con := console.New(s.Node(), os.Stdout)
		go con.Serve(ctx, os.Stdin)
	}

	sum, err := s.Run(ctx)
	if err != nil {
		sugar.Errorw("run failed", "run", sum.RunID, "err", err)
		os.Exit(1)
	}
}

func newLogger(prod bool) (*zap.Logger, error) {
	if prod {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
