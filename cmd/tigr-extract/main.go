//go:build !rp2040

// Command tigr-extract recovers detector records from a raw card image (or
// a card block device) and writes them as CSV.
//
//	tigr-extract [-max-blocks N] [-o out.csv] card.img
package main

import (
	"bufio"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"tigr-go/extract"
)

func main() {
	maxBlocks := flag.Uint("max-blocks", 0, "stop after this many blocks (0 = until the first empty block)")
	outPath := flag.String("o", "", "output CSV file (default stdout)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if flag.NArg() != 1 {
		sugar.Fatal("usage: tigr-extract [-max-blocks N] [-o out.csv] <image>")
	}
	in, err := os.Open(flag.Arg(0))
	if err != nil {
		sugar.Fatalw("open image", "err", err)
	}
	defer in.Close()

	res, err := extract.Records(in, uint32(*maxBlocks))
	if err != nil {
		sugar.Fatalw("read image", "err", err, "records", len(res.Records))
	}

	out := os.Stdout
	if *outPath != "" {
		if out, err = os.Create(*outPath); err != nil {
			sugar.Fatalw("create output", "err", err)
		}
		defer out.Close()
	}
	w := bufio.NewWriter(out)
	if err := extract.WriteCSV(w, res.Records); err != nil {
		sugar.Fatalw("write csv", "err", err)
	}
	if err := w.Flush(); err != nil {
		sugar.Fatalw("write csv", "err", err)
	}

	logger.Info("extracted",
		zap.String("image", flag.Arg(0)),
		zap.Int("blocks", res.Blocks),
		zap.Int("records", len(res.Records)),
		zap.Int("malformed", res.Malformed),
	)
}
