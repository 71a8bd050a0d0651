// Command promo-ingest builds the promo code bloom filter snapshot from
// gzipped newline-delimited code list files. The api-server loads the
// snapshot at startup to prefilter discount codes before the upstream
// lookup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/xenking/pizza-storefront/internal/promo"
)

func main() {
	var (
		dataDir  string
		numFiles int
		output   string
		capacity uint
		fpr      float64
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing promocodesN.gz files")
	flag.IntVar(&numFiles, "files", 1, "number of promocodesN.gz files to scan")
	flag.StringVar(&output, "output", "promo.bloom", "output snapshot path")
	flag.UintVar(&capacity, "capacity", 1_000_000, "expected number of codes")
	flag.Float64Var(&fpr, "fpr", 0.001, "target false positive rate")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, numFiles, output, capacity, fpr); err != nil {
		slog.Error("promo ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("promo ingest completed successfully", slog.String("output", output))
}

func run(ctx context.Context, dataDir string, numFiles int, output string, capacity uint, fpr float64) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("promocodes%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	slog.Info("building bloom filter", slog.Int("files", numFiles))

	filter, err := promo.BuildFromCodeLists(files, capacity, fpr)
	if err != nil {
		return err
	}

	return filter.Save(output)
}
