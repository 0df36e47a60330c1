package dataexport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/setavenger/blindbit-tweaks/internal/database"
	"github.com/setavenger/blindbit-tweaks/internal/types"
)

func writeToCSV(path string, logger zerolog.Logger, write func(w *csv.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	logger.Info().Msgf("Writing to %s", path)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed creating file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err = write(writer); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

/* Tweaks */

// WriteTweaks writes every stored tweak, grouped by block, highest tweak count first.
func WriteTweaks(ctx context.Context, store database.Reader, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writeTweaks(ctx, store, writer); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeTweaks(ctx context.Context, store database.Reader, writer *csv.Writer) error {
	metrics, err := store.TweakMetrics(ctx)
	if err != nil {
		return fmt.Errorf("error fetching blocks: %w", err)
	}

	if err = writer.Write([]string{"blockHash", "txid", "tweak"}); err != nil {
		return err
	}
	for _, m := range metrics {
		tweaks, err := store.TweaksByBlockHash(ctx, m.BlockHash)
		if err != nil {
			return fmt.Errorf("error fetching tweaks for %s: %w", m.BlockHash, err)
		}
		for _, t := range tweaks {
			if err = writer.Write([]string{t.BlockHash, t.Txid, t.Tweak}); err != nil {
				return err
			}
		}
	}
	return nil
}

func ExportTweaks(ctx context.Context, store database.Reader, path string, logger zerolog.Logger) error {
	return writeToCSV(path, logger, func(w *csv.Writer) error {
		return writeTweaks(ctx, store, w)
	})
}

/* Block stats */

func convertTweakMetricsToRecords(metrics []types.TweakMetrics) [][]string {
	records := [][]string{{"blockHash", "tweakCount"}}
	for _, m := range metrics {
		records = append(records, []string{
			m.BlockHash,
			strconv.FormatUint(uint64(m.TweakCount), 10),
		})
	}
	return records
}

func ExportBlockStats(ctx context.Context, store database.Reader, path string, logger zerolog.Logger) error {
	metrics, err := store.TweakMetrics(ctx)
	if err != nil {
		return fmt.Errorf("error fetching tweak metrics: %w", err)
	}
	return writeToCSV(path, logger, func(w *csv.Writer) error {
		return w.WriteAll(convertTweakMetricsToRecords(metrics))
	})
}

// ExportAll writes tweaks and block stats into <dir>/tweaks-<ts>.csv and
// <dir>/block-stats-<ts>.csv and returns the written paths.
func ExportAll(ctx context.Context, store database.Reader, dir string, logger zerolog.Logger) ([]string, error) {
	logger.Info().Msg("Exporting data")
	timestamp := time.Now().Unix()

	tweaksPath := filepath.Join(dir, fmt.Sprintf("tweaks-%d.csv", timestamp))
	if err := ExportTweaks(ctx, store, tweaksPath, logger); err != nil {
		logger.Err(err).Msg("error exporting tweaks")
		return nil, err
	}

	statsPath := filepath.Join(dir, fmt.Sprintf("block-stats-%d.csv", timestamp))
	if err := ExportBlockStats(ctx, store, statsPath, logger); err != nil {
		logger.Err(err).Msg("error exporting block stats")
		return nil, err
	}

	logger.Info().Msg("Export Done")
	return []string{tweaksPath, statsPath}, nil
}
