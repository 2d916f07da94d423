package jobs

import (
	"context"
	"fmt"

	"github.com/google/renameio/v2"

	xlog "github.com/mkaindl/epggen/internal/log"
)

// writeFileAtomic writes data with full durability guarantees using
// renameio: temp file, fsync, atomic rename. A failed run therefore never
// touches previously published output.
func writeFileAtomic(ctx context.Context, path string, data []byte) error {
	logger := xlog.FromContext(ctx)

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file %s: %w", path, err)
	}
	defer func() {
		// renameio removes the temp file if it was not committed.
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("cleanup pending file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write pending file %s: %w", path, err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}
