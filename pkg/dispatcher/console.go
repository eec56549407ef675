package dispatcher

import (
	"bufio"
	"context"
	"io"

	"go.uber.org/zap"
)

// ReadCommands feeds operator input lines into the returned queue until the
// input ends or ctx is done. The channel is closed when reading stops.
//
// A read blocked on a terminal cannot be interrupted, so callers should
// not wait for this goroutine on shutdown.
func ReadCommands(ctx context.Context, r io.Reader, log *zap.Logger) <-chan string {
	queue := make(chan string)

	go func() {
		defer close(queue)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case queue <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Warn("Operator console read failed", zap.Error(err))
			return
		}
		log.Info("Operator console closed")
	}()

	return queue
}
