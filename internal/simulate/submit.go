package simulate

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smfc/matchday/internal/domain/model"
	"github.com/smfc/matchday/pkg/logger"
)

// Backpressure retry policy.
const (
	maxAttempts    = 5
	initialBackoff = 20 * time.Millisecond
)

type submitCounters struct {
	submitted  atomic.Int64
	accepted   atomic.Int64
	duplicates atomic.Int64
	throttled  atomic.Int64
	failed     atomic.Int64
	acceptedID sync.Map // submission id -> struct{}
}

// submitPredictions posts every submission with at most workers requests in
// flight. Rejected submissions are counted, not returned; only a canceled
// context aborts the batch.
func submitPredictions(ctx context.Context, c *Client, workers int, subs []model.Submission, counters *submitCounters) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, sub := range subs {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			counters.submitted.Add(1)
			switch submitOne(gCtx, c, sub, counters) {
			case http.StatusAccepted:
				counters.accepted.Add(1)
				counters.acceptedID.Store(sub.SubmissionID, struct{}{})
			case http.StatusOK:
				counters.duplicates.Add(1)
			default:
				counters.failed.Add(1)
			}
			return gCtx.Err()
		})
	}
	return g.Wait()
}

// submitOne posts sub, backing off while the server reports a full queue.
// It returns the final status code, or 0 on a transport error.
func submitOne(ctx context.Context, c *Client, sub model.Submission, counters *submitCounters) int {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		status, err := c.Do(ctx, http.MethodPost, "/predictions", sub, nil, http.StatusAccepted, http.StatusOK)
		if err == nil {
			return status
		}
		if status != http.StatusTooManyRequests || attempt == maxAttempts {
			logger.Get().Debug(ctx, "prediction rejected",
				logger.String("submissionID", sub.SubmissionID),
				logger.String("player", sub.PlayerName),
				logger.Error(err))
			return status
		}
		counters.throttled.Add(1)
		select {
		case <-ctx.Done():
			return 0
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
