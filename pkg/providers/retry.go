package providers

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/sceylan/pyfinder-go/pkg/merge"
	"github.com/sceylan/pyfinder-go/pkg/perrors"
)

// MaxAttempts is the number of in-line attempts against a provider before
// the worker treats the stage as contributing no data.
const MaxAttempts = 3

// RetryFetch wraps a Fetcher's Fetch with up to MaxAttempts tries and
// exponential backoff, per the TransportError handling in §7: a failed
// provider contributes no data for the stage rather than failing the
// whole run, so callers should log and continue on error rather than
// abort the worker.
func RetryFetch(ctx context.Context, f Fetcher, params QueryParams, log zerolog.Logger) ([]merge.ChannelReading, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	attempt := 0
	readings, err := backoff.Retry(ctx, func() ([]merge.ChannelReading, error) {
		attempt++
		r, err := f.Fetch(ctx, params)
		if err != nil {
			log.Warn().Err(err).Str("provider", f.Name()).Int("attempt", attempt).Msg("provider fetch failed")
			return nil, err
		}
		return r, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(MaxAttempts))

	if err != nil {
		return nil, &perrors.TransportError{Provider: f.Name(), Op: "fetch", Err: err}
	}
	return readings, nil
}
