package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"pixkeys/internal/pixkey/models"
	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
)

// Expire applies the deadline transition to keyID if its deadline passed.
// A key that is not overdue is returned unchanged.
func (s *Service) Expire(ctx context.Context, keyID id.KeyID) (*models.Key, error) {
	return s.retryOnConflict(ctx, func(ctx context.Context) (*models.Key, error) {
		key, err := s.load(ctx, keyID)
		if err != nil {
			return nil, err
		}
		return s.expireIfOverdue(ctx, key, s.now(ctx))
	})
}

// SweepOnce expires every overdue key, one batch at a time, and returns how
// many keys changed state.
func (s *Service) SweepOnce(ctx context.Context) (int, error) {
	var expired atomic.Int64
	seen := make(map[id.KeyID]bool)
	for {
		ids, err := s.keys.ListOverdue(ctx, s.now(ctx), s.sweepBatch)
		if err != nil {
			return int(expired.Load()), dErrors.Wrap(err, dErrors.CodeInternal, "failed to list overdue keys")
		}
		var batch []id.KeyID
		for _, keyID := range ids {
			if !seen[keyID] {
				seen[keyID] = true
				batch = append(batch, keyID)
			}
		}
		if len(batch) == 0 {
			return int(expired.Load()), nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.sweepConcurrency)
		for _, keyID := range batch {
			g.Go(func() error {
				before, err := s.keys.Load(gctx, keyID)
				if err != nil {
					return nil
				}
				after, err := s.Expire(gctx, keyID)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return err
					}
					s.logger.WarnContext(gctx, "failed to expire key",
						"key_id", keyID,
						"error", err,
					)
					return nil
				}
				if after.State != before.State {
					expired.Add(1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return int(expired.Load()), err
		}
		if len(ids) < s.sweepBatch {
			return int(expired.Load()), nil
		}
	}
}

// RunSweeper calls SweepOnce every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.ErrorContext(ctx, "deadline sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.InfoContext(ctx, "deadline sweep expired keys", "count", n)
			}
		}
	}
}
