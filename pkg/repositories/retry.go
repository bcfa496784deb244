package repositories

import (
	"context"
	"time"

	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/log"
	"github.com/cenkalti/backoff/v5"
)

// RetryingRepository retries failed calls to another repository with
// exponential backoff. Not found errors are returned immediately.
type RetryingRepository struct {
	next            Repository
	maxTries        uint
	initialInterval time.Duration
}

type NewRetryingRepositoryOptions struct {
	Repository      Repository
	MaxTries        uint
	InitialInterval time.Duration
}

func NewRetryingRepository(opts NewRetryingRepositoryOptions) *RetryingRepository {
	maxTries := opts.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}
	return &RetryingRepository{
		next:            opts.Repository,
		maxTries:        maxTries,
		initialInterval: opts.InitialInterval,
	}
}

func retry[T any](ctx context.Context, r *RetryingRepository, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	if r.initialInterval > 0 {
		b.InitialInterval = r.initialInterval
	}
	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && IsNotFound(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Warn("Repository %s failed, retrying in %s: %v", op, d, err)
		}),
	)
}

func retryExec(ctx context.Context, r *RetryingRepository, op string, fn func() error) error {
	_, err := retry(ctx, r, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (r *RetryingRepository) Close(ctx context.Context) error {
	return r.next.Close(ctx)
}

func (r *RetryingRepository) CreateGame(ctx context.Context, game *types.Game) error {
	return retryExec(ctx, r, "create game", func() error {
		return r.next.CreateGame(ctx, game)
	})
}

func (r *RetryingRepository) UpdateGame(ctx context.Context, game *types.Game) error {
	return retryExec(ctx, r, "update game", func() error {
		return r.next.UpdateGame(ctx, game)
	})
}

func (r *RetryingRepository) InsertProduction(ctx context.Context, gameID string, facts []types.ProductionFact) error {
	return retryExec(ctx, r, "insert production", func() error {
		return r.next.InsertProduction(ctx, gameID, facts)
	})
}

func (r *RetryingRepository) InsertDemand(ctx context.Context, gameID string, facts []types.DemandFact) error {
	return retryExec(ctx, r, "insert demand", func() error {
		return r.next.InsertDemand(ctx, gameID, facts)
	})
}

func (r *RetryingRepository) InsertTariffRecords(ctx context.Context, gameID string, records []types.TariffRecord) error {
	return retryExec(ctx, r, "insert tariff records", func() error {
		return r.next.InsertTariffRecords(ctx, gameID, records)
	})
}

func (r *RetryingRepository) QueryGameData(ctx context.Context, gameID string, scope QueryScope) (*types.GameData, error) {
	return retry(ctx, r, "query game data", func() (*types.GameData, error) {
		return r.next.QueryGameData(ctx, gameID, scope)
	})
}

func (r *RetryingRepository) LatestGame(ctx context.Context) (*types.Game, error) {
	return retry(ctx, r, "latest game", func() (*types.Game, error) {
		return r.next.LatestGame(ctx)
	})
}
