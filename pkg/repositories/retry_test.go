package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	mocks "github.com/cbodonnell/econempire/mocks/github.com/cbodonnell/econempire/pkg/repositories"
	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRetrying(next repositories.Repository, tries uint) *repositories.RetryingRepository {
	return repositories.NewRetryingRepository(repositories.NewRetryingRepositoryOptions{
		Repository:      next,
		MaxTries:        tries,
		InitialInterval: time.Millisecond,
	})
}

func TestRetryingRepository_RetriesTransientErrors(t *testing.T) {
	mockRepo := mocks.NewRepository(t)
	game := &types.Game{ID: "game-1"}

	mockRepo.EXPECT().CreateGame(mock.Anything, game).Return(errors.New("connection reset")).Twice()
	mockRepo.EXPECT().CreateGame(mock.Anything, game).Return(nil).Once()

	err := newRetrying(mockRepo, 3).CreateGame(context.Background(), game)
	assert.NoError(t, err)
}

func TestRetryingRepository_GivesUp(t *testing.T) {
	mockRepo := mocks.NewRepository(t)
	records := []types.TariffRecord{{Sequence: 1}}

	mockRepo.EXPECT().InsertTariffRecords(mock.Anything, "game-1", records).Return(errors.New("database is locked")).Times(2)

	err := newRetrying(mockRepo, 2).InsertTariffRecords(context.Background(), "game-1", records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestRetryingRepository_NotFoundIsPermanent(t *testing.T) {
	mockRepo := mocks.NewRepository(t)

	mockRepo.EXPECT().LatestGame(mock.Anything).Return(nil, &repositories.ErrNotFound{}).Once()

	_, err := newRetrying(mockRepo, 5).LatestGame(context.Background())
	assert.True(t, repositories.IsNotFound(err))
}

func TestRetryingRepository_ReturnsValue(t *testing.T) {
	mockRepo := mocks.NewRepository(t)
	data := &types.GameData{Game: &types.Game{ID: "game-1"}}
	scope := repositories.QueryScope{Country: types.CountryJapan}

	mockRepo.EXPECT().QueryGameData(mock.Anything, "game-1", scope).Return(nil, errors.New("timeout")).Once()
	mockRepo.EXPECT().QueryGameData(mock.Anything, "game-1", scope).Return(data, nil).Once()

	got, err := newRetrying(mockRepo, 3).QueryGameData(context.Background(), "game-1", scope)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
