package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/cbodonnell/econempire/pkg/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to the database and applies the migrations
// in the migrations directory when one is given.
// The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string, migrations string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	var username string
	var database string
	err = pool.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to query database: %v", err)
	}
	log.Info("Connected to %s as %s", database, username)

	if migrations != "" {
		files, err := readMigrations(migrations)
		if err != nil {
			pool.Close()
			return nil, err
		}
		for _, m := range files {
			if _, err := pool.Exec(ctx, m.sql); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to execute migration %s: %v", m.path, err)
			}
		}
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) CreateGame(ctx context.Context, game *types.Game) error {
	q := `
	INSERT INTO games (id, total_rounds, current_round, status, time_remaining, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO NOTHING;
	`
	_, err := r.pool.Exec(ctx, q, game.ID, game.TotalRounds, game.CurrentRound, string(game.Status), game.TimeRemaining, game.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert game: %v", err)
	}

	return nil
}

func (r *PostgresRepository) UpdateGame(ctx context.Context, game *types.Game) error {
	q := `
	UPDATE games SET status = $2, current_round = $3, time_remaining = $4 WHERE id = $1;
	`
	tag, err := r.pool.Exec(ctx, q, game.ID, string(game.Status), game.CurrentRound, game.TimeRemaining)
	if err != nil {
		return fmt.Errorf("failed to update game: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{}
	}

	return nil
}

func (r *PostgresRepository) InsertProduction(ctx context.Context, gameID string, facts []types.ProductionFact) error {
	batch := &pgx.Batch{}
	q := `
	INSERT INTO production (game_id, country, product, quantity) VALUES ($1, $2, $3, $4)
	ON CONFLICT (game_id, country, product) DO NOTHING;
	`
	for _, f := range facts {
		batch.Queue(q, gameID, string(f.Country), string(f.Product), f.Quantity)
	}
	if err := r.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert production: %v", err)
	}

	return nil
}

func (r *PostgresRepository) InsertDemand(ctx context.Context, gameID string, facts []types.DemandFact) error {
	batch := &pgx.Batch{}
	q := `
	INSERT INTO demand (game_id, country, product, quantity) VALUES ($1, $2, $3, $4)
	ON CONFLICT (game_id, country, product) DO NOTHING;
	`
	for _, f := range facts {
		batch.Queue(q, gameID, string(f.Country), string(f.Product), f.Quantity)
	}
	if err := r.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert demand: %v", err)
	}

	return nil
}

func (r *PostgresRepository) InsertTariffRecords(ctx context.Context, gameID string, records []types.TariffRecord) error {
	batch := &pgx.Batch{}
	q := `
	INSERT INTO tariff_records (game_id, sequence, round_number, product, from_country, to_country, rate, submitted_by, submitted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (game_id, sequence) DO NOTHING;
	`
	for _, rec := range records {
		batch.Queue(q, gameID, int64(rec.Sequence), rec.Round, string(rec.Product), string(rec.FromCountry), string(rec.ToCountry), rec.Rate, rec.SubmittedBy, rec.Timestamp)
	}
	if err := r.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert tariff records: %v", err)
	}

	return nil
}

// sendBatch runs the batch inside a transaction so a partial write is never visible.
func (r *PostgresRepository) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (r *PostgresRepository) QueryGameData(ctx context.Context, gameID string, scope QueryScope) (*types.GameData, error) {
	game, err := r.queryGame(ctx, `SELECT id, total_rounds, current_round, status, time_remaining, created_at FROM games WHERE id = $1;`, gameID)
	if err != nil {
		return nil, err
	}
	data := &types.GameData{
		Game:        game,
		Production:  []types.ProductionFact{},
		Demand:      []types.DemandFact{},
		TariffRates: []types.TariffRecord{},
	}

	rows, err := r.pool.Query(ctx, `SELECT country, product, quantity FROM production WHERE game_id = $1 ORDER BY product, country;`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query production: %v", err)
	}
	production, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.ProductionFact, error) {
		var f types.ProductionFact
		err := row.Scan(&f.Country, &f.Product, &f.Quantity)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan production: %v", err)
	}
	data.Production = append(data.Production, production...)

	q := `SELECT country, product, quantity FROM demand WHERE game_id = $1 AND ($2 = '' OR country = $2) ORDER BY product, country;`
	rows, err = r.pool.Query(ctx, q, gameID, string(scope.Country))
	if err != nil {
		return nil, fmt.Errorf("failed to query demand: %v", err)
	}
	demand, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.DemandFact, error) {
		var f types.DemandFact
		err := row.Scan(&f.Country, &f.Product, &f.Quantity)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan demand: %v", err)
	}
	data.Demand = append(data.Demand, demand...)

	q = `
	SELECT sequence, round_number, product, from_country, to_country, rate, submitted_by, submitted_at
	FROM tariff_records WHERE game_id = $1 ORDER BY sequence;
	`
	rows, err = r.pool.Query(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tariff records: %v", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.TariffRecord, error) {
		var rec types.TariffRecord
		var seq int64
		err := row.Scan(&seq, &rec.Round, &rec.Product, &rec.FromCountry, &rec.ToCountry, &rec.Rate, &rec.SubmittedBy, &rec.Timestamp)
		rec.Sequence = uint64(seq)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan tariff records: %v", err)
	}
	data.TariffRates = append(data.TariffRates, records...)

	return data, nil
}

func (r *PostgresRepository) LatestGame(ctx context.Context) (*types.Game, error) {
	return r.queryGame(ctx, `SELECT id, total_rounds, current_round, status, time_remaining, created_at FROM games ORDER BY created_at DESC LIMIT 1;`)
}

func (r *PostgresRepository) queryGame(ctx context.Context, q string, args ...interface{}) (*types.Game, error) {
	game := &types.Game{}
	err := r.pool.QueryRow(ctx, q, args...).Scan(&game.ID, &game.TotalRounds, &game.CurrentRound, &game.Status, &game.TimeRemaining, &game.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan game: %v", err)
	}

	return game, nil
}
