package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cbodonnell/econempire/pkg/game/types"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database at path and applies the migrations
// found in the migrations directory.
func NewSQLiteRepository(ctx context.Context, path string, migrations string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	// a single connection keeps in-memory databases shared and serializes writers
	db.SetMaxOpenConns(1)

	files, err := readMigrations(migrations)
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, m := range files {
		if _, err := db.ExecContext(ctx, m.sql); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute migration %s: %v", m.path, err)
		}
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateGame(ctx context.Context, game *types.Game) error {
	q := `
	INSERT OR IGNORE INTO games (id, total_rounds, current_round, status, time_remaining, created_at)
	VALUES (?, ?, ?, ?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, q, game.ID, game.TotalRounds, game.CurrentRound, string(game.Status), game.TimeRemaining, game.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert game: %v", err)
	}

	return nil
}

func (r *SQLiteRepository) UpdateGame(ctx context.Context, game *types.Game) error {
	q := `
	UPDATE games SET status = ?, current_round = ?, time_remaining = ? WHERE id = ?;
	`
	res, err := r.db.ExecContext(ctx, q, string(game.Status), game.CurrentRound, game.TimeRemaining, game.ID)
	if err != nil {
		return fmt.Errorf("failed to update game: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %v", err)
	}
	if n == 0 {
		return &ErrNotFound{}
	}

	return nil
}

func (r *SQLiteRepository) InsertProduction(ctx context.Context, gameID string, facts []types.ProductionFact) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	q := `
	INSERT OR IGNORE INTO production (game_id, country, product, quantity)
	VALUES (?, ?, ?, ?);
	`
	for _, f := range facts {
		if _, err := tx.ExecContext(ctx, q, gameID, string(f.Country), string(f.Product), f.Quantity); err != nil {
			return fmt.Errorf("failed to insert production: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (r *SQLiteRepository) InsertDemand(ctx context.Context, gameID string, facts []types.DemandFact) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	q := `
	INSERT OR IGNORE INTO demand (game_id, country, product, quantity)
	VALUES (?, ?, ?, ?);
	`
	for _, f := range facts {
		if _, err := tx.ExecContext(ctx, q, gameID, string(f.Country), string(f.Product), f.Quantity); err != nil {
			return fmt.Errorf("failed to insert demand: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (r *SQLiteRepository) InsertTariffRecords(ctx context.Context, gameID string, records []types.TariffRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	q := `
	INSERT OR IGNORE INTO tariff_records (game_id, sequence, round_number, product, from_country, to_country, rate, submitted_by, submitted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	for _, rec := range records {
		_, err := tx.ExecContext(ctx, q, gameID, rec.Sequence, rec.Round, string(rec.Product), string(rec.FromCountry), string(rec.ToCountry), rec.Rate, rec.SubmittedBy, rec.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert tariff record: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (r *SQLiteRepository) QueryGameData(ctx context.Context, gameID string, scope QueryScope) (*types.GameData, error) {
	game, err := r.queryGame(ctx, `SELECT id, total_rounds, current_round, status, time_remaining, created_at FROM games WHERE id = ?;`, gameID)
	if err != nil {
		return nil, err
	}
	data := &types.GameData{
		Game:        game,
		Production:  []types.ProductionFact{},
		Demand:      []types.DemandFact{},
		TariffRates: []types.TariffRecord{},
	}

	rows, err := r.db.QueryContext(ctx, `SELECT country, product, quantity FROM production WHERE game_id = ? ORDER BY product, country;`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query production: %v", err)
	}
	for rows.Next() {
		var f types.ProductionFact
		if err := rows.Scan(&f.Country, &f.Product, &f.Quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan production: %v", err)
		}
		data.Production = append(data.Production, f)
	}
	rows.Close()

	q := `SELECT country, product, quantity FROM demand WHERE game_id = ? AND (? = '' OR country = ?) ORDER BY product, country;`
	rows, err = r.db.QueryContext(ctx, q, gameID, string(scope.Country), string(scope.Country))
	if err != nil {
		return nil, fmt.Errorf("failed to query demand: %v", err)
	}
	for rows.Next() {
		var f types.DemandFact
		if err := rows.Scan(&f.Country, &f.Product, &f.Quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan demand: %v", err)
		}
		data.Demand = append(data.Demand, f)
	}
	rows.Close()

	q = `
	SELECT sequence, round_number, product, from_country, to_country, rate, submitted_by, submitted_at
	FROM tariff_records WHERE game_id = ? ORDER BY sequence;
	`
	rows, err = r.db.QueryContext(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tariff records: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec types.TariffRecord
		if err := rows.Scan(&rec.Sequence, &rec.Round, &rec.Product, &rec.FromCountry, &rec.ToCountry, &rec.Rate, &rec.SubmittedBy, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan tariff record: %v", err)
		}
		data.TariffRates = append(data.TariffRates, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tariff records: %v", err)
	}

	return data, nil
}

func (r *SQLiteRepository) LatestGame(ctx context.Context) (*types.Game, error) {
	return r.queryGame(ctx, `SELECT id, total_rounds, current_round, status, time_remaining, created_at FROM games ORDER BY created_at DESC, rowid DESC LIMIT 1;`)
}

func (r *SQLiteRepository) queryGame(ctx context.Context, q string, args ...interface{}) (*types.Game, error) {
	game := &types.Game{}
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&game.ID, &game.TotalRounds, &game.CurrentRound, &game.Status, &game.TimeRemaining, &game.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan game: %v", err)
	}

	return game, nil
}
