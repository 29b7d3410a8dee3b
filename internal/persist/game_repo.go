package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// GamePlayer is one seated player in the archived roster.
type GamePlayer struct {
	Seat   int    `json:"seat"`
	Name   string `json:"name"`
	UserID string `json:"user_id,omitempty"`
	AI     bool   `json:"ai"`
}

// GameScore is one final standing.
type GameScore struct {
	Seat  int    `json:"seat"`
	Name  string `json:"name"`
	Raw   int    `json:"raw"`
	Final int    `json:"final"`
	Rank  int    `json:"rank"`
}

type GameRow struct {
	GameID     string
	Seed       string
	Players    []GamePlayer
	Scores     []GameScore
	ReplayPath string
	FinishedAt time.Time
}

type GameRepo struct {
	db *DB
}

func NewGameRepo(db *DB) *GameRepo {
	return &GameRepo{db: db}
}

// Insert archives one finished game.
func (r *GameRepo) Insert(ctx context.Context, row *GameRow) error {
	players, err := json.Marshal(row.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	scores, err := json.Marshal(row.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO games (game_id, seed, players, scores, replay_path)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (game_id) DO NOTHING`,
		row.GameID, row.Seed, players, scores, row.ReplayPath,
	)
	return err
}

// Load returns one archived game, or nil when unknown.
func (r *GameRepo) Load(ctx context.Context, gameID string) (*GameRow, error) {
	row := &GameRow{}
	var players, scores []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT game_id, seed, players, scores, replay_path, finished_at
		 FROM games WHERE game_id = $1`, gameID,
	).Scan(&row.GameID, &row.Seed, &players, &scores, &row.ReplayPath, &row.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(players, &row.Players); err != nil {
		return nil, fmt.Errorf("unmarshal players: %w", err)
	}
	if err := json.Unmarshal(scores, &row.Scores); err != nil {
		return nil, fmt.Errorf("unmarshal scores: %w", err)
	}
	return row, nil
}

// Recent lists the newest finished games.
func (r *GameRepo) Recent(ctx context.Context, limit int) ([]GameRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT game_id, seed, players, scores, replay_path, finished_at
		 FROM games ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameRow
	for rows.Next() {
		var row GameRow
		var players, scores []byte
		if err := rows.Scan(&row.GameID, &row.Seed, &players, &scores, &row.ReplayPath, &row.FinishedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(players, &row.Players); err != nil {
			return nil, fmt.Errorf("unmarshal players: %w", err)
		}
		if err := json.Unmarshal(scores, &row.Scores); err != nil {
			return nil, fmt.Errorf("unmarshal scores: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
