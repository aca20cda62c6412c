package db

import (
	"fmt"
	"time"
)

type LeaderboardEntry struct {
	Name        string `json:"name"`
	TotalScore  int64  `json:"totalScore"`
	GamesPlayed int    `json:"gamesPlayed"`
}

// AddScore accumulates one finished game for a player.
func (d *DB) AddScore(name string, score int) error {
	_, err := d.conn.Exec(`
		INSERT INTO leaderboard (name, total_score, games_played, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (name) DO UPDATE
		SET total_score  = leaderboard.total_score + $2,
		    games_played = leaderboard.games_played + 1,
		    updated_at   = now()
	`, name, score)
	if err != nil {
		return fmt.Errorf("adding score: %w", err)
	}
	return nil
}

// Top returns the highest-scoring players, best first.
func (d *DB) Top(limit int) ([]LeaderboardEntry, error) {
	rows, err := d.conn.Query(`
		SELECT name, total_score, games_played
		FROM leaderboard
		ORDER BY total_score DESC, name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.TotalScore, &e.GamesPlayed); err != nil {
			return nil, fmt.Errorf("scanning leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ScoreEvent is one player's final score from a finished game.
type ScoreEvent struct {
	Name    string
	Score   int
	EndedAt time.Time
}
