// Package store persists accounts, finished games, and the leaderboard in
// Postgres. Gameplay never waits on this package: match results are written
// after the in-memory outcome is already final.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sakshee44566/4-IN-A-ROW/internal/auth"
	"github.com/sakshee44566/4-IN-A-ROW/internal/game"
	"github.com/sakshee44566/4-IN-A-ROW/internal/match"
)

// User is the accounts table.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

// GameRecord archives one finished game. Moves holds the full move list as
// JSON so replays stay possible without a schema per move.
type GameRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Player1   string `gorm:"size:64;index"`
	Player2   string `gorm:"size:64;index"`
	Winner    string `gorm:"size:64"`
	Status    string `gorm:"size:16"`
	Moves     string `gorm:"type:text"`
	StartedAt time.Time
	EndedAt   time.Time
}

// LeaderboardEntry is one player's running tally.
type LeaderboardEntry struct {
	Username  string `gorm:"primaryKey;size:64"`
	Wins      int
	Losses    int
	UpdatedAt time.Time
}

// Standing is a leaderboard row as served to clients.
type Standing struct {
	Username string  `json:"username"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Games    int     `json:"games"`
	WinRate  float64 `json:"winRate"`
}

// Store wraps the database handle. It satisfies both the auth user store
// and the match recorder.
type Store struct {
	db     *gorm.DB
	logger *log.Logger
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&User{}, &GameRecord{}, &LeaderboardEntry{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	logger.Printf("database connected, schema up to date")
	return &Store{db: db, logger: logger}, nil
}

// CreateUser inserts a new account.
func (s *Store) CreateUser(username, passwordHash string) (auth.User, error) {
	user := User{Username: username, PasswordHash: passwordHash}
	if err := s.db.Create(&user).Error; err != nil {
		return auth.User{}, fmt.Errorf("insert user: %w", err)
	}
	return auth.User{ID: user.ID, Username: user.Username, PasswordHash: user.PasswordHash}, nil
}

// FindByUsername looks up an account; found is false for unknown names.
func (s *Store) FindByUsername(username string) (auth.User, bool, error) {
	var user User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return auth.User{}, false, nil
	}
	if err != nil {
		return auth.User{}, false, fmt.Errorf("query user: %w", err)
	}
	return auth.User{ID: user.ID, Username: user.Username, PasswordHash: user.PasswordHash}, true, nil
}

// RecordCompletedMatch archives a finished game.
func (s *Store) RecordCompletedMatch(c match.Completed) error {
	moves, err := encodeMoves(c.Moves)
	if err != nil {
		return fmt.Errorf("encode moves: %w", err)
	}
	record := GameRecord{
		ID:        c.ID,
		Player1:   c.Player1,
		Player2:   c.Player2,
		Winner:    c.Winner,
		Status:    string(c.Status),
		Moves:     moves,
		StartedAt: c.StartedAt,
		EndedAt:   c.EndedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return fmt.Errorf("insert game record: %w", err)
	}
	return nil
}

// AddWin increments the player's win tally, creating the row if needed.
func (s *Store) AddWin(identity string) error {
	return s.bumpTally(identity, "wins", LeaderboardEntry{Username: identity, Wins: 1})
}

// AddLoss increments the player's loss tally, creating the row if needed.
func (s *Store) AddLoss(identity string) error {
	return s.bumpTally(identity, "losses", LeaderboardEntry{Username: identity, Losses: 1})
}

func (s *Store) bumpTally(identity, column string, fresh LeaderboardEntry) error {
	fresh.UpdatedAt = time.Now()
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "username"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column:       gorm.Expr(fmt.Sprintf("leaderboard_entries.%s + 1", column)),
			"updated_at": time.Now(),
		}),
	}).Create(&fresh).Error
	if err != nil {
		return fmt.Errorf("update %s tally for %s: %w", column, identity, err)
	}
	return nil
}

// Leaderboard returns the top standings ordered by wins, then total games.
func (s *Store) Leaderboard(limit int) ([]Standing, error) {
	var entries []LeaderboardEntry
	err := s.db.
		Order("wins DESC, wins + losses DESC, username ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	standings := make([]Standing, 0, len(entries))
	for _, e := range entries {
		standings = append(standings, standingFor(e))
	}
	return standings, nil
}

// FindGame fetches one archived game; found is false for unknown ids.
func (s *Store) FindGame(id string) (GameRecord, bool, error) {
	var record GameRecord
	err := s.db.Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return GameRecord{}, false, nil
	}
	if err != nil {
		return GameRecord{}, false, fmt.Errorf("query game record: %w", err)
	}
	return record, true, nil
}

func encodeMoves(moves []game.Move) (string, error) {
	if moves == nil {
		moves = []game.Move{}
	}
	raw, err := json.Marshal(moves)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeMoves restores the move list stored in a game record.
func DecodeMoves(raw string) ([]game.Move, error) {
	if raw == "" {
		return nil, nil
	}
	var moves []game.Move
	if err := json.Unmarshal([]byte(raw), &moves); err != nil {
		return nil, fmt.Errorf("decode moves: %w", err)
	}
	return moves, nil
}

func standingFor(e LeaderboardEntry) Standing {
	games := e.Wins + e.Losses
	rate := 0.0
	if games > 0 {
		rate = float64(e.Wins) / float64(games)
	}
	return Standing{
		Username: e.Username,
		Wins:     e.Wins,
		Losses:   e.Losses,
		Games:    games,
		WinRate:  rate,
	}
}
