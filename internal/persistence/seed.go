package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/collabdir/directory-service/internal/config"
)

// seedUser mirrors one entry of the seed file. Passwords in the file are
// expected to be pre-hashed.
type seedUser struct {
	Gender    string `json:"gender"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Birthdate string `json:"birthdate"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Photo     string `json:"photo"`
	Category  string `json:"category"`
	IsAdmin   bool   `json:"isAdmin"`
}

// EnsureSeedData inserts the seed users when the directory is empty. A missing
// seed file is logged and skipped rather than treated as fatal.
func EnsureSeedData(ctx context.Context, pool *pgxpool.Pool, cfg config.SeedConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if pool == nil {
		logger.Warn("no postgres pool available; skipping seed")
		return nil
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		logger.Info("users table not empty; skipping seed")
		return nil
	}

	content, err := os.ReadFile(cfg.File)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("seed file not found; skipping seed", zap.String("file", cfg.File))
			return nil
		}
		return fmt.Errorf("read seed file: %w", err)
	}

	var users []seedUser
	if err := json.Unmarshal(content, &users); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	const query = `
        INSERT INTO users (gender, firstname, lastname, email, password_hash, phone, birthdate, city, country, photo, category, is_admin)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	inserted := 0
	for _, u := range users {
		birthdate, err := time.Parse("2006-01-02", u.Birthdate)
		if err != nil {
			logger.Warn("invalid birthdate in seed file; skipping entry",
				zap.String("email", u.Email), zap.String("birthdate", u.Birthdate))
			continue
		}
		if _, err := pool.Exec(ctx, query,
			u.Gender,
			u.Firstname,
			u.Lastname,
			strings.ToLower(u.Email),
			u.Password,
			u.Phone,
			birthdate,
			u.City,
			u.Country,
			u.Photo,
			u.Category,
			u.IsAdmin,
		); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		inserted++
	}

	logger.Info("seed data applied", zap.Int("users", inserted))
	return nil
}
