package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roastsync/roastery/roastery"
)

// =============================================================================
// USERS
// =============================================================================

const userColumns = "id, email, full_name, is_active, is_superuser, hashed_password"

func scanUser(row scanner) (roastery.User, error) {
	var u roastery.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.IsActive, &u.IsSuperuser, &u.HashedPassword)
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]roastery.User, error) {
	return queryList(ctx, s.q, "users", scanUser, "SELECT "+userColumns+" FROM users ORDER BY id")
}

func (s *Store) GetUser(ctx context.Context, id int64) (roastery.User, error) {
	var u roastery.User
	err := s.get(ctx, "user", id, "SELECT "+userColumns+" FROM users WHERE id = ?", func(row scanner) (err error) {
		u, err = scanUser(row)
		return err
	})
	return u, err
}

// GetUserByEmail matches case-insensitively; emails are stored lower-cased.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (roastery.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", normalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return roastery.User{}, &roastery.NotFoundError{Entity: "user"}
	}
	if err != nil {
		return roastery.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

func (s *Store) InsertUser(ctx context.Context, u *roastery.User) error {
	u.Email = normalizeEmail(u.Email)
	id, err := s.insert(ctx, "user",
		"INSERT INTO users (email, full_name, is_active, is_superuser, hashed_password) VALUES (?, ?, ?, ?, ?)",
		u.Email, u.FullName, u.IsActive, u.IsSuperuser, u.HashedPassword)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u roastery.User) error {
	return s.mutate(ctx, "update", "user", u.ID,
		"UPDATE users SET email = ?, full_name = ?, is_active = ?, is_superuser = ?, hashed_password = ? WHERE id = ?",
		normalizeEmail(u.Email), u.FullName, u.IsActive, u.IsSuperuser, u.HashedPassword, u.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete", "user", id, "DELETE FROM users WHERE id = ?", id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// =============================================================================
// DASHBOARD SNAPSHOTS
// =============================================================================

func (s *Store) SaveSnapshot(ctx context.Context, snap *roastery.DashboardSnapshot) error {
	summaryJSON, err := json.Marshal(snap.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	id, err := s.insert(ctx, "dashboard snapshot",
		"INSERT INTO dashboard_snapshots (taken_at, summary_json) VALUES (?, ?)",
		formatTime(snap.TakenAt), string(summaryJSON))
	if err != nil {
		return err
	}
	snap.ID = id
	return nil
}

func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]roastery.DashboardSnapshot, error) {
	query := "SELECT id, taken_at, summary_json FROM dashboard_snapshots ORDER BY taken_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return queryList(ctx, s.q, "dashboard snapshots", func(row scanner) (roastery.DashboardSnapshot, error) {
		var (
			snap        roastery.DashboardSnapshot
			takenAt     string
			summaryJSON string
		)
		if err := row.Scan(&snap.ID, &takenAt, &summaryJSON); err != nil {
			return snap, err
		}
		var err error
		if snap.TakenAt, err = parseTime(takenAt); err != nil {
			return snap, err
		}
		err = json.Unmarshal([]byte(summaryJSON), &snap.Summary)
		return snap, err
	}, query, args...)
}
