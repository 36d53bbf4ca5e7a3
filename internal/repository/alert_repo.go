package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"energy_usage/internal/models"

	"github.com/google/uuid"
)

type AlertSQLite struct {
	db *sql.DB
}

func NewAlertSQLite(db *sql.DB) *AlertSQLite { return &AlertSQLite{db: db} }

// Ensure implementation of AlertLog interface at compile time.
var _ AlertLog = (*AlertSQLite)(nil)

const insertAlertSQL = `INSERT INTO alerts (id, user_id, message, threshold, total_energy, email, published, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const selectAlertsSQL = `SELECT id, user_id, message, threshold, total_energy, email, published, created_at FROM alerts`

// Append stores an alert. Empty ID and zero CreatedAt are filled in.
func (r *AlertSQLite) Append(ctx context.Context, a models.AlertRecord) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	} else {
		a.CreatedAt = a.CreatedAt.UTC()
	}
	_, err := r.db.ExecContext(ctx, insertAlertSQL,
		a.ID,
		a.UserID,
		a.Message,
		a.Threshold,
		a.TotalEnergyUsage,
		a.Email,
		a.Published,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert for user %d: %w", a.UserID, err)
	}
	return nil
}

// ListByUser returns the user's alerts within [from, to] (zero bounds are open), newest first.
func (r *AlertSQLite) ListByUser(ctx context.Context, userID int64, from, to time.Time) ([]models.AlertRecord, error) {
	conds := []string{"user_id = ?"}
	args := []any{userID}
	if !from.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, to.UTC())
	}
	q := selectAlertsSQL + " WHERE " + strings.Join(conds, " AND ") + " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select alerts for user %d: %w", userID, err)
	}
	defer rows.Close()

	out := make([]models.AlertRecord, 0, 16)
	for rows.Next() {
		var a models.AlertRecord
		if err := rows.Scan(&a.ID, &a.UserID, &a.Message, &a.Threshold, &a.TotalEnergyUsage, &a.Email, &a.Published, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
