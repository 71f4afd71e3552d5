package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/campuslend/campuslend/internal/model"
)

// CreateClub creates a club administered by adminID, who must be an admin profile.
func CreateClub(ctx context.Context, db DBTX, name, description, adminID string) (*model.Club, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name required", model.ErrValidation)
	}

	admin, err := GetProfile(ctx, db, adminID)
	if err != nil {
		return nil, err
	}
	if admin.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: club admin must have the admin role", model.ErrValidation)
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO clubs (id, name, description, admin_id) VALUES (?, ?, ?, ?)`,
		id, strings.TrimSpace(name), description, adminID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating club: %w", err)
	}

	return GetClub(ctx, db, id)
}

// GetClub returns a club by ID.
func GetClub(ctx context.Context, db DBTX, id string) (*model.Club, error) {
	c := &model.Club{}
	var description sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, description, admin_id, created_at FROM clubs WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &description, &c.AdminID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("club %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting club: %w", err)
	}
	c.Description = description.String
	return c, nil
}

// ClubExists reports whether a club with the given ID exists.
func ClubExists(ctx context.Context, db DBTX, id string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clubs WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking club: %w", err)
	}
	return count > 0, nil
}

// ClubAdmin returns the profile ID of a club's admin.
func ClubAdmin(ctx context.Context, db DBTX, id string) (string, error) {
	c, err := GetClub(ctx, db, id)
	if err != nil {
		return "", err
	}
	return c.AdminID, nil
}

// ListClubs returns all clubs, optionally only those administered by adminID.
func ListClubs(ctx context.Context, db DBTX, adminID string) ([]model.Club, error) {
	query := `SELECT id, name, description, admin_id, created_at FROM clubs`
	var args []any
	if adminID != "" {
		query += ` WHERE admin_id = ?`
		args = append(args, adminID)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing clubs: %w", err)
	}
	defer rows.Close()

	var clubs []model.Club
	for rows.Next() {
		var c model.Club
		var description sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &description, &c.AdminID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning club: %w", err)
		}
		c.Description = description.String
		clubs = append(clubs, c)
	}
	return clubs, rows.Err()
}
