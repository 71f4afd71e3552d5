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

const profileColumns = `id, username, student_id, dob, password_hash, role, created_at`

// NewProfile holds the fields needed to create a profile.
type NewProfile struct {
	Username     string
	StudentID    string
	DOB          string
	PasswordHash string
	Role         model.Role
}

// CreateProfile creates a new profile.
func CreateProfile(ctx context.Context, db DBTX, p NewProfile) (*model.Profile, error) {
	if strings.TrimSpace(p.Username) == "" {
		return nil, fmt.Errorf("%w: username required", model.ErrValidation)
	}
	if _, err := model.ParseRole(string(p.Role)); err != nil {
		return nil, err
	}

	p.Username = strings.TrimSpace(p.Username)
	if _, err := GetProfileByUsername(ctx, db, p.Username); err == nil {
		return nil, fmt.Errorf("%w: username %q is taken", model.ErrConflict, p.Username)
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO profiles (id, username, student_id, dob, password_hash, role)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, p.Username, p.StudentID, p.DOB, p.PasswordHash, p.Role,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: username %q is taken", model.ErrConflict, p.Username)
	}
	if err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}

	return GetProfile(ctx, db, id)
}

// GetProfile returns a profile by ID.
func GetProfile(ctx context.Context, db DBTX, id string) (*model.Profile, error) {
	p, err := scanProfile(db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return p, nil
}

// GetProfileByUsername returns a profile by username.
func GetProfileByUsername(ctx context.Context, db DBTX, username string) (*model.Profile, error) {
	p, err := scanProfile(db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE username = ?`, username,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %q: %w", username, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile by username: %w", err)
	}
	return p, nil
}

// UpdateProfilePassword updates a profile's password hash.
func UpdateProfilePassword(ctx context.Context, db DBTX, id, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE profiles SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating profile password: %w", err)
	}
	return nil
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	p := &model.Profile{}
	var role string
	if err := row.Scan(&p.ID, &p.Username, &p.StudentID, &p.DOB, &p.PasswordHash, &role, &p.CreatedAt); err != nil {
		return nil, err
	}
	r, err := model.ParseRole(role)
	if err != nil {
		return nil, err
	}
	p.Role = r
	return p, nil
}
