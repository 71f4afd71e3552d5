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

const itemColumns = `id, club_id, name, description, category, image_url, status, created_at`

// ItemFilter narrows ListItems. Zero fields match everything.
type ItemFilter struct {
	Status model.ItemStatus
	ClubID string
	// ViewerID, when set, drops pending items except those of clubs this profile
	// administers.
	ViewerID string
}

// CreateItem registers a new item in a club with the given initial status.
func CreateItem(ctx context.Context, db DBTX, attrs model.ItemAttrs, status model.ItemStatus) (*model.Item, error) {
	if strings.TrimSpace(attrs.Name) == "" {
		return nil, fmt.Errorf("%w: name required", model.ErrValidation)
	}
	if attrs.ClubID == "" {
		return nil, fmt.Errorf("%w: club_id required", model.ErrValidation)
	}
	if status != model.ItemStatusAvailable && status != model.ItemStatusPending {
		return nil, fmt.Errorf("%w: new items start available or pending, not %q", model.ErrValidation, status)
	}

	exists, err := ClubExists(ctx, db, attrs.ClubID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: club %s does not exist", model.ErrValidation, attrs.ClubID)
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO items (id, club_id, name, description, category, image_url, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, attrs.ClubID, strings.TrimSpace(attrs.Name), attrs.Description, attrs.Category, attrs.ImageURL, status,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db DBTX, id string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns items matching filter, most recently created first.
func ListItems(ctx context.Context, db DBTX, filter ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.ClubID != "" {
		query += ` AND club_id = ?`
		args = append(args, filter.ClubID)
	}
	if filter.ViewerID != "" {
		query += ` AND (status != ? OR club_id IN (SELECT id FROM clubs WHERE admin_id = ?))`
		args = append(args, model.ItemStatusPending, filter.ViewerID)
	}

	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// SetItemStatus writes an item's status unconditionally and returns the updated item.
// It is a repair hook for operators and tests; lending transitions go through
// CompareAndSetItemStatus so a concurrent change is never overwritten.
func SetItemStatus(ctx context.Context, db DBTX, id string, status model.ItemStatus) (*model.Item, error) {
	res, err := db.ExecContext(ctx, `UPDATE items SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return nil, fmt.Errorf("setting item status: %w", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return nil, fmt.Errorf("setting item status: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	return GetItem(ctx, db, id)
}

// CompareAndSetItemStatus moves an item to next only if its stored status is still
// expected. It returns false, without error, when the guard did not match.
func CompareAndSetItemStatus(ctx context.Context, db DBTX, id string, expected, next model.ItemStatus) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE items SET status = ? WHERE id = ? AND status = ?`,
		next, id, expected,
	)
	if err != nil {
		return false, fmt.Errorf("updating item status: %w", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return false, fmt.Errorf("updating item status: %w", err)
	}
	return ok, nil
}

// SetItemImage stores an item's photo and points image_url at it.
func SetItemImage(ctx context.Context, db DBTX, id string, image []byte, mime, url string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, image_url = ? WHERE id = ?`,
		image, mime, url, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	if !ok {
		return fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// GetItemImage returns an item's photo and MIME type. A nil slice means no photo.
func GetItemImage(ctx context.Context, db DBTX, id string) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var description, category, imageURL sql.NullString
	var status string
	if err := row.Scan(&item.ID, &item.ClubID, &item.Name, &description, &category, &imageURL, &status, &item.CreatedAt); err != nil {
		return nil, err
	}
	st, err := model.ParseItemStatus(status)
	if err != nil {
		return nil, err
	}
	item.Status = st
	item.Description = description.String
	item.Category = category.String
	item.ImageURL = imageURL.String
	return item, nil
}
