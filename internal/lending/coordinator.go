// Package lending coordinates borrow requests against club items.
//
// Item status and request status live in separate tables but must stay consistent:
// an item is borrowed exactly when one of its requests is borrowed. Every operation that
// writes both does so inside one SQLite transaction, and every status write is guarded
// by the status it expects to replace, so a lost race surfaces as model.ErrConflict
// instead of a double booking. The coordinator never retries.
package lending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campuslend/campuslend/internal/model"
	"github.com/campuslend/campuslend/internal/store"
)

// Coordinator runs lending transitions against the store.
type Coordinator struct {
	DB *sql.DB
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// New returns a coordinator backed by db.
func New(db *sql.DB) *Coordinator {
	return &Coordinator{DB: db, Now: time.Now}
}

func (c *Coordinator) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

// actor resolves the calling profile. An id the identity store does not know is
// treated as unauthorized rather than as a missing entity.
func (c *Coordinator) actor(ctx context.Context, actorID string) (*model.Profile, error) {
	p, err := store.GetProfile(ctx, c.DB, actorID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown actor", model.ErrForbidden)
	}
	return p, err
}

// target is a request together with the item and club it refers to.
type target struct {
	request *model.Request
	item    *model.Item
	club    *model.Club
}

func (c *Coordinator) loadTarget(ctx context.Context, requestID string) (*target, error) {
	req, err := store.GetRequest(ctx, c.DB, requestID)
	if err != nil {
		return nil, err
	}
	item, err := store.GetItem(ctx, c.DB, req.ItemID)
	if err != nil {
		return nil, err
	}
	club, err := store.GetClub(ctx, c.DB, item.ClubID)
	if err != nil {
		return nil, err
	}
	return &target{request: req, item: item, club: club}, nil
}

// inTx runs fn in a transaction, committing only if fn succeeds.
func (c *Coordinator) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
