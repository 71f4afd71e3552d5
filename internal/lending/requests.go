package lending

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campuslend/campuslend/internal/model"
	"github.com/campuslend/campuslend/internal/policy"
	"github.com/campuslend/campuslend/internal/store"
)

// SubmitRequest records a student's wish to borrow an item. The availability check here
// is advisory: the item is claimed only when a request is approved, so several pending
// requests may exist for one item.
func (c *Coordinator) SubmitRequest(ctx context.Context, actorID, itemID string, dueDate *time.Time) (*model.Request, error) {
	actor, err := c.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	item, err := c.visibleItem(ctx, actor, itemID)
	if err != nil {
		return nil, err
	}

	if !policy.CanSubmitRequest(actor, item) {
		if actor.Role == model.RoleStudent {
			return nil, fmt.Errorf("%w: item %s is %s", model.ErrConflict, item.ID, item.Status)
		}
		return nil, fmt.Errorf("%w: only students may request items", model.ErrForbidden)
	}

	return store.CreateRequest(ctx, c.DB, actor.ID, item.ID, dueDate, c.now())
}

// Approve lends the item to the request's borrower. Of several concurrent approvals
// against one item exactly one succeeds; the others fail with model.ErrConflict and leave
// their requests pending.
func (c *Coordinator) Approve(ctx context.Context, actorID, requestID string) (*model.Request, error) {
	actor, err := c.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	t, err := c.loadTarget(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !policy.CanDecide(actor, t.club) {
		return nil, fmt.Errorf("%w: not the admin of this item's club", model.ErrForbidden)
	}
	if t.request.Status != model.RequestStatusPending {
		return nil, fmt.Errorf("%w: cannot approve a %s request", model.ErrInvalidTransition, t.request.Status)
	}
	if t.item.Status != model.ItemStatusAvailable {
		return nil, fmt.Errorf("%w: item %s is %s", model.ErrConflict, t.item.ID, t.item.Status)
	}

	err = c.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := store.CompareAndSetItemStatus(ctx, tx, t.item.ID, model.ItemStatusAvailable, model.ItemStatusBorrowed)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: item %s was claimed by another request", model.ErrConflict, t.item.ID)
		}

		// A lost guard here rolls the item claim back with the transaction.
		ok, err = store.CompareAndSetRequestStatus(ctx, tx, t.request.ID, model.RequestStatusPending, model.RequestStatusBorrowed)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: request %s changed concurrently", model.ErrConflict, t.request.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return store.GetRequest(ctx, c.DB, t.request.ID)
}

// Reject closes a pending request without lending. The item is not touched.
func (c *Coordinator) Reject(ctx context.Context, actorID, requestID string) (*model.Request, error) {
	actor, err := c.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	t, err := c.loadTarget(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !policy.CanDecide(actor, t.club) {
		return nil, fmt.Errorf("%w: not the admin of this item's club", model.ErrForbidden)
	}
	if t.request.Status != model.RequestStatusPending {
		return nil, fmt.Errorf("%w: cannot reject a %s request", model.ErrInvalidTransition, t.request.Status)
	}

	ok, err := store.CompleteRequest(ctx, c.DB, t.request.ID, model.RequestStatusPending, c.now(), true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: request %s changed concurrently", model.ErrConflict, t.request.ID)
	}

	return store.GetRequest(ctx, c.DB, t.request.ID)
}

// MarkReturned ends a loan: the request becomes returned and the item available again,
// both in one transaction.
func (c *Coordinator) MarkReturned(ctx context.Context, actorID, requestID string) (*model.Request, error) {
	actor, err := c.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	t, err := c.loadTarget(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !policy.CanMarkReturned(actor, t.club) {
		return nil, fmt.Errorf("%w: not the admin of this item's club", model.ErrForbidden)
	}
	if t.request.Status != model.RequestStatusBorrowed {
		return nil, fmt.Errorf("%w: cannot return a %s request", model.ErrInvalidTransition, t.request.Status)
	}

	err = c.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := store.CompleteRequest(ctx, tx, t.request.ID, model.RequestStatusBorrowed, c.now(), false)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: request %s changed concurrently", model.ErrConflict, t.request.ID)
		}

		ok, err = store.CompareAndSetItemStatus(ctx, tx, t.item.ID, model.ItemStatusBorrowed, model.ItemStatusAvailable)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: item %s is not on loan", model.ErrConflict, t.item.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return store.GetRequest(ctx, c.DB, t.request.ID)
}

// GetRequest returns a request visible to the actor: students see their own requests,
// admins see requests on their clubs' items.
func (c *Coordinator) GetRequest(ctx context.Context, actorID, requestID string) (*model.Request, error) {
	actor, err := c.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	t, err := c.loadTarget(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if t.request.UserID != actor.ID && !policy.CanDecide(actor, t.club) {
		return nil, fmt.Errorf("%w: request belongs to someone else", model.ErrForbidden)
	}
	return t.request, nil
}

// ListRequests returns requests matching filter, narrowed to what the actor may see.
func (c *Coordinator) ListRequests(ctx context.Context, actorID string, filter store.RequestFilter) ([]model.Request, error) {
	actor, err := c.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case model.RoleStudent:
		if filter.UserID != "" && filter.UserID != actor.ID {
			return nil, fmt.Errorf("%w: students may only list their own requests", model.ErrForbidden)
		}
		filter.UserID = actor.ID
	case model.RoleAdmin:
		filter.AdminID = actor.ID
	}

	return store.ListRequests(ctx, c.DB, filter)
}
