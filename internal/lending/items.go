package lending

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuslend/campuslend/internal/model"
	"github.com/campuslend/campuslend/internal/policy"
	"github.com/campuslend/campuslend/internal/store"
)

// RegisterItem adds an item to a club. Items listed by the club's admin are available
// immediately; items listed by students wait for the admin's review.
func (c *Coordinator) RegisterItem(ctx context.Context, actorID string, attrs model.ItemAttrs) (*model.Item, error) {
	actor, err := c.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if attrs.ClubID == "" {
		return nil, fmt.Errorf("%w: club_id required", model.ErrValidation)
	}
	club, err := store.GetClub(ctx, c.DB, attrs.ClubID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: club %s does not exist", model.ErrValidation, attrs.ClubID)
	}
	if err != nil {
		return nil, err
	}

	if !policy.CanRegisterItem(actor, club) {
		return nil, fmt.Errorf("%w: cannot add items to this club", model.ErrForbidden)
	}

	status := model.ItemStatusPending
	if policy.CanManageItem(actor, club) {
		status = model.ItemStatusAvailable
	}

	return store.CreateItem(ctx, c.DB, attrs, status)
}

// ReviewItem makes a student-listed item visible for borrowing. Reviewing an item that is
// already available is a no-op.
func (c *Coordinator) ReviewItem(ctx context.Context, actorID, itemID string) (*model.Item, error) {
	return c.moveItem(ctx, actorID, itemID, model.ItemStatusPending, model.ItemStatusAvailable)
}

// SetMaintenance takes an available item out of circulation, or puts it back. An item
// on loan cannot enter maintenance until it is returned. Setting the status the item
// already has is a no-op.
func (c *Coordinator) SetMaintenance(ctx context.Context, actorID, itemID string, on bool) (*model.Item, error) {
	if on {
		return c.moveItem(ctx, actorID, itemID, model.ItemStatusAvailable, model.ItemStatusMaintenance)
	}
	return c.moveItem(ctx, actorID, itemID, model.ItemStatusMaintenance, model.ItemStatusAvailable)
}

// AttachPhoto stores a processed photo for an item and points its image_url at the API
// path serving it.
func (c *Coordinator) AttachPhoto(ctx context.Context, actorID, itemID string, photo []byte, mime string) (*model.Item, error) {
	item, err := c.managedItem(ctx, actorID, itemID)
	if err != nil {
		return nil, err
	}
	if err := store.SetItemImage(ctx, c.DB, item.ID, photo, mime, PhotoURL(item.ID)); err != nil {
		return nil, err
	}
	return store.GetItem(ctx, c.DB, item.ID)
}

// PhotoURL is the path an item's uploaded photo is served from.
func PhotoURL(itemID string) string {
	return "/api/items/" + itemID + "/image"
}

// managedItem loads an item the actor administers.
func (c *Coordinator) managedItem(ctx context.Context, actorID, itemID string) (*model.Item, error) {
	actor, err := c.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	item, err := store.GetItem(ctx, c.DB, itemID)
	if err != nil {
		return nil, err
	}
	club, err := store.GetClub(ctx, c.DB, item.ClubID)
	if err != nil {
		return nil, err
	}

	if !policy.CanManageItem(actor, club) {
		return nil, fmt.Errorf("%w: not the admin of this item's club", model.ErrForbidden)
	}
	return item, nil
}

// moveItem is an admin override from one item status to another, guarded on from.
func (c *Coordinator) moveItem(ctx context.Context, actorID, itemID string, from, to model.ItemStatus) (*model.Item, error) {
	item, err := c.managedItem(ctx, actorID, itemID)
	if err != nil {
		return nil, err
	}

	switch item.Status {
	case to:
		return item, nil
	case from:
	case model.ItemStatusBorrowed:
		return nil, fmt.Errorf("%w: item %s is on loan", model.ErrConflict, item.ID)
	default:
		return nil, fmt.Errorf("%w: item is %s, not %s", model.ErrInvalidTransition, item.Status, from)
	}

	ok, err := store.CompareAndSetItemStatus(ctx, c.DB, item.ID, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: item %s changed concurrently", model.ErrConflict, item.ID)
	}

	return store.GetItem(ctx, c.DB, item.ID)
}

// GetItem returns an item the actor may see. An item awaiting review looks missing to
// anyone but its club's admin.
func (c *Coordinator) GetItem(ctx context.Context, actorID, itemID string) (*model.Item, error) {
	actor, err := c.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return c.visibleItem(ctx, actor, itemID)
}

func (c *Coordinator) visibleItem(ctx context.Context, actor *model.Profile, itemID string) (*model.Item, error) {
	item, err := store.GetItem(ctx, c.DB, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != model.ItemStatusPending {
		return item, nil
	}
	club, err := store.GetClub(ctx, c.DB, item.ClubID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewItem(actor, item, club) {
		return nil, fmt.Errorf("item %s: %w", itemID, model.ErrNotFound)
	}
	return item, nil
}

// ListItems returns items matching filter that the actor may see, newest first.
func (c *Coordinator) ListItems(ctx context.Context, actorID string, filter store.ItemFilter) ([]model.Item, error) {
	actor, err := c.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	filter.ViewerID = actor.ID
	return store.ListItems(ctx, c.DB, filter)
}

// ItemPhoto returns the photo of an item the actor may see. A nil slice means no photo.
func (c *Coordinator) ItemPhoto(ctx context.Context, actorID, itemID string) ([]byte, string, error) {
	if _, err := c.GetItem(ctx, actorID, itemID); err != nil {
		return nil, "", err
	}
	return store.GetItemImage(ctx, c.DB, itemID)
}
