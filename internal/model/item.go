package model

import (
	"fmt"
	"time"
)

// ItemStatus is the availability of an item.
type ItemStatus string

// Item statuses.
const (
	ItemStatusAvailable   ItemStatus = "available"
	ItemStatusBorrowed    ItemStatus = "borrowed"
	ItemStatusMaintenance ItemStatus = "maintenance"
	ItemStatusPending     ItemStatus = "pending"
)

// ParseItemStatus converts s into an ItemStatus, rejecting unknown values.
func ParseItemStatus(s string) (ItemStatus, error) {
	switch st := ItemStatus(s); st {
	case ItemStatusAvailable, ItemStatusBorrowed, ItemStatusMaintenance, ItemStatusPending:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown item status %q", ErrValidation, s)
}

// Item is a unit of lendable inventory owned by a club.
type Item struct {
	ID          string     `json:"id"`
	ClubID      string     `json:"club_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Status      ItemStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ItemAttrs are the caller-supplied fields of a new item.
type ItemAttrs struct {
	ClubID      string `json:"club_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
}
