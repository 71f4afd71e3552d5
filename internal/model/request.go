package model

import (
	"fmt"
	"time"
)

// RequestStatus is the lifecycle state of a borrow request.
type RequestStatus string

// Request statuses. Returned is terminal.
const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusBorrowed RequestStatus = "borrowed"
	RequestStatusReturned RequestStatus = "returned"
)

// ParseRequestStatus converts s into a RequestStatus, rejecting unknown values.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch st := RequestStatus(s); st {
	case RequestStatusPending, RequestStatusBorrowed, RequestStatusReturned:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown request status %q", ErrValidation, s)
}

var requestTransitions = map[RequestStatus]map[RequestStatus]struct{}{
	RequestStatusPending:  {RequestStatusBorrowed: {}, RequestStatusReturned: {}},
	RequestStatusBorrowed: {RequestStatusReturned: {}},
	RequestStatusReturned: {},
}

// CanTransition reports whether a request may move from one status to another.
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	_, ok := requestTransitions[s][to]
	return ok
}

// Request is one user's attempt to borrow one item.
type Request struct {
	ID               string        `json:"id"`
	ItemID           string        `json:"item_id"`
	UserID           string        `json:"user_id"`
	Status           RequestStatus `json:"status"`
	RequestDate      time.Time     `json:"request_date"`
	ReturnDueDate    *time.Time    `json:"return_due_date,omitempty"`
	ActualReturnDate *time.Time    `json:"actual_return_date,omitempty"`
	RejectedAt       *time.Time    `json:"rejected_at,omitempty"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
	ClubID   string `json:"club_id,omitempty"`
	Username string `json:"username,omitempty"`
}

// Rejected reports whether the request was closed without ever being lent.
func (r *Request) Rejected() bool {
	return r.RejectedAt != nil
}
