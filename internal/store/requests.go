package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campuslend/campuslend/internal/model"
)

const requestSelect = `SELECT r.id, r.item_id, r.user_id, r.status, r.request_date,
                              r.return_due_date, r.actual_return_date, r.rejected_at,
                              i.name AS item_name, i.club_id, p.username
                       FROM requests r
                       JOIN items i ON i.id = r.item_id
                       JOIN profiles p ON p.id = r.user_id`

// RequestFilter narrows ListRequests. Zero fields match everything.
type RequestFilter struct {
	UserID string
	ItemID string
	ClubID string
	// AdminID keeps only requests on items of clubs administered by this profile.
	AdminID string
	Status  model.RequestStatus
}

// CreateRequest appends a pending borrow request. It does not look at the item's
// availability; only that the item exists.
func CreateRequest(ctx context.Context, db DBTX, userID, itemID string, dueDate *time.Time, now time.Time) (*model.Request, error) {
	if _, err := GetItem(ctx, db, itemID); err != nil {
		return nil, err
	}
	if dueDate != nil {
		d := dueDate.UTC()
		if !d.After(now) {
			return nil, fmt.Errorf("%w: return due date must be in the future", model.ErrValidation)
		}
		dueDate = &d
	}

	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO requests (id, item_id, user_id, status, request_date, return_due_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, itemID, userID, model.RequestStatusPending, now.UTC(), dueDate,
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	return GetRequest(ctx, db, id)
}

// GetRequest returns a request by ID.
func GetRequest(ctx context.Context, db DBTX, id string) (*model.Request, error) {
	r, err := scanRequest(db.QueryRowContext(ctx, requestSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	return r, nil
}

// ListRequests returns requests matching filter, most recent first.
func ListRequests(ctx context.Context, db DBTX, filter RequestFilter) ([]model.Request, error) {
	query := requestSelect + ` WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		query += ` AND r.user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.ItemID != "" {
		query += ` AND r.item_id = ?`
		args = append(args, filter.ItemID)
	}
	if filter.ClubID != "" {
		query += ` AND i.club_id = ?`
		args = append(args, filter.ClubID)
	}
	if filter.AdminID != "" {
		query += ` AND i.club_id IN (SELECT id FROM clubs WHERE admin_id = ?)`
		args = append(args, filter.AdminID)
	}
	if filter.Status != "" {
		query += ` AND r.status = ?`
		args = append(args, filter.Status)
	}

	query += ` ORDER BY r.request_date DESC, r.rowid DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	var requests []model.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

// ListRequestsForUser returns every request made by a user.
func ListRequestsForUser(ctx context.Context, db DBTX, userID string) ([]model.Request, error) {
	return ListRequests(ctx, db, RequestFilter{UserID: userID})
}

// ListRequestsForItem returns every request made against an item.
func ListRequestsForItem(ctx context.Context, db DBTX, itemID string) ([]model.Request, error) {
	return ListRequests(ctx, db, RequestFilter{ItemID: itemID})
}

// CompareAndSetRequestStatus moves a request to next only if its stored status is still
// expected. It returns false, without error, when the guard did not match.
func CompareAndSetRequestStatus(ctx context.Context, db DBTX, id string, expected, next model.RequestStatus) (bool, error) {
	if !expected.CanTransition(next) {
		return false, fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, expected, next)
	}
	res, err := db.ExecContext(ctx,
		`UPDATE requests SET status = ? WHERE id = ? AND status = ?`,
		next, id, expected,
	)
	if err != nil {
		return false, fmt.Errorf("updating request status: %w", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return false, fmt.Errorf("updating request status: %w", err)
	}
	return ok, nil
}

// CompleteRequest moves a request from expected to returned, stamping either the
// rejection time or the actual return date. It returns false when the guard did not match.
func CompleteRequest(ctx context.Context, db DBTX, id string, expected model.RequestStatus, at time.Time, rejected bool) (bool, error) {
	if !expected.CanTransition(model.RequestStatusReturned) {
		return false, fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, expected, model.RequestStatusReturned)
	}

	column := "actual_return_date"
	if rejected {
		column = "rejected_at"
	}

	res, err := db.ExecContext(ctx,
		`UPDATE requests SET status = ?, `+column+` = ? WHERE id = ? AND status = ?`,
		model.RequestStatusReturned, at.UTC(), id, expected,
	)
	if err != nil {
		return false, fmt.Errorf("completing request: %w", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return false, fmt.Errorf("completing request: %w", err)
	}
	return ok, nil
}

func scanRequest(row rowScanner) (*model.Request, error) {
	r := &model.Request{}
	var status string
	if err := row.Scan(&r.ID, &r.ItemID, &r.UserID, &status, &r.RequestDate,
		&r.ReturnDueDate, &r.ActualReturnDate, &r.RejectedAt,
		&r.ItemName, &r.ClubID, &r.Username); err != nil {
		return nil, err
	}
	st, err := model.ParseRequestStatus(status)
	if err != nil {
		return nil, err
	}
	r.Status = st
	return r, nil
}
