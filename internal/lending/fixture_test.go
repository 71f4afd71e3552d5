package lending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campuslend/campuslend/internal/db"
	"github.com/campuslend/campuslend/internal/model"
	"github.com/campuslend/campuslend/internal/store"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	ctx      context.Context
	coord    *Coordinator
	admin    *model.Profile
	outsider *model.Profile // admin of another club
	alice    *model.Profile
	bob      *model.Profile
	club     *model.Club
	item     *model.Item
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	f := &fixture{ctx: ctx, coord: New(database)}
	f.coord.Now = func() time.Time { return testNow }

	f.admin = mustProfile(t, f, "film-admin", model.RoleAdmin)
	f.outsider = mustProfile(t, f, "music-admin", model.RoleAdmin)
	f.alice = mustProfile(t, f, "alice", model.RoleStudent)
	f.bob = mustProfile(t, f, "bob", model.RoleStudent)

	club, err := store.CreateClub(ctx, database, "Film Society", "", f.admin.ID)
	require.NoError(t, err)
	f.club = club
	_, err = store.CreateClub(ctx, database, "Music Club", "", f.outsider.ID)
	require.NoError(t, err)

	item, err := f.coord.RegisterItem(ctx, f.admin.ID, model.ItemAttrs{ClubID: club.ID, Name: "Camera"})
	require.NoError(t, err)
	f.item = item

	return f
}

func mustProfile(t *testing.T, f *fixture, username string, role model.Role) *model.Profile {
	t.Helper()
	p, err := store.CreateProfile(f.ctx, f.coord.DB, store.NewProfile{Username: username, PasswordHash: "x", Role: role})
	require.NoError(t, err)
	return p
}

func (f *fixture) itemStatus(t *testing.T) model.ItemStatus {
	t.Helper()
	item, err := store.GetItem(f.ctx, f.coord.DB, f.item.ID)
	require.NoError(t, err)
	return item.Status
}

func (f *fixture) submit(t *testing.T, student *model.Profile) *model.Request {
	t.Helper()
	req, err := f.coord.SubmitRequest(f.ctx, student.ID, f.item.ID, nil)
	require.NoError(t, err)
	return req
}

// borrowedCount counts borrowed requests on the fixture item.
func (f *fixture) borrowedCount(t *testing.T) int {
	t.Helper()
	reqs, err := store.ListRequests(f.ctx, f.coord.DB, store.RequestFilter{ItemID: f.item.ID, Status: model.RequestStatusBorrowed})
	require.NoError(t, err)
	return len(reqs)
}

// requireConsistent checks that the item is borrowed exactly when one request is.
func (f *fixture) requireConsistent(t *testing.T) {
	t.Helper()
	n := f.borrowedCount(t)
	require.LessOrEqual(t, n, 1, "more than one borrowed request")
	require.Equal(t, n == 1, f.itemStatus(t) == model.ItemStatusBorrowed, "item status disagrees with its requests")
}
