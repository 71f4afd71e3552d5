package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/campuslend/campuslend/internal/model"
)

func mustProfile(t *testing.T, database *sql.DB, username string, role model.Role) *model.Profile {
	t.Helper()
	p, err := CreateProfile(context.Background(), database, NewProfile{
		Username:     username,
		PasswordHash: "hash",
		Role:         role,
	})
	if err != nil {
		t.Fatalf("CreateProfile(%s): %v", username, err)
	}
	return p
}

func mustClub(t *testing.T, database *sql.DB, name string) *model.Club {
	t.Helper()
	admin := mustProfile(t, database, name+"-admin", model.RoleAdmin)
	c, err := CreateClub(context.Background(), database, name, "", admin.ID)
	if err != nil {
		t.Fatalf("CreateClub(%s): %v", name, err)
	}
	return c
}

func mustItem(t *testing.T, database *sql.DB, clubID, name string) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), database, model.ItemAttrs{ClubID: clubID, Name: name}, model.ItemStatusAvailable)
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", name, err)
	}
	return item
}
