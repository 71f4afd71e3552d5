package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/campuslend/campuslend/internal/auth"
	"github.com/campuslend/campuslend/internal/db"
	"github.com/campuslend/campuslend/internal/model"
	"github.com/campuslend/campuslend/internal/store"
)

const testJWTSecret = "test-secret"

// testEnv holds a running server and bearer tokens for its seeded profiles.
type testEnv struct {
	server *httptest.Server
	db     *sql.DB
	admin  string
	alice  string
	bob    string
	club   *model.Club
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	server := httptest.NewServer(NewRouter(database, Config{JWTSecret: testJWTSecret}))
	t.Cleanup(server.Close)

	env := &testEnv{server: server, db: database}
	admin := createProfile(t, database, "admin", model.RoleAdmin)
	createProfile(t, database, "alice", model.RoleStudent)
	createProfile(t, database, "bob", model.RoleStudent)

	club, err := store.CreateClub(context.Background(), database, "Film Society", "cameras and lenses", admin.ID)
	if err != nil {
		t.Fatalf("creating club: %v", err)
	}
	env.club = club

	env.admin = login(t, server, "admin")
	env.alice = login(t, server, "alice")
	env.bob = login(t, server, "bob")
	return env
}

func createProfile(t *testing.T, database *sql.DB, username string, role model.Role) *model.Profile {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	p, err := store.CreateProfile(context.Background(), database, store.NewProfile{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		t.Fatalf("creating profile %s: %v", username, err)
	}
	return p
}

func login(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()
	resp := do(t, server, "POST", "/api/auth/login", "", map[string]string{"username": username, "password": "password"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s failed: %d", username, resp.StatusCode)
	}
	var body loginResponse
	decode(t, resp, &body)
	if body.Token == "" {
		t.Fatal("empty token from login")
	}
	return body.Token
}

func do(t *testing.T, server *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode)
	}
}

func (env *testEnv) registerItem(t *testing.T, token, name string) model.Item {
	t.Helper()
	resp := do(t, env.server, "POST", "/api/items", token, map[string]string{"club_id": env.club.ID, "name": name})
	expectStatus(t, resp, http.StatusCreated)
	var item model.Item
	decode(t, resp, &item)
	return item
}

func (env *testEnv) submit(t *testing.T, token, itemID string) model.Request {
	t.Helper()
	resp := do(t, env.server, "POST", "/api/requests", token, map[string]string{"item_id": itemID})
	expectStatus(t, resp, http.StatusCreated)
	var req model.Request
	decode(t, resp, &req)
	return req
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)

	resp := do(t, env.server, "POST", "/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = do(t, env.server, "POST", "/api/auth/login", "", map[string]string{"username": "nobody", "password": "password"})
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestServer(t)

	resp := do(t, env.server, "GET", "/api/items", "", nil)
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = do(t, env.server, "GET", "/api/items", "not-a-token", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestSignupAndMe(t *testing.T) {
	env := setupTestServer(t)

	resp := do(t, env.server, "POST", "/api/profiles", "", map[string]string{"username": "carol", "password": "short"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = do(t, env.server, "POST", "/api/profiles", "", map[string]string{
		"username":   "carol",
		"password":   "long enough",
		"student_id": "S-1001",
	})
	expectStatus(t, resp, http.StatusCreated)
	var created model.Profile
	decode(t, resp, &created)
	if created.Role != model.RoleStudent {
		t.Errorf("signup role = %s, want student", created.Role)
	}

	resp = do(t, env.server, "POST", "/api/profiles", "", map[string]string{"username": "carol", "password": "long enough"})
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, env.server, "POST", "/api/auth/login", "", map[string]string{"username": "carol", "password": "long enough"})
	expectStatus(t, resp, http.StatusOK)
	var lr loginResponse
	decode(t, resp, &lr)

	resp = do(t, env.server, "GET", "/api/profiles/me", lr.Token, nil)
	expectStatus(t, resp, http.StatusOK)
	var me map[string]any
	decode(t, resp, &me)
	if me["username"] != "carol" || me["student_id"] != "S-1001" {
		t.Errorf("unexpected profile: %v", me)
	}
	if _, leaked := me["password_hash"]; leaked {
		t.Error("password hash must not be serialised")
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestServer(t)

	resp := do(t, env.server, "POST", "/api/auth/logout", env.alice, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, env.server, "GET", "/api/profiles/me", env.alice, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestChangePassword(t *testing.T) {
	env := setupTestServer(t)

	resp := do(t, env.server, "PUT", "/api/auth/password", env.alice, map[string]string{
		"current_password": "wrong",
		"new_password":     "a new password",
	})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = do(t, env.server, "PUT", "/api/auth/password", env.alice, map[string]string{
		"current_password": "password",
		"new_password":     "a new password",
	})
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, env.server, "POST", "/api/auth/login", "", map[string]string{"username": "alice", "password": "a new password"})
	expectStatus(t, resp, http.StatusOK)
}

func TestClubsAPI(t *testing.T) {
	env := setupTestServer(t)

	resp := do(t, env.server, "POST", "/api/clubs", env.alice, map[string]string{"name": "Chess"})
	expectStatus(t, resp, http.StatusForbidden)

	resp = do(t, env.server, "POST", "/api/clubs", env.admin, map[string]string{"name": "Chess"})
	expectStatus(t, resp, http.StatusCreated)

	resp = do(t, env.server, "GET", "/api/clubs", env.alice, nil)
	expectStatus(t, resp, http.StatusOK)
	var clubs []model.Club
	decode(t, resp, &clubs)
	if len(clubs) != 2 {
		t.Errorf("expected 2 clubs, got %d", len(clubs))
	}

	resp = do(t, env.server, "GET", "/api/clubs/missing", env.alice, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestItemsAPI(t *testing.T) {
	env := setupTestServer(t)

	camera := env.registerItem(t, env.admin, "Camera")
	if camera.Status != model.ItemStatusAvailable {
		t.Errorf("admin-registered item status = %s, want available", camera.Status)
	}

	listed := env.registerItem(t, env.alice, "Ukulele")
	if listed.Status != model.ItemStatusPending {
		t.Errorf("student-listed item status = %s, want pending", listed.Status)
	}

	resp := do(t, env.server, "GET", "/api/items?status=available", env.bob, nil)
	expectStatus(t, resp, http.StatusOK)
	var items []model.Item
	decode(t, resp, &items)
	if len(items) != 1 || items[0].ID != camera.ID {
		t.Errorf("expected only the camera to be available, got %+v", items)
	}

	resp = do(t, env.server, "GET", "/api/items?status=lost", env.bob, nil)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = do(t, env.server, "POST", "/api/items/"+listed.ID+"/review", env.admin, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, env.server, "PUT", "/api/items/"+camera.ID+"/maintenance", env.admin, map[string]bool{"maintenance": true})
	expectStatus(t, resp, http.StatusOK)
	var updated model.Item
	decode(t, resp, &updated)
	if updated.Status != model.ItemStatusMaintenance {
		t.Errorf("status = %s, want maintenance", updated.Status)
	}

	resp = do(t, env.server, "PUT", "/api/items/"+camera.ID+"/maintenance", env.admin, map[string]string{})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = do(t, env.server, "PUT", "/api/items/"+camera.ID+"/maintenance", env.alice, map[string]bool{"maintenance": false})
	expectStatus(t, resp, http.StatusForbidden)

	resp = do(t, env.server, "GET", "/api/items/missing", env.alice, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestLendingFlow(t *testing.T) {
	env := setupTestServer(t)
	item := env.registerItem(t, env.admin, "Camera")

	r1 := env.submit(t, env.alice, item.ID)
	r2 := env.submit(t, env.bob, item.ID)

	resp := do(t, env.server, "POST", "/api/requests/"+r1.ID+"/approve", env.alice, nil)
	expectStatus(t, resp, http.StatusForbidden)

	resp = do(t, env.server, "POST", "/api/requests/"+r1.ID+"/approve", env.admin, nil)
	expectStatus(t, resp, http.StatusOK)
	var approved model.Request
	decode(t, resp, &approved)
	if approved.Status != model.RequestStatusBorrowed {
		t.Errorf("status = %s, want borrowed", approved.Status)
	}

	resp = do(t, env.server, "POST", "/api/requests/"+r2.ID+"/approve", env.admin, nil)
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, env.server, "POST", "/api/requests", env.bob, map[string]string{"item_id": item.ID})
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, env.server, "POST", "/api/requests/"+r1.ID+"/reject", env.admin, nil)
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	resp = do(t, env.server, "POST", "/api/requests/"+r1.ID+"/return", env.admin, nil)
	expectStatus(t, resp, http.StatusOK)
	var returned model.Request
	decode(t, resp, &returned)
	if returned.Status != model.RequestStatusReturned || returned.ActualReturnDate == nil {
		t.Errorf("unexpected returned request: %+v", returned)
	}

	resp = do(t, env.server, "POST", "/api/requests/"+r2.ID+"/approve", env.admin, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, env.server, "GET", "/api/items/"+item.ID, env.alice, nil)
	expectStatus(t, resp, http.StatusOK)
	var got model.Item
	decode(t, resp, &got)
	if got.Status != model.ItemStatusBorrowed {
		t.Errorf("item status = %s, want borrowed", got.Status)
	}
}

func TestRejectFlow(t *testing.T) {
	env := setupTestServer(t)
	item := env.registerItem(t, env.admin, "Tripod")
	req := env.submit(t, env.alice, item.ID)

	resp := do(t, env.server, "POST", "/api/requests/"+req.ID+"/reject", env.admin, nil)
	expectStatus(t, resp, http.StatusOK)
	var rejected model.Request
	decode(t, resp, &rejected)
	if rejected.Status != model.RequestStatusReturned || rejected.RejectedAt == nil {
		t.Errorf("unexpected rejected request: %+v", rejected)
	}

	resp = do(t, env.server, "POST", "/api/requests/"+req.ID+"/approve", env.admin, nil)
	expectStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestRequestVisibility(t *testing.T) {
	env := setupTestServer(t)
	item := env.registerItem(t, env.admin, "Camera")
	mine := env.submit(t, env.alice, item.ID)
	env.submit(t, env.bob, item.ID)

	resp := do(t, env.server, "GET", "/api/requests", env.alice, nil)
	expectStatus(t, resp, http.StatusOK)
	var list []model.Request
	decode(t, resp, &list)
	if len(list) != 1 || list[0].ID != mine.ID {
		t.Errorf("alice should see only her request, got %+v", list)
	}

	resp = do(t, env.server, "GET", "/api/requests/"+mine.ID, env.bob, nil)
	expectStatus(t, resp, http.StatusForbidden)

	resp = do(t, env.server, "GET", "/api/requests?status=pending", env.admin, nil)
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &list)
	if len(list) != 2 {
		t.Errorf("admin should see 2 pending requests, got %d", len(list))
	}

	resp = do(t, env.server, "GET", "/api/requests?status=overdue", env.admin, nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestAdminCannotSubmitRequests(t *testing.T) {
	env := setupTestServer(t)
	item := env.registerItem(t, env.admin, "Camera")

	resp := do(t, env.server, "POST", "/api/requests", env.admin, map[string]string{"item_id": item.ID})
	expectStatus(t, resp, http.StatusForbidden)
}

func TestItemPhotoUpload(t *testing.T) {
	env := setupTestServer(t)
	item := env.registerItem(t, env.admin, "Camera")

	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{0, 128, 0, 255})
		}
	}
	var pngData bytes.Buffer
	png.Encode(&pngData, img)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("image", "camera.png")
	fw.Write(pngData.Bytes())
	mw.Close()

	req, _ := http.NewRequest("PUT", env.server.URL+"/api/items/"+item.ID+"/image", &body)
	req.Header.Set("Authorization", "Bearer "+env.admin)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	var updated model.Item
	decode(t, resp, &updated)
	if updated.ImageURL != "/api/items/"+item.ID+"/image" {
		t.Errorf("image_url = %q", updated.ImageURL)
	}

	got := do(t, env.server, "GET", updated.ImageURL, env.alice, nil)
	expectStatus(t, got, http.StatusOK)
	if ct := got.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
}

func TestStaleProfileToken(t *testing.T) {
	env := setupTestServer(t)
	ghost := &model.Profile{ID: "gone", Username: "ghost", Role: model.RoleStudent}
	token, err := auth.GenerateToken(testJWTSecret, ghost)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	item := env.registerItem(t, env.admin, "Camera")

	resp := do(t, env.server, "POST", "/api/requests", token, map[string]string{"item_id": item.ID})
	expectStatus(t, resp, http.StatusForbidden)
}

func TestPendingItemHiddenFromStudents(t *testing.T) {
	env := setupTestServer(t)
	listed := env.registerItem(t, env.alice, "Unvetted")

	resp := do(t, env.server, "GET", "/api/items", env.bob, nil)
	expectStatus(t, resp, http.StatusOK)
	var items []model.Item
	decode(t, resp, &items)
	for _, it := range items {
		if it.ID == listed.ID {
			t.Error("a pending item must not be listed for students")
		}
	}

	for _, token := range []string{env.alice, env.bob} {
		resp = do(t, env.server, "GET", "/api/items/"+listed.ID, token, nil)
		expectStatus(t, resp, http.StatusNotFound)
		resp = do(t, env.server, "GET", "/api/items/"+listed.ID+"/image", token, nil)
		expectStatus(t, resp, http.StatusNotFound)
	}

	resp = do(t, env.server, "GET", "/api/items/"+listed.ID, env.admin, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, env.server, "POST", "/api/items/"+listed.ID+"/review", env.admin, nil)
	expectStatus(t, resp, http.StatusOK)
	resp = do(t, env.server, "GET", "/api/items/"+listed.ID, env.bob, nil)
	expectStatus(t, resp, http.StatusOK)
}
