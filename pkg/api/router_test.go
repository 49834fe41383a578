package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dreamer0iQ/0x40-cloud/pkg/activity"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/api/auth"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/content"
	fsstore "github.com/Dreamer0iQ/0x40-cloud/pkg/content/store/fs"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/lifecycle"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/quota"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/share"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/models"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

type testServer struct {
	router  http.Handler
	catalog *store.GORMStore
	jwt     *auth.JWTService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	catalog, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.Close() })

	blobs, err := fsstore.New(fsstore.Config{BasePath: t.TempDir()})
	require.NoError(t, err)

	contentSvc := content.NewService(blobs, content.WithSpoolDir(t.TempDir()))
	quotaSvc := quota.NewService(catalog, "", 0)
	files := lifecycle.NewService(catalog, contentSvc, quotaSvc, activity.NewNoop())

	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret: "test-secret-key-that-is-at-least-32-characters-long",
		Issuer: "test",
	})
	require.NoError(t, err)

	cfg := Config{Port: 8080}
	cfg.ApplyDefaults()

	router := NewRouter(cfg, Dependencies{
		Catalog: catalog,
		Files:   files,
		Shares:  share.NewService(catalog),
		Quota:   quotaSvc,
		JWT:     jwtService,
	})

	return &testServer{router: router, catalog: catalog, jwt: jwtService}
}

func (ts *testServer) createUser(t *testing.T, username, password, role string) *models.User {
	t.Helper()

	hash, err := models.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(t, ts.catalog.CreateUser(context.Background(), user))
	return user
}

func (ts *testServer) token(t *testing.T, user *models.User) string {
	t.Helper()
	pair, err := ts.jwt.GenerateTokenPair(user)
	require.NoError(t, err)
	return pair.AccessToken
}

func (ts *testServer) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) upload(t *testing.T, token, dirPath, name string, data []byte) *models.FileEntry {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("path", dirPath))
	part, err := mw.CreateFormFile("files", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Results []struct {
			Entry *models.FileEntry `json:"entry"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	require.NotNil(t, resp.Results[0].Entry)
	return resp.Results[0].Entry
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginAndMe(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice", "password123", "user")

	w := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login struct {
		AccessToken  string       `json:"access_token"`
		RefreshToken string       `json:"refresh_token"`
		User         *models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)
	assert.Equal(t, "alice", login.User.Username)

	w = ts.do(t, http.MethodGet, "/api/v1/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Wrong password.
	w = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice", "password": "nope-wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Refresh with the refresh token.
	w = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": login.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Access token is not a refresh token.
	w = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": login.AccessToken,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "bob", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var reg struct {
		AccessToken string       `json:"access_token"`
		User        *models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	assert.NotEmpty(t, reg.AccessToken)
	assert.Equal(t, "bob", reg.User.Username)
	assert.Equal(t, string(models.RoleUser), reg.User.Role)

	// The issued token works right away.
	w = ts.do(t, http.MethodGet, "/api/v1/auth/me", reg.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Duplicate usernames are rejected.
	w = ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "bob", "password": "password456",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Short passwords are rejected.
	w = ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "carol", "password": "short",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestFilesRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/files/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/files/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadListDownload(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice", "password123", "user")
	token := ts.token(t, user)

	entry := ts.upload(t, token, "/", "notes.txt", []byte("hello world"))
	assert.Equal(t, "notes.txt", entry.OriginalName)
	assert.Equal(t, int64(11), entry.Size)

	// Listing shows the file.
	w := ts.do(t, http.MethodGet, "/api/v1/files/?path=/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listing struct {
		Entries []*models.FileEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Len(t, listing.Entries, 1)

	// Download round-trips the content.
	w = ts.do(t, http.MethodGet, "/api/v1/files/"+entry.ID+"/download", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "notes.txt")

	// Unknown id is a 404 problem.
	w = ts.do(t, http.MethodGet, "/api/v1/files/"+uuid.NewString()+"/download", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")
}

func TestUploadDuplicateConflict(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice", "password123", "user")
	token := ts.token(t, user)

	ts.upload(t, token, "/", "a.txt", []byte("one"))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("path", "/"))
	part, _ := mw.CreateFormFile("files", "a.txt")
	_, _ = part.Write([]byte("two"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

func TestRenameMoveStarTrashRestore(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice", "password123", "user")
	token := ts.token(t, user)

	entry := ts.upload(t, token, "/", "draft.txt", []byte("content"))

	w := ts.do(t, http.MethodPatch, "/api/v1/files/"+entry.ID+"/rename", token, map[string]string{
		"new_name": "final.txt",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPatch, "/api/v1/files/"+entry.ID+"/move", token, map[string]string{
		"new_path": "/Documents/",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/v1/files/"+entry.ID+"/star", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var starResp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &starResp))
	assert.True(t, starResp["is_starred"])

	// Trash, verify listing, restore.
	w = ts.do(t, http.MethodDelete, "/api/v1/files/"+entry.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/files/trash", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trash struct {
		Entries []*models.FileEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trash))
	require.Len(t, trash.Entries, 1)

	w = ts.do(t, http.MethodPost, "/api/v1/files/"+entry.ID+"/restore", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Restoring an active entry is a 422.
	w = ts.do(t, http.MethodPost, "/api/v1/files/"+entry.ID+"/restore", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestFolderLifecycle(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice", "password123", "user")
	token := ts.token(t, user)

	w := ts.do(t, http.MethodPost, "/api/v1/files/folder", token, map[string]string{
		"path": "/", "name": "Photos",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	ts.upload(t, token, "/Photos/", "pic.bin", []byte{0x89, 0x50, 0x4e, 0x47})

	// Star the folder by path.
	w = ts.do(t, http.MethodPost, "/api/v1/files/folder/star", token, map[string]string{
		"path": "/Photos/",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Archive download streams a zip.
	w = ts.do(t, http.MethodGet, "/api/v1/files/download-folder?path=/Photos/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Photos.zip")

	// Delete the folder, trashing its file.
	w = ts.do(t, http.MethodDelete, "/api/v1/files/folder?path=/Photos/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var del map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &del))
	assert.Equal(t, int64(1), del["trashed"])
}

func TestShareFlow(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice", "password123", "user")
	token := ts.token(t, user)

	entry := ts.upload(t, token, "/", "shared.txt", []byte("share me"))

	limit := int64(1)
	w := ts.do(t, http.MethodPost, "/api/v1/shares/", token, map[string]any{
		"file_id": entry.ID,
		"limit":   limit,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Token)
	assert.Contains(t, created.URL, created.Token)

	// Public metadata does not burn a download.
	w = ts.do(t, http.MethodGet, "/public/share/"+created.Token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// First download succeeds.
	w = ts.do(t, http.MethodGet, "/public/share/"+created.Token+"/download", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "share me", w.Body.String())

	// Second download exceeds the limit.
	w = ts.do(t, http.MethodGet, "/public/share/"+created.Token+"/download", "", nil)
	assert.Equal(t, http.StatusGone, w.Code)

	// Owner listing shows the link.
	w = ts.do(t, http.MethodGet, "/api/v1/shares/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Revoke kills public access.
	w = ts.do(t, http.MethodDelete, "/api/v1/shares/"+created.Token, token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/public/share/"+created.Token, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSharedDownloadOfTrashedFileKeepsCounter(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice", "password123", "user")
	token := ts.token(t, user)

	entry := ts.upload(t, token, "/", "gone.txt", []byte("bye"))

	limit := int64(1)
	w := ts.do(t, http.MethodPost, "/api/v1/shares/", token, map[string]any{
		"file_id": entry.ID,
		"limit":   limit,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Trash the target, then try the public download.
	w = ts.do(t, http.MethodDelete, "/api/v1/files/"+entry.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/public/share/"+created.Token+"/download", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The failed attempt must not burn the single download: restoring
	// the file leaves it downloadable.
	w = ts.do(t, http.MethodGet, "/public/share/"+created.Token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var preview struct {
		Remaining *int64 `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	require.NotNil(t, preview.Remaining)
	assert.Equal(t, int64(1), *preview.Remaining)

	w = ts.do(t, http.MethodPost, "/api/v1/files/"+entry.ID+"/restore", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/public/share/"+created.Token+"/download", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bye", w.Body.String())
}

func TestStorageStats(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice", "password123", "user")
	token := ts.token(t, user)

	ts.upload(t, token, "/", "doc.txt", []byte("0123456789"))

	w := ts.do(t, http.MethodGet, "/api/v1/files/storage", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stats struct {
		TotalUsed int64 `json:"total_used"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(10), stats.TotalUsed)
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.createUser(t, "root", "password123", "admin")
	regular := ts.createUser(t, "bob", "password123", "user")

	adminToken := ts.token(t, admin)
	userToken := ts.token(t, regular)

	// Regular users are rejected.
	w := ts.do(t, http.MethodGet, "/api/v1/admin/users/", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Admin can list and create.
	w = ts.do(t, http.MethodGet, "/api/v1/admin/users/", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/admin/users/", adminToken, map[string]any{
		"username": "carol",
		"password": "longenough",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Quota update round-trips.
	w = ts.do(t, http.MethodPatch, "/api/v1/admin/users/carol/quota", adminToken, map[string]any{
		"quota_bytes": int64(1 << 30),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, int64(1<<30), updated.QuotaBytes)

	// Duplicate username conflicts.
	w = ts.do(t, http.MethodPost, "/api/v1/admin/users/", adminToken, map[string]any{
		"username": "carol",
		"password": "longenough",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/v1/admin/users/carol", adminToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSearchAndRecent(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "alice", "password123", "user")
	token := ts.token(t, user)

	for i := 0; i < 3; i++ {
		ts.upload(t, token, "/", fmt.Sprintf("report-%d.txt", i), []byte{byte(i)})
	}

	w := ts.do(t, http.MethodGet, "/api/v1/files/search?q=report", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Entries []*models.FileEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Entries, 3)

	// Missing query is a 400.
	w = ts.do(t, http.MethodGet, "/api/v1/files/search", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/files/recent?limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Entries, 2)
}
