package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
	"github.com/dmitrijs2005/instafeed/internal/logging"
	"github.com/dmitrijs2005/instafeed/internal/server/config"
	"github.com/dmitrijs2005/instafeed/internal/server/models"
	"github.com/dmitrijs2005/instafeed/internal/server/uploads"
)

type testAPI struct {
	srv    *Server
	router http.Handler
	models *models.Models
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store, err := docstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	up, err := uploads.NewDiskStore(t.TempDir(), "/static")
	require.NoError(t, err)

	m, err := models.New(context.Background(), models.Deps{
		Store:        store,
		HashPassword: func(password string) string { return "digest:" + password },
		FileURL:      up.URL,
	})
	require.NoError(t, err)

	cfg := &config.Config{
		AppSecret:             "test-secret",
		TokenValidityDuration: time.Hour,
		StaticURLPrefix:       "/static",
	}

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	srv := New(cfg, log, m, up)
	return &testAPI{srv: srv, router: srv.Router(), models: m}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var env struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data
}

// register creates a user over the API and returns the acting token.
func (a *testAPI) register(t *testing.T, nickname string) (id, token string) {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/users", "", map[string]any{
		"name":     "Test " + nickname,
		"nickname": nickname,
		"password": "pw123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := decodeEnvelope(t, rec)
	user := data["user"].(map[string]any)
	return user["id"].(string), data["token"].(string)
}

func (a *testAPI) createPost(t *testing.T, token string) string {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/posts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", token)

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	post := decodeEnvelope(t, rec)["post"].(map[string]any)
	return post["id"].(string)
}

func TestPostUser_Register(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/users", "", map[string]any{
		"name":     "Ada Lovelace",
		"nickname": "ada",
		"password": "pw123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := decodeEnvelope(t, rec)
	assert.True(t, strings.HasPrefix(data["token"].(string), "Bearer "))

	user := data["user"].(map[string]any)
	assert.Equal(t, "ada", user["nickname"])
	assert.NotContains(t, user, "password")
	assert.Equal(t, []any{}, user["following"])
	assert.EqualValues(t, 0, user["counters"].(map[string]any)["posts"])
}

func TestPostUser_ValidationError(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/users", "", map[string]any{
		"name":     "ab",
		"nickname": "ada",
		"password": "pw123",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	data := decodeEnvelope(t, rec)
	assert.Equal(t, "ValidationError", data["name"])
	assert.Contains(t, data["errors"].(map[string]any), "name")
}

func TestPostUser_DuplicateNickname(t *testing.T) {
	a := newTestAPI(t)

	a.register(t, "ada")

	rec := a.do(t, http.MethodPost, "/users", "", map[string]any{
		"name":     "Another Ada",
		"nickname": "ada",
		"password": "pw123",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "DatabaseError", decodeEnvelope(t, rec)["name"])
}

func TestPostLogin(t *testing.T) {
	a := newTestAPI(t)

	a.register(t, "ada")

	rec := a.do(t, http.MethodPost, "/login", "", map[string]any{
		"nickname": "ada",
		"password": "pw123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeEnvelope(t, rec)["token"])

	// Wrong password and unknown nickname come back identical.
	rec = a.do(t, http.MethodPost, "/login", "", map[string]any{
		"nickname": "ada",
		"password": "wrong",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPost, "/login", "", map[string]any{
		"nickname": "nobody",
		"password": "pw123",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUser_ByIDAndNickname(t *testing.T) {
	a := newTestAPI(t)

	id, _ := a.register(t, "ada")

	for _, key := range []string{id, "ada"} {
		rec := a.do(t, http.MethodGet, "/users/"+key, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		user := decodeEnvelope(t, rec)["user"].(map[string]any)
		assert.Equal(t, id, user["id"])
	}

	rec := a.do(t, http.MethodGet, "/users/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPut, "/users", "", map[string]any{"about": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPut, "/users", "Bearer garbage", map[string]any{"about": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPutUser(t *testing.T) {
	a := newTestAPI(t)

	_, token := a.register(t, "ada")

	rec := a.do(t, http.MethodPut, "/users", token, map[string]any{"about": "hi there"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	user := decodeEnvelope(t, rec)["user"].(map[string]any)
	assert.Equal(t, "hi there", user["about"])
	// Untouched fields survive a partial update.
	assert.Equal(t, "ada", user["nickname"])
}

func TestFollowUnfollow(t *testing.T) {
	a := newTestAPI(t)

	aliceID, aliceToken := a.register(t, "alice")
	bobID, _ := a.register(t, "bob")

	rec := a.do(t, http.MethodPost, "/users/"+bobID+"/follow", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/users/"+bobID, "", nil)
	user := decodeEnvelope(t, rec)["user"].(map[string]any)
	assert.Equal(t, []any{aliceID}, user["followers"])

	rec = a.do(t, http.MethodPost, "/users/"+bobID+"/unfollow", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/users/"+bobID, "", nil)
	user = decodeEnvelope(t, rec)["user"].(map[string]any)
	assert.Equal(t, []any{}, user["followers"])
}

func TestPostLifecycle(t *testing.T) {
	a := newTestAPI(t)

	adaID, adaToken := a.register(t, "ada")
	_, eveToken := a.register(t, "eve")

	postID := a.createPost(t, adaToken)

	// The owner's post counter moved.
	rec := a.do(t, http.MethodGet, "/users/"+adaID, "", nil)
	user := decodeEnvelope(t, rec)["user"].(map[string]any)
	assert.EqualValues(t, 1, user["counters"].(map[string]any)["posts"])

	// The file projects as a static URL.
	rec = a.do(t, http.MethodGet, "/posts/"+postID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	post := decodeEnvelope(t, rec)["post"].(map[string]any)
	assert.True(t, strings.HasPrefix(post["file"].(string), "/static/"))

	// Someone else cannot delete it.
	rec = a.do(t, http.MethodDelete, "/posts/"+postID, eveToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodDelete, "/posts/"+postID, adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/posts/"+postID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLikeUnlike(t *testing.T) {
	a := newTestAPI(t)

	_, adaToken := a.register(t, "ada")
	fanID, fanToken := a.register(t, "fan")

	postID := a.createPost(t, adaToken)

	feedback := func() map[string]any {
		rec := a.do(t, http.MethodGet, "/posts/"+postID, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		post := decodeEnvelope(t, rec)["post"].(map[string]any)
		return post["feedback"].(map[string]any)
	}

	rec := a.do(t, http.MethodPost, "/posts/"+postID+"/like", fanToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{fanID}, feedback()["likes"])

	// Liking twice does not duplicate.
	rec = a.do(t, http.MethodPost, "/posts/"+postID+"/like", fanToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{fanID}, feedback()["likes"])

	rec = a.do(t, http.MethodPost, "/posts/"+postID+"/unlike", fanToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, feedback()["likes"])

	rec = a.do(t, http.MethodPost, "/posts/missing/like", fanToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestComments(t *testing.T) {
	a := newTestAPI(t)

	_, adaToken := a.register(t, "ada")
	_, eveToken := a.register(t, "eve")

	postID := a.createPost(t, adaToken)

	rec := a.do(t, http.MethodPost, "/posts/"+postID+"/comments", eveToken, map[string]any{
		"text": "nice shot",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	comment := decodeEnvelope(t, rec)["comment"].(map[string]any)
	commentID := comment["id"].(string)

	// The post's comment counter moved.
	rec = a.do(t, http.MethodGet, "/posts/"+postID, "", nil)
	post := decodeEnvelope(t, rec)["post"].(map[string]any)
	assert.EqualValues(t, 1, post["feedback"].(map[string]any)["comments"])

	// Listing attaches each author under "commiter", without the password.
	req := httptest.NewRequest(http.MethodGet, "/posts/"+postID+"/comments", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	commiter := env.Data[0]["commiter"].(map[string]any)
	assert.Equal(t, "eve", commiter["nickname"])
	assert.NotContains(t, commiter, "password")

	// Only the author may delete.
	rec = a.do(t, http.MethodDelete, "/comments/"+commentID, adaToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodDelete, "/comments/"+commentID, eveToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/posts/"+postID, "", nil)
	post = decodeEnvelope(t, rec)["post"].(map[string]any)
	assert.EqualValues(t, 0, post["feedback"].(map[string]any)["comments"])
}

func TestGetUserPosts(t *testing.T) {
	a := newTestAPI(t)

	adaID, adaToken := a.register(t, "ada")

	for i := 0; i < 3; i++ {
		a.createPost(t, adaToken)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/users/%s/posts?page=2&perPage=2", adaID), nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Len(t, env.Data, 1)

	rec := a.do(t, http.MethodGet, "/users/nobody/posts", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	a := newTestAPI(t)

	_, token := a.register(t, "ada")

	rec := a.do(t, http.MethodPut, "/users", token, map[string]any{"isAdmin": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
