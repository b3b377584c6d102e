package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/redsocial/internal/like"
	"github.com/hitoshi/redsocial/internal/model"
)

// --- モック定義 ---

type mockLikeService struct {
	toggleFn    func(ctx context.Context, postID, userID int64) (*model.ToggleResult, error)
	getLikersFn func(ctx context.Context, postID int64, limit int) ([]model.Liker, error)
}

func (m *mockLikeService) ToggleLike(ctx context.Context, postID, userID int64) (*model.ToggleResult, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, postID, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockLikeService) GetLikers(ctx context.Context, postID int64, limit int) ([]model.Liker, error) {
	if m.getLikersFn != nil {
		return m.getLikersFn(ctx, postID, limit)
	}
	return nil, nil
}

// postSet は存在する投稿IDの集合。like.PostChecker を満たす。
type postSet map[int64]bool

func (s postSet) Exists(_ context.Context, id int64) (bool, error) {
	return s[id], nil
}

// memLikes は like.Service と組み合わせるインメモリのいいねストア。
type memLikes struct {
	mu   sync.Mutex
	seq  int64
	rows map[[2]int64]model.Like
}

func newMemLikes() *memLikes {
	return &memLikes{rows: make(map[[2]int64]model.Like)}
}

func (m *memLikes) Find(_ context.Context, userID, postID int64) (*model.Like, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.rows[[2]int64{userID, postID}]; ok {
		return &l, nil
	}
	return nil, nil
}

func (m *memLikes) Create(_ context.Context, userID, postID int64) (*model.Like, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	l := model.Like{
		ID: m.seq, UserID: userID, PostID: postID,
		CreatedAt: time.Unix(1_800_000_000+m.seq, 0),
		User:      &model.UserSummary{ID: userID, Email: "u@test.com"},
	}
	m.rows[[2]int64{userID, postID}] = l
	return &l, nil
}

func (m *memLikes) Delete(_ context.Context, userID, postID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{userID, postID}
	_, ok := m.rows[key]
	delete(m.rows, key)
	return ok, nil
}

func (m *memLikes) CountByPost(_ context.Context, postID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.rows {
		if k[1] == postID {
			n++
		}
	}
	return n, nil
}

func (m *memLikes) ListLikers(_ context.Context, postID int64, limit int) ([]model.Liker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Liker
	for k, l := range m.rows {
		if k[1] == postID && len(out) < limit {
			out = append(out, model.Liker{ID: k[0], Email: "u@test.com", LikedAt: l.CreatedAt})
		}
	}
	return out, nil
}

func newLikeTestRouter(t *testing.T, svc LikeServiceInterface) (http.Handler, string) {
	t.Helper()
	issuer := newTestIssuer(t)
	router := NewLikeRouter(&RouterDeps{Service: "like", Verifier: issuer}, svc, nil)
	return router, bearerFor(t, issuer, model.Identity{ID: 7, Email: "u7@test.com"})
}

type toggleData struct {
	Like *struct {
		ID     int64 `json:"id"`
		UserID int64 `json:"userId"`
		PostID int64 `json:"postId"`
	} `json:"like"`
	Action    string `json:"action"`
	LikeCount int64  `json:"likeCount"`
	Message   string `json:"message"`
}

func postToggle(t *testing.T, router http.Handler, bearer, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/like/create-or-delete-like", strings.NewReader(body))
	req.Header.Set("Authorization", bearer)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- POST /api/v1/like/create-or-delete-like ---

// Toggle(5,7) は added/1、続けて removed/0 を返す
func TestLikeHandler_Toggle_AddThenRemove(t *testing.T) {
	svc := like.NewService(postSet{5: true}, newMemLikes(), nil)
	router, bearer := newLikeTestRouter(t, svc)

	rec := postToggle(t, router, bearer, `{"postId":5,"userId":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("first toggle: status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var first toggleData
	decodeEnvelope(t, rec, &first)
	if first.Action != "added" || first.LikeCount != 1 || first.Message != "Like agregado" {
		t.Errorf("first = %+v, want added/1/Like agregado", first)
	}
	if first.Like == nil || first.Like.UserID != 7 || first.Like.PostID != 5 {
		t.Errorf("first.like = %+v, want like of user 7 on post 5", first.Like)
	}

	// 数字の文字列でも受け付ける
	rec = postToggle(t, router, bearer, `{"postId":"5","userId":"7"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("second toggle: status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var second toggleData
	decodeEnvelope(t, rec, &second)
	if second.Action != "removed" || second.LikeCount != 0 || second.Message != "Like eliminado" {
		t.Errorf("second = %+v, want removed/0/Like eliminado", second)
	}
	if second.Like != nil {
		t.Errorf("second.like = %+v, want null", second.Like)
	}
}

func TestLikeHandler_Toggle_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
	}{
		{"postId無し", `{"userId":7}`, nil, http.StatusUnprocessableEntity},
		{"userId無し", `{"postId":5}`, nil, http.StatusUnprocessableEntity},
		{"postIdが整数でない", `{"postId":"cinco","userId":7}`, nil, http.StatusUnprocessableEntity},
		{"JSON不正", `{`, nil, http.StatusUnprocessableEntity},
		{"投稿が存在しない", `{"postId":999,"userId":7}`, model.NewPostNotFoundError(999), http.StatusNotFound},
		{"トークンの利用者が削除済み", `{"postId":5,"userId":7}`, model.NewUserNotFoundError(7), http.StatusNotFound},
		{"他人のuserId", `{"postId":5,"userId":999}`, nil, http.StatusForbidden},
		{"ストレージ障害", `{"postId":5,"userId":7}`, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockLikeService{toggleFn: func(context.Context, int64, int64) (*model.ToggleResult, error) {
				if tt.svcErr == nil {
					t.Fatal("service should not be called")
				}
				return nil, tt.svcErr
			}}
			router, bearer := newLikeTestRouter(t, svc)

			rec := postToggle(t, router, bearer, tt.body)
			assertErrorEnvelope(t, rec, tt.wantStatus)
		})
	}
}

func TestLikeHandler_Toggle_NoToken_Returns401(t *testing.T) {
	svc := &mockLikeService{toggleFn: func(context.Context, int64, int64) (*model.ToggleResult, error) {
		t.Fatal("service should not be called")
		return nil, nil
	}}
	router, _ := newLikeTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/like/create-or-delete-like", strings.NewReader(`{"postId":5,"userId":7}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assertErrorEnvelope(t, rec, http.StatusUnauthorized)
}

// --- GET /api/v1/like/post/{postId}/users ---

func TestLikeHandler_GetLikers_Success(t *testing.T) {
	var gotLimit int
	svc := &mockLikeService{getLikersFn: func(_ context.Context, postID int64, limit int) ([]model.Liker, error) {
		gotLimit = limit
		return []model.Liker{
			{ID: 2, Name: "Beto", Email: "b@test.com", LikedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		}, nil
	}}
	router, bearer := newLikeTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/like/post/5/users", nil)
	req.Header.Set("Authorization", bearer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	if gotLimit != like.DefaultLikersLimit {
		t.Errorf("limit = %d, want default %d", gotLimit, like.DefaultLikersLimit)
	}

	var data struct {
		Users []struct {
			ID      int64  `json:"id"`
			Name    string `json:"name"`
			LikedAt string `json:"likedAt"`
		} `json:"users"`
		TotalUsers int    `json:"totalUsers"`
		Message    string `json:"message"`
	}
	decodeEnvelope(t, rec, &data)
	if data.TotalUsers != 1 || len(data.Users) != 1 {
		t.Fatalf("totalUsers = %d, len(users) = %d, want 1", data.TotalUsers, len(data.Users))
	}
	if data.Users[0].LikedAt != "2026-01-02T03:04:05Z" {
		t.Errorf("likedAt = %q, want RFC3339", data.Users[0].LikedAt)
	}
}

func TestLikeHandler_GetLikers_PostNotFound_Returns404(t *testing.T) {
	svc := like.NewService(postSet{5: true}, newMemLikes(), nil)
	router, bearer := newLikeTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/like/post/999/users", nil)
	req.Header.Set("Authorization", bearer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assertErrorEnvelope(t, rec, http.StatusNotFound)
}

func TestLikeHandler_GetLikers_InvalidParams_Returns422(t *testing.T) {
	svc := like.NewService(postSet{5: true}, newMemLikes(), nil)
	router, bearer := newLikeTestRouter(t, svc)

	for _, path := range []string{
		"/api/v1/like/post/abc/users",
		"/api/v1/like/post/5/users?limit=0",
		"/api/v1/like/post/5/users?limit=101",
		"/api/v1/like/post/5/users?limit=diez",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", bearer)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: status = %d, want %d", path, rec.Code, http.StatusUnprocessableEntity)
		}
	}
}

func TestToToggleResponse_EncodesNullLikeOnRemove(t *testing.T) {
	raw, err := json.Marshal(toToggleResponse(&model.ToggleResult{Action: model.LikeActionRemoved}))
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if !strings.Contains(string(raw), `"like":null`) {
		t.Errorf("encoded = %s, want like:null", raw)
	}
}
