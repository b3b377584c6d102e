package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/redsocial/internal/model"
	"github.com/hitoshi/redsocial/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id int64) (*model.User, error)
	findByEmailFn    func(ctx context.Context, email string) (*model.User, error)
	findWithCountsFn func(ctx context.Context, id int64) (*model.UserWithCounts, error)
	listWithCountsFn func(ctx context.Context, q model.UserListQuery) ([]*model.UserWithCounts, error)
	searchFn         func(ctx context.Context, term string, limit int) ([]*model.UserWithCounts, error)
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) FindWithCounts(ctx context.Context, id int64) (*model.UserWithCounts, error) {
	if m.findWithCountsFn != nil {
		return m.findWithCountsFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) ListWithCounts(ctx context.Context, q model.UserListQuery) ([]*model.UserWithCounts, error) {
	if m.listWithCountsFn != nil {
		return m.listWithCountsFn(ctx, q)
	}
	return nil, nil
}

func (m *mockUserRepo) Search(ctx context.Context, term string, limit int) ([]*model.UserWithCounts, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, term, limit)
	}
	return nil, nil
}

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func newTestService(repo *mockUserRepo) *Service {
	svc := NewService(repo)
	svc.SetClock(func() time.Time { return fixedNow })
	return svc
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError with code %s", err, code)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

// --- List ---

func TestList_PassesQueryAndComputesAge(t *testing.T) {
	var gotQuery model.UserListQuery
	repo := &mockUserRepo{
		listWithCountsFn: func(_ context.Context, q model.UserListQuery) ([]*model.UserWithCounts, error) {
			gotQuery = q
			return []*model.UserWithCounts{
				{User: model.User{ID: 1, Name: "Ana", BirthDate: date(2000, 6, 15)}, PostCount: 3, LikeCount: 1},
				{User: model.User{ID: 2, Name: "Beto", BirthDate: date(2000, 6, 16)}},
				{User: model.User{ID: 3, Name: "Caro"}},
			}, nil
		},
	}
	svc := newTestService(repo)

	got, err := svc.List(context.Background(), ListQuery{Search: "  an  ", SortBy: "alias", Order: "DESC"})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	want := model.UserListQuery{Search: "an", SortBy: model.UserSortByAlias, Desc: true}
	if gotQuery != want {
		t.Errorf("query = %+v, want %+v", gotQuery, want)
	}
	if len(got) != 3 {
		t.Fatalf("len(users) = %d, want 3", len(got))
	}

	// 誕生日当日は加算済み、前日はまだ加算されない
	if got[0].Age == nil || *got[0].Age != 26 {
		t.Errorf("Ana age = %v, want 26", got[0].Age)
	}
	if got[1].Age == nil || *got[1].Age != 25 {
		t.Errorf("Beto age = %v, want 25", got[1].Age)
	}
	if got[2].Age != nil {
		t.Errorf("Caro age = %v, want nil", *got[2].Age)
	}
	if got[0].PostCount != 3 || got[0].LikeCount != 1 {
		t.Errorf("Ana counts = %d/%d, want 3/1", got[0].PostCount, got[0].LikeCount)
	}
}

func TestList_InvalidSortOrOrder(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.List(context.Background(), ListQuery{SortBy: "password", Order: "asc"})
	assertAPIErrorCode(t, err, model.ErrCodeValidation)

	_, err = svc.List(context.Background(), ListQuery{SortBy: "name", Order: "sideways"})
	assertAPIErrorCode(t, err, model.ErrCodeValidation)
}

func TestList_RepoErrorIsWrapped(t *testing.T) {
	dbErr := errors.New("db down")
	repo := &mockUserRepo{listWithCountsFn: func(context.Context, model.UserListQuery) ([]*model.UserWithCounts, error) {
		return nil, dbErr
	}}
	svc := newTestService(repo)

	if _, err := svc.List(context.Background(), ListQuery{SortBy: "name", Order: "asc"}); !errors.Is(err, dbErr) {
		t.Errorf("error = %v, want wrapped %v", err, dbErr)
	}
}

// --- Get ---

func TestGet_Found(t *testing.T) {
	repo := &mockUserRepo{
		findWithCountsFn: func(_ context.Context, id int64) (*model.UserWithCounts, error) {
			return &model.UserWithCounts{
				User:      model.User{ID: id, Email: "a@test.com", BirthDate: date(1990, 1, 1)},
				PostCount: 4,
				LikeCount: 9,
			}, nil
		},
	}
	svc := newTestService(repo)

	got, err := svc.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.ID != 7 || got.PostCount != 4 || got.LikeCount != 9 {
		t.Errorf("profile = %+v", got)
	}
	if got.Age == nil || *got.Age != 36 {
		t.Errorf("age = %v, want 36", got.Age)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.Get(context.Background(), 999)
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

func TestGet_InvalidID(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.Get(context.Background(), 0)
	assertAPIErrorCode(t, err, model.ErrCodeValidation)
}

// --- Search ---

func TestSearch_Success(t *testing.T) {
	var gotTerm string
	var gotLimit int
	repo := &mockUserRepo{
		searchFn: func(_ context.Context, term string, limit int) ([]*model.UserWithCounts, error) {
			gotTerm, gotLimit = term, limit
			return []*model.UserWithCounts{{User: model.User{ID: 1, Name: "Ana"}}}, nil
		},
	}
	svc := newTestService(repo)

	got, err := svc.Search(context.Background(), " ana ", 5)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if gotTerm != "ana" || gotLimit != 5 {
		t.Errorf("Search called with (%q, %d), want (%q, %d)", gotTerm, gotLimit, "ana", 5)
	}
	if len(got) != 1 {
		t.Errorf("len(results) = %d, want 1", len(got))
	}
}

func TestSearch_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		term  string
		limit int
	}{
		{"q vacío", "", DefaultSearchLimit},
		{"q sólo espacios", "   ", DefaultSearchLimit},
		{"limit cero", "ana", 0},
		{"limit sobre el máximo", "ana", MaxSearchLimit + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			repo := &mockUserRepo{searchFn: func(context.Context, string, int) ([]*model.UserWithCounts, error) {
				called = true
				return nil, nil
			}}
			svc := newTestService(repo)

			_, err := svc.Search(context.Background(), tt.term, tt.limit)
			assertAPIErrorCode(t, err, model.ErrCodeValidation)
			if called {
				t.Error("repository must not be called on invalid input")
			}
		})
	}
}
