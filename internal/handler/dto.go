package handler

import (
	"time"

	"github.com/hitoshi/redsocial/internal/auth"
	"github.com/hitoshi/redsocial/internal/model"
	"github.com/hitoshi/redsocial/internal/post"
	"github.com/hitoshi/redsocial/internal/user"
)

// dateLayout は生年月日の出力形式。
const dateLayout = "2006-01-02"

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(dateLayout)
	return &s
}

// --- auth ---

type identityResponse struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Alias     string  `json:"alias"`
	BirthDate *string `json:"birthDate"`
	CreatedAt string  `json:"createdAt"`
}

func toIdentityResponse(id model.Identity) identityResponse {
	return identityResponse{
		ID:        id.ID,
		Email:     id.Email,
		Name:      id.Name,
		Alias:     id.Alias,
		BirthDate: formatDate(id.BirthDate),
		CreatedAt: formatTime(id.CreatedAt),
	}
}

type tokenResponse struct {
	Token               string `json:"token"`
	TimeBeforeExpiredAt int64  `json:"timeBeforeExpiredAt"`
}

type sessionResponse struct {
	Message string           `json:"message"`
	Token   tokenResponse    `json:"token"`
	Data    identityResponse `json:"data"`
}

func toSessionResponse(s *auth.Session, message string) sessionResponse {
	return sessionResponse{
		Message: message,
		Token: tokenResponse{
			Token:               s.Token.Token,
			TimeBeforeExpiredAt: s.Token.RefreshAt.Unix(),
		},
		Data: toIdentityResponse(s.User),
	}
}

// --- like ---

type likeUserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type likeResponse struct {
	ID        int64             `json:"id"`
	UserID    int64             `json:"userId"`
	PostID    int64             `json:"postId"`
	CreatedAt string            `json:"createdAt"`
	User      *likeUserResponse `json:"User,omitempty"`
}

func toLikeResponse(l model.Like) likeResponse {
	resp := likeResponse{
		ID:        l.ID,
		UserID:    l.UserID,
		PostID:    l.PostID,
		CreatedAt: formatTime(l.CreatedAt),
	}
	if l.User != nil {
		resp.User = &likeUserResponse{ID: l.User.ID, Email: l.User.Email}
	}
	return resp
}

type toggleResponse struct {
	Like      *likeResponse `json:"like"`
	Action    string        `json:"action"`
	LikeCount int64         `json:"likeCount"`
	Message   string        `json:"message"`
}

func toToggleResponse(res *model.ToggleResult) toggleResponse {
	resp := toggleResponse{
		Action:    string(res.Action),
		LikeCount: res.LikeCount,
		Message:   "Like eliminado",
	}
	if res.Action == model.LikeActionAdded {
		resp.Message = "Like agregado"
	}
	if res.Like != nil {
		l := toLikeResponse(*res.Like)
		resp.Like = &l
	}
	return resp
}

type likerResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	LikedAt string `json:"likedAt"`
}

type likersResponse struct {
	Users      []likerResponse `json:"users"`
	TotalUsers int             `json:"totalUsers"`
	Message    string          `json:"message"`
}

func toLikersResponse(likers []model.Liker) likersResponse {
	users := make([]likerResponse, 0, len(likers))
	for _, l := range likers {
		users = append(users, likerResponse{
			ID:      l.ID,
			Name:    l.Name,
			Email:   l.Email,
			LikedAt: formatTime(l.LikedAt),
		})
	}
	return likersResponse{
		Users:      users,
		TotalUsers: len(users),
		Message:    "Usuarios que dieron like obtenidos exitosamente",
	}
}

// --- post ---

type userSummaryResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type postImageResponse struct {
	ID         int64  `json:"id"`
	NameServer string `json:"nameServer"`
	NameClient string `json:"nameClient"`
	Ext        string `json:"ext"`
	Size       int64  `json:"size"`
	PostID     int64  `json:"postId"`
	CreatedAt  string `json:"createdAt"`
}

type postResponse struct {
	ID           int64               `json:"id"`
	Message      string              `json:"message"`
	UserID       int64               `json:"userId"`
	CreatedAt    string              `json:"createdAt"`
	User         userSummaryResponse `json:"User"`
	Like         []likeResponse      `json:"Like"`
	PostImage    []postImageResponse `json:"PostImage"`
	LikeCount    int64               `json:"likeCount"`
	UserHasLiked bool                `json:"userHasLiked"`
}

func toPostResponse(p *model.Post) postResponse {
	likes := make([]likeResponse, 0, len(p.Likes))
	for _, l := range p.Likes {
		likes = append(likes, toLikeResponse(l))
	}
	images := make([]postImageResponse, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, postImageResponse{
			ID:         img.ID,
			NameServer: img.NameServer,
			NameClient: img.NameClient,
			Ext:        img.Ext,
			Size:       img.Size,
			PostID:     img.PostID,
			CreatedAt:  formatTime(img.CreatedAt),
		})
	}
	return postResponse{
		ID:        p.ID,
		Message:   p.Message,
		UserID:    p.UserID,
		CreatedAt: formatTime(p.CreatedAt),
		User: userSummaryResponse{
			ID:    p.Author.ID,
			Email: p.Author.Email,
			Name:  p.Author.Name,
		},
		Like:         likes,
		PostImage:    images,
		LikeCount:    p.LikeCount,
		UserHasLiked: p.UserHasLiked,
	}
}

func toPostResponses(posts []*model.Post) []postResponse {
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	return out
}

type postListResponse struct {
	Posts      []postResponse `json:"posts"`
	TotalPosts int            `json:"totalPosts"`
	Message    string         `json:"message"`
}

type paginationResponse struct {
	TotalPosts      int64 `json:"totalPosts"`
	TotalPages      int   `json:"totalPages"`
	CurrentPage     int   `json:"currentPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
	Limit           int   `json:"limit"`
}

type postFiltersResponse struct {
	UserID *int64 `json:"userId"`
	SortBy string `json:"sortBy"`
	Order  string `json:"order"`
}

type paginatedPostsResponse struct {
	Posts      []postResponse      `json:"posts"`
	Pagination paginationResponse  `json:"pagination"`
	Filters    postFiltersResponse `json:"filters"`
	Message    string              `json:"message"`
}

func toPaginatedPostsResponse(page *post.Page) paginatedPostsResponse {
	var userID *int64
	if page.Filters.UserID != 0 {
		id := page.Filters.UserID
		userID = &id
	}
	p := page.Pagination
	return paginatedPostsResponse{
		Posts: toPostResponses(page.Posts),
		Pagination: paginationResponse{
			TotalPosts:      p.TotalPosts,
			TotalPages:      p.TotalPages,
			CurrentPage:     p.CurrentPage,
			HasNextPage:     p.HasNextPage,
			HasPreviousPage: p.HasPreviousPage,
			Limit:           p.Limit,
		},
		Filters: postFiltersResponse{
			UserID: userID,
			SortBy: string(page.Filters.SortBy),
			Order:  page.Filters.Order,
		},
		Message: "Posts obtenidos exitosamente",
	}
}

type postOwnerResponse struct {
	ID int64 `json:"id"`
}

type userPostsResponse struct {
	Posts      []postResponse    `json:"posts"`
	User       postOwnerResponse `json:"user"`
	TotalPosts int               `json:"totalPosts"`
	Message    string            `json:"message"`
}

type singlePostResponse struct {
	Post    postResponse `json:"post"`
	Message string       `json:"message"`
}

// --- user ---

type userListItemResponse struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Alias     string  `json:"alias"`
	BirthDate *string `json:"birthDate"`
	CreatedAt string  `json:"createdAt"`
	PostCount int64   `json:"postCount"`
	LikeCount int64   `json:"likeCount"`
	Age       *int    `json:"age"`
}

type userFiltersResponse struct {
	Search *string `json:"search"`
	SortBy string  `json:"sortBy"`
	Order  string  `json:"order"`
}

type userListResponse struct {
	Users      []userListItemResponse `json:"users"`
	TotalUsers int                    `json:"totalUsers"`
	Filters    userFiltersResponse    `json:"filters"`
	Message    string                 `json:"message"`
}

func toUserListResponse(profiles []user.Profile, q user.ListQuery) userListResponse {
	users := make([]userListItemResponse, 0, len(profiles))
	for _, p := range profiles {
		users = append(users, userListItemResponse{
			ID:        p.ID,
			Email:     p.Email,
			Name:      p.Name,
			Alias:     p.Alias,
			BirthDate: formatDate(p.BirthDate),
			CreatedAt: formatTime(p.CreatedAt),
			PostCount: p.PostCount,
			LikeCount: p.LikeCount,
			Age:       p.Age,
		})
	}
	var search *string
	if q.Search != "" {
		s := q.Search
		search = &s
	}
	return userListResponse{
		Users:      users,
		TotalUsers: len(users),
		Filters: userFiltersResponse{
			Search: search,
			SortBy: q.SortBy,
			Order:  q.Order,
		},
		Message: "Usuarios obtenidos exitosamente",
	}
}

type userStatsResponse struct {
	TotalPosts int64 `json:"totalPosts"`
	TotalLikes int64 `json:"totalLikes"`
}

type userDetailResponse struct {
	ID        int64             `json:"id"`
	Email     string            `json:"email"`
	Name      string            `json:"name"`
	Alias     string            `json:"alias"`
	BirthDate *string           `json:"birthDate"`
	CreatedAt string            `json:"createdAt"`
	Age       *int              `json:"age"`
	Stats     userStatsResponse `json:"stats"`
}

type singleUserResponse struct {
	User    userDetailResponse `json:"user"`
	Message string             `json:"message"`
}

func toSingleUserResponse(p *user.Profile) singleUserResponse {
	return singleUserResponse{
		User: userDetailResponse{
			ID:        p.ID,
			Email:     p.Email,
			Name:      p.Name,
			Alias:     p.Alias,
			BirthDate: formatDate(p.BirthDate),
			CreatedAt: formatTime(p.CreatedAt),
			Age:       p.Age,
			Stats: userStatsResponse{
				TotalPosts: p.PostCount,
				TotalLikes: p.LikeCount,
			},
		},
		Message: "Usuario obtenido exitosamente",
	}
}

type searchResultResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Alias       string `json:"alias"`
	Email       string `json:"email"`
	MemberSince string `json:"memberSince"`
	PostCount   int64  `json:"postCount"`
}

type searchResponse struct {
	Results      []searchResultResponse `json:"results"`
	TotalResults int                    `json:"totalResults"`
	SearchQuery  string                 `json:"searchQuery"`
	Message      string                 `json:"message"`
}

func toSearchResponse(users []*model.UserWithCounts, q string) searchResponse {
	results := make([]searchResultResponse, 0, len(users))
	for _, u := range users {
		results = append(results, searchResultResponse{
			ID:          u.ID,
			Name:        u.Name,
			Alias:       u.Alias,
			Email:       u.Email,
			MemberSince: formatTime(u.CreatedAt),
			PostCount:   u.PostCount,
		})
	}
	return searchResponse{
		Results:      results,
		TotalResults: len(results),
		SearchQuery:  q,
		Message:      "Búsqueda de usuarios completada",
	}
}
