// Package auth はトークンによるセッション認証（ログイン・再ログイン・トークン検証）を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/hitoshi/redsocial/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength はログイン時に受け付けるパスワードの最小文字数。
const MinPasswordLength = 6

// UserFinder はログイン・再ログインで使うユーザー参照のインターフェース。
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Issuer はトークン発行のインターフェース。
type Issuer interface {
	Issue(identity model.Identity) (*IssuedToken, error)
}

// Session はログイン・再ログインの結果。
type Session struct {
	Token *IssuedToken
	User  model.Identity
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users  UserFinder
	issuer Issuer
}

// NewService はServiceを生成する。
func NewService(users UserFinder, issuer Issuer) *Service {
	return &Service{
		users:  users,
		issuer: issuer,
	}
}

// Login はメールアドレスとパスワードを検証し、トークンを発行する。
// 入力不正は ValidationError、ユーザー不在とパスワード不一致はどちらも InvalidCredentials を返す。
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, model.NewValidationError("la contraseña es requerida")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, model.NewValidationError(fmt.Sprintf("la contraseña debe tener al menos %d caracteres", MinPasswordLength))
	}

	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// 存在しないユーザーでも比較を1回行い、応答時間を揃える
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		slog.Info("login rejected", slog.String("reason", "unknown_email"))
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			slog.Warn("stored password hash is unusable",
				slog.Int64("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		slog.Info("login rejected", slog.String("reason", "password_mismatch"), slog.Int64("user_id", user.ID))
		return nil, model.NewInvalidCredentialsError()
	}

	return s.issue(user)
}

// Relogin は検証済みトークンのユーザーをメールアドレスで読み直し、新しいトークンを発行する。
// ユーザーが削除されていた場合は InvalidToken を返し、クライアントは再ログインが必要になる。
func (s *Service) Relogin(ctx context.Context, current model.Identity) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, current.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	if user == nil {
		slog.Info("relogin rejected", slog.String("reason", "user_gone"), slog.Int64("user_id", current.ID))
		return nil, model.NewInvalidTokenError()
	}
	return s.issue(user)
}

func (s *Service) issue(user *model.User) (*Session, error) {
	identity := user.Identity()
	token, err := s.issuer.Issue(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	slog.Info("token issued",
		slog.Int64("user_id", identity.ID),
		slog.Time("expires_at", token.ExpiresAt),
	)
	return &Session{Token: token, User: identity}, nil
}

// NormalizeEmail はメールアドレスを検証し、前後の空白を除いて小文字化する。
func NormalizeEmail(email string) (string, error) {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return "", model.NewValidationError("el email es requerido")
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", model.NewValidationError("el email no es válido")
	}
	return strings.ToLower(addr.Address), nil
}

var (
	dummyHashOnce  sync.Once
	dummyHashValue []byte
)

func dummyHash() []byte {
	dummyHashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("redsocial-placeholder"), bcrypt.DefaultCost)
		if err != nil {
			h = []byte{}
		}
		dummyHashValue = h
	})
	return dummyHashValue
}
