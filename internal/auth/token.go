package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/redsocial/internal/model"
)

var (
	// ErrInvalidToken は署名不一致・形式不正のトークンを表す。
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrTokenExpired は有効期限を過ぎたトークンを表す。
	ErrTokenExpired = errors.New("auth: token expired")
)

// TokenConfig はトークン発行の設定。起動時に1回だけ組み立て、以降は変更しない。
type TokenConfig struct {
	Secret      []byte
	TTL         time.Duration // 実際の有効期間
	RefreshHint time.Duration // クライアントに返す再ログイン目安。有効性には影響しない
}

// IssuedToken は発行したトークンと付随する時刻。
type IssuedToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RefreshAt time.Time
}

// VerifiedToken は検証済みトークンから取り出した内容。
type VerifiedToken struct {
	Identity  model.Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer は共通鍵（HS256）で署名したステートレスなトークンを発行・検証する。
// サーバー側には何も保存しないため、期限前の失効はできない。
type TokenIssuer struct {
	config TokenConfig
	parser *jwt.Parser
	now    func() time.Time
}

// NewTokenIssuer はTokenIssuerを生成する。
func NewTokenIssuer(config TokenConfig) (*TokenIssuer, error) {
	if len(config.Secret) == 0 {
		return nil, errors.New("auth: token secret must not be empty")
	}
	if config.TTL <= 0 {
		return nil, fmt.Errorf("auth: token TTL must be positive, got %s", config.TTL)
	}
	if config.RefreshHint < config.TTL {
		config.RefreshHint = config.TTL
	}
	return &TokenIssuer{
		config: config,
		// 期限は時計を差し替えられるよう自前で判定するため、ライブラリの検証は無効にする
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
		now: time.Now,
	}, nil
}

// SetClock は現在時刻の取得関数を差し替える。テスト用。
func (ti *TokenIssuer) SetClock(now func() time.Time) {
	ti.now = now
}

// sessionClaims はトークンのペイロード。
// 時刻はすべてUNIX秒で保持する。
type sessionClaims struct {
	User      identityClaims `json:"user"`
	CreatedAt int64          `json:"createdAt"`
	ExpiredAt int64          `json:"expiredAt"`
	jwt.RegisteredClaims
}

type identityClaims struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Alias     string     `json:"alias"`
	BirthDate *time.Time `json:"birthDate"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Issue はユーザーのスナップショットを埋め込んだトークンを発行する。
// 期限は発行時刻からTTL後で、発行時に一度だけ決まる。
func (ti *TokenIssuer) Issue(identity model.Identity) (*IssuedToken, error) {
	issuedAt := ti.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ti.config.TTL)

	claims := sessionClaims{
		User: identityClaims{
			ID:        identity.ID,
			Email:     identity.Email,
			Name:      identity.Name,
			Alias:     identity.Alias,
			BirthDate: identity.BirthDate,
			CreatedAt: identity.CreatedAt,
		},
		CreatedAt: issuedAt.Unix(),
		ExpiredAt: expiresAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.config.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		RefreshAt: issuedAt.Add(ti.config.RefreshHint),
	}, nil
}

// Verify は署名と期限を検証し、埋め込まれたユーザーを返す。
// 署名不一致・形式不正は ErrInvalidToken、期限切れは ErrTokenExpired。
// 判定は秒単位で、現在時刻が期限と同じ秒に達した時点で期限切れとする。
func (ti *TokenIssuer) Verify(tokenString string) (*VerifiedToken, error) {
	claims := &sessionClaims{}
	_, err := ti.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return ti.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiredAt == 0 || claims.User.ID == 0 {
		return nil, fmt.Errorf("%w: missing required claims", ErrInvalidToken)
	}

	if ti.now().Unix() >= claims.ExpiredAt {
		return nil, ErrTokenExpired
	}

	return &VerifiedToken{
		Identity: model.Identity{
			ID:        claims.User.ID,
			Email:     claims.User.Email,
			Name:      claims.User.Name,
			Alias:     claims.User.Alias,
			BirthDate: claims.User.BirthDate,
			CreatedAt: claims.User.CreatedAt,
		},
		IssuedAt:  time.Unix(claims.CreatedAt, 0),
		ExpiresAt: time.Unix(claims.ExpiredAt, 0),
	}, nil
}
