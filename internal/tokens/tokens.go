package tokens

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
	TypeEmail   = "email"
)

var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrMissingCredential = errors.New("missing bearer token")
)

type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Service signs and verifies the three token kinds the API uses. Access and
// refresh tokens are signed with separate secrets, confirmation tokens reuse
// the access secret.
type Service struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func NewService(accessSecret, refreshSecret []byte) *Service {
	return &Service{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func (s *Service) sign(email, typ string, secret []byte, ttl time.Duration) (string, error) {
	claims := Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func (s *Service) CreateAccessToken(email string) (string, error) {
	return s.sign(email, TypeAccess, s.AccessSecret, s.AccessTTL)
}

func (s *Service) CreateRefreshToken(email string) (string, error) {
	return s.sign(email, TypeRefresh, s.RefreshSecret, s.RefreshTTL)
}

func (s *Service) CreateEmailToken(email string) (string, error) {
	return s.sign(email, TypeEmail, s.AccessSecret, s.RefreshTTL)
}

func decode(tokenStr, typ string, secret []byte) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != typ {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// DecodeAccess returns the subject email of a valid access token.
func (s *Service) DecodeAccess(tokenStr string) (string, error) {
	claims, err := decode(tokenStr, TypeAccess, s.AccessSecret)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// DecodeAccessClaims is DecodeAccess plus the expiry, needed by logout to
// blacklist the token for its remaining lifetime.
func (s *Service) DecodeAccessClaims(tokenStr string) (*Claims, error) {
	return decode(tokenStr, TypeAccess, s.AccessSecret)
}

func (s *Service) DecodeRefresh(tokenStr string) (string, error) {
	claims, err := decode(tokenStr, TypeRefresh, s.RefreshSecret)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *Service) DecodeEmail(tokenStr string) (string, error) {
	claims, err := decode(tokenStr, TypeEmail, s.AccessSecret)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractBearer pulls the token out of the Authorization header.
func ExtractBearer(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", ErrMissingCredential
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMissingCredential
	}
	return parts[1], nil
}
