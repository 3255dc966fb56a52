package auth

import (
	"errors"
	"time"

	"Sahaaya/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type JWTClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"` // needed for RBAC in protected endpoints
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens. The subject is the user id.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenIssuer(cfg *config.AppConfig) *TokenIssuer {
	return &TokenIssuer{key: []byte(cfg.JWTSecret), ttl: cfg.JWTTTL, now: time.Now}
}

func (t *TokenIssuer) Issue(user *User) (string, error) {
	now := t.now()
	claims := &JWTClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.key)
}

// Parse validates a token string and returns the caller it identifies.
func (t *TokenIssuer) Parse(tokenString string) (*Identity, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, errors.New("invalid token subject")
	}
	return &Identity{UserID: userID, Email: claims.Email, Role: claims.Role}, nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hashed), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
