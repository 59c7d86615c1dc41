package jwt

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT claims structure
type Claims struct {
	UserID int    `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Roles stored in users.role
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("JWT_SECRET is not configured")
)

var (
	mu              sync.RWMutex
	secretKey       = []byte(os.Getenv("JWT_SECRET"))
	tokenExpiration = time.Hour
)

// Configure sets the signing secret and token lifetime
func Configure(secret string, expiresIn time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	secretKey = []byte(secret)
	if expiresIn > 0 {
		tokenExpiration = expiresIn
	}
}

func settings() ([]byte, time.Duration) {
	mu.RLock()
	defer mu.RUnlock()
	return secretKey, tokenExpiration
}

// GenerateToken issues an HS256 token for a user
func GenerateToken(userID int, email, role string) (string, error) {
	key, ttl := settings()
	if len(key) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()

	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ValidateToken validates a JWT token and returns claims
func ValidateToken(tokenString string) (*Claims, error) {
	key, _ := settings()
	if len(key) == 0 {
		return nil, ErrNoSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// IsExpired reports whether err came from an expired token
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
