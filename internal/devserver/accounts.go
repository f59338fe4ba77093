package devserver

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

var (
	errUserExists         = errors.New("username already registered")
	errInvalidCredentials = errors.New("incorrect username or password")
)

// accounts registers users and issues HS256 bearer tokens for them.
type accounts struct {
	mu       sync.RWMutex
	hashes   map[string][]byte
	secret   []byte
	tokenTTL time.Duration
	cost     int
}

func newAccounts(secret string, tokenTTL time.Duration, cost int) *accounts {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &accounts{
		hashes:   make(map[string][]byte),
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		cost:     cost,
	}
}

func (a *accounts) register(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.hashes[username]; exists {
		return errUserExists
	}
	a.hashes[username] = hash
	return nil
}

func (a *accounts) login(username, password string) error {
	a.mu.RLock()
	hash, ok := a.hashes[username]
	a.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return errInvalidCredentials
	}
	return nil
}

func (a *accounts) issueToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"exp": time.Now().Add(a.tokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.secret)
}

func (a *accounts) exists(username string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.hashes[username]
	return ok
}

const userKey = "username"

// requireUser validates the bearer token and stores its subject on the
// context. Tokens for unknown users are rejected like invalid ones.
func (a *accounts) requireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return a.secret, nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
			}
			username, _ := claims.GetSubject()
			if username == "" || !a.exists(username) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
			}

			c.Set(userKey, username)
			return next(c)
		}
	}
}

func currentUser(c echo.Context) string {
	u, _ := c.Get(userKey).(string)
	return u
}
