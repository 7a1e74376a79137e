package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bungalow-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"

	sessionKey = "session"
)

// Session is the caller identity attached to each authenticated request.
type Session struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// CanActFor reports whether the caller may read or create reservations on
// behalf of email.
func (s Session) CanActFor(email string) bool {
	return s.IsAdmin() || strings.EqualFold(strings.TrimSpace(email), s.Email)
}

type sessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs an HS256 token for the session.
func (m *SessionManager) Issue(s Session) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := sessionClaims{
		Email: s.Email,
		Role:  s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(s.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, expires, nil
}

func (m *SessionManager) Parse(raw string) (Session, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return Session{}, err
	}
	if !token.Valid {
		return Session{}, errors.New("invalid session token")
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return Session{}, fmt.Errorf("invalid session subject: %w", err)
	}
	if claims.Role != RoleAdmin && claims.Role != RoleCustomer {
		return Session{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	return Session{UserID: uint(id), Email: strings.ToLower(claims.Email), Role: claims.Role}, nil
}

// Require authenticates the request and rejects roles outside roles. With
// no roles given any valid session passes.
func (m *SessionManager) Require(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || raw == header {
			utils.JSONError(c, http.StatusUnauthorized, "error.unauthorized", "missing bearer token")
			return
		}

		session, err := m.Parse(raw)
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, "error.unauthorized", "invalid or expired session", err.Error())
			return
		}

		if len(roles) > 0 {
			allowed := false
			for _, r := range roles {
				if r == session.Role {
					allowed = true
					break
				}
			}
			if !allowed {
				utils.JSONError(c, http.StatusForbidden, "error.forbidden", "role not allowed for this resource")
				return
			}
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// SessionFrom returns the session stored by Require.
func SessionFrom(c *gin.Context) (Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}
