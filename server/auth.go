/* Copyright © 2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer = "clubratings"
	tokenTTL    = 8 * time.Hour
)

var ErrBadCredentials = errors.New("invalid credentials")

// AuthService issues and checks the bearer tokens that guard the admin
// routes. There is a single administrator whose password is stored as a
// bcrypt hash.
type AuthService struct {
	hmac      []byte
	adminUser string
	adminHash []byte
	now       func() time.Time
}

func NewAuthService(secret string, adminEmail string,
	adminPassHash string) *AuthService {

	return &AuthService{
		hmac:      []byte(secret),
		adminUser: strings.ToLower(strings.TrimSpace(adminEmail)),
		adminHash: []byte(adminPassHash),
		now:       time.Now,
	}
}

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(email string) (string, error) {
	now := a.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			return a.hmac, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	c, _ := token.Claims.(*Claims)
	return c, nil
}

// Login checks the administrator credentials and returns a signed token.
func (a *AuthService) Login(email string, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(a.adminHash) == 0 || email != a.adminUser {
		return "", ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword(a.adminHash, []byte(password)) != nil {
		return "", ErrBadCredentials
	}
	return a.IssueJWT(email)
}

type ctxKey string

const ctxKeyEmail ctxKey = "email"

func withAdminEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxKeyEmail, email)
}

// AdminEmailFromContext returns the administrator identity attached by
// JWTMiddleware.
func AdminEmailFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyEmail).(string); ok {
		return v
	}
	return ""
}

// POST /api/admin/login  { "email": "...", "password": "..." }
func LoginHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		tok, err := a.Login(req.Email, req.Password)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": tok})
	}
}

func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing bearer")
				return
			}
			claims, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "bad token")
				return
			}
			ctx := withAdminEmail(r.Context(), claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
