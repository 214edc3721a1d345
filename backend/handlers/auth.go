package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, r, "Invalid request", err)
		return
	}

	if !h.auth.Configured() {
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Auth configuration missing", Code: "auth_unconfigured"})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.auth.AdminUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.auth.AdminPass)) == 1
	if !userOK || !passOK {
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials", Code: "invalid_credentials"})
		return
	}

	exp := time.Now().Add(h.auth.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user": req.Username,
		"exp":  exp.Unix(),
	})

	tokenString, err := token.SignedString([]byte(h.auth.JWTSecret))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{Token: tokenString, ExpiresAt: exp.UTC().Truncate(time.Second)})
}

func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.checkToken(r); err != nil {
			logError(r, http.StatusUnauthorized, err)
			respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Code: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) checkToken(r *http.Request) error {
	if h.auth.JWTSecret == "" {
		return errors.New("JWT_SECRET not configured")
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}
	scheme, tokenString, ok := strings.Cut(authHeader, " ")
	if !ok || scheme != "Bearer" {
		return errors.New("invalid authorization header")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(h.auth.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}

// Verify backs nginx auth_request: reaching it means the token passed
// AuthMiddleware.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
