package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"secanalytics/config"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer is the iss claim of every token minted by the API
const TokenIssuer = "secanalytics"

// Claims are the JWT claims issued by the login endpoint
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=1024"`
}

// LoginResponse carries an issued bearer token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func generateJWT(username string, cfg *config.Config, now time.Time) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := now.Add(cfg.Auth.JWTExpiry)
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    TokenIssuer,
			Subject:   username,
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func validateJWT(tokenString string, cfg *config.Config, now func() time.Time) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.Auth.JWTSecret), nil
	}, jwt.WithIssuer(TokenIssuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// login exchanges the configured API credentials for a bearer token
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	if !a.config.Auth.Enabled {
		writeError(w, http.StatusNotFound, "Authentication is disabled", nil, a.logger)
		return
	}

	var req LoginRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err, a.logger)
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Username and password are required", err, a.logger)
		return
	}

	if !a.config.CheckPassword(req.Username, req.Password) {
		a.logger.Warnw("Failed login attempt", "ip", getRealIP(r))
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil, nil)
		return
	}

	token, expiresAt, err := generateJWT(req.Username, a.config, a.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err, a.logger)
		return
	}

	a.logger.Infow("User logged in", "username", req.Username)
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt.UTC()}, a.logger)
}
