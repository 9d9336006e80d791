package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NonceHeader carries the booking nonce on proxy requests.
const NonceHeader = "X-Booking-Nonce"

// IssueNonce mints a short-lived HMAC-signed token that gates the booking
// proxy endpoints. It carries no identity, only an expiry.
func IssueNonce(secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateNonce checks a token minted by IssueNonce.
func ValidateNonce(secret, tokenString string) error {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

// RequireNonce rejects requests that do not carry a valid booking nonce in
// the X-Booking-Nonce header or a nonce query parameter.
func RequireNonce(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "nonce auth disabled", http.StatusUnauthorized)
				return
			}
			tokenString := r.Header.Get(NonceHeader)
			if tokenString == "" {
				tokenString = r.URL.Query().Get("nonce")
			}
			if tokenString == "" {
				http.Error(w, "missing booking nonce", http.StatusUnauthorized)
				return
			}
			if err := ValidateNonce(secret, tokenString); err != nil {
				http.Error(w, "invalid booking nonce", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NonceHandler issues fresh nonces to widget embeds.
func NonceHandler(secret string, ttl time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret == "" {
			http.Error(w, "nonce auth disabled", http.StatusServiceUnavailable)
			return
		}
		nonce, err := IssueNonce(secret, ttl)
		if err != nil {
			http.Error(w, "could not issue nonce", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"nonce":      nonce,
			"expires_in": int(ttl.Seconds()),
		})
	}
}
