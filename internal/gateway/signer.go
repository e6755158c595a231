package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"org-dashboard/config"
	"org-dashboard/models"
	"org-dashboard/monitoring"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/hkdf"
)

const (
	mediaAudience = "media"
	mediaPath     = "/api/v1/media"

	// PrivatePrefix is the only storage folder media tokens may name. Record
	// files of other collections live outside of it.
	PrivatePrefix = "private/"

	// Cached URLs are dropped this long before they expire so a URL handed
	// out from the cache is still usable for a while.
	cacheMargin = 5 * time.Minute
)

var (
	ErrInvalidMediaToken = errors.New("invalid or expired media token")
	ErrKeyNotSignable    = errors.New("object key is outside the private folder")
)

// Signer issues and verifies time-limited URLs for stored objects.
type Signer struct {
	key     []byte
	ttl     time.Duration
	baseURL string
	redis   *redis.Client
	monitor *monitoring.Monitor
	now     func() time.Time
}

// NewSigner derives the signing key from the configured secret. redisClient
// may be nil, in which case every call signs a fresh URL.
func NewSigner(cfg *config.Config, redisClient *redis.Client, monitor *monitoring.Monitor) (*Signer, error) {
	key, err := deriveSigningKey(cfg.MediaSigningSecret)
	if err != nil {
		return nil, err
	}

	return &Signer{
		key:     key,
		ttl:     cfg.SignedURLTTL,
		baseURL: cfg.PublicURL,
		redis:   redisClient,
		monitor: monitor,
		now:     time.Now,
	}, nil
}

func deriveSigningKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("media signing secret is empty")
	}

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("org-dashboard media url"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive media signing key: %w", err)
	}
	return key, nil
}

func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Token signs a capability for key valid for the configured TTL.
func (s *Signer) Token(key string) (string, time.Time, error) {
	if !signable(key) {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrKeyNotSignable, key)
	}

	now := s.now()
	expiresAt := now.Add(s.ttl).Truncate(time.Second)

	claims := jwt.RegisteredClaims{
		Subject:   key,
		Audience:  jwt.ClaimStrings{mediaAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign media token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify returns the object key carried by a valid token.
func (s *Signer) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	},
		jwt.WithAudience(mediaAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMediaToken, err)
	}
	if !signable(claims.Subject) {
		return "", ErrInvalidMediaToken
	}

	return claims.Subject, nil
}

// SignedURL returns a URL granting read access to key. URLs are reused from
// the redis cache while they still have cacheMargin of validity left.
func (s *Signer) SignedURL(ctx context.Context, key string) (models.SignedURL, error) {
	cacheKey := signedURLCacheKey(key)

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			var u models.SignedURL
			if json.Unmarshal([]byte(cached), &u) == nil && u.ExpiresAt.After(s.now().Add(cacheMargin)) {
				s.monitor.TrackSignedURL("cache")
				return u, nil
			}
		case !errors.Is(err, redis.Nil):
			slog.Warn("Signed URL cache read failed", "key", key, "error", err)
		}
	}

	token, expiresAt, err := s.Token(key)
	if err != nil {
		return models.SignedURL{}, err
	}

	u := models.SignedURL{
		URL:       s.baseURL + mediaPath + "?token=" + url.QueryEscape(token),
		ExpiresAt: expiresAt,
	}
	s.monitor.TrackSignedURL("signed")

	if s.redis != nil && s.ttl > cacheMargin {
		data, _ := json.Marshal(u)
		if err := s.redis.Set(ctx, cacheKey, string(data), s.ttl-cacheMargin).Err(); err != nil {
			slog.Warn("Signed URL cache write failed", "key", key, "error", err)
		}
	}

	return u, nil
}

// Forget drops cached URLs of removed objects.
func (s *Signer) Forget(ctx context.Context, keys ...string) {
	if s.redis == nil || len(keys) == 0 {
		return
	}

	cacheKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		cacheKeys = append(cacheKeys, signedURLCacheKey(key))
	}
	if err := s.redis.Del(ctx, cacheKeys...).Err(); err != nil {
		slog.Warn("Signed URL cache eviction failed", "keys", keys, "error", err)
	}
}

// signable reports whether key is a clean path below PrivatePrefix.
func signable(key string) bool {
	return strings.HasPrefix(key, PrivatePrefix) &&
		len(key) > len(PrivatePrefix) &&
		path.Clean(key) == key
}

func signedURLCacheKey(key string) string {
	return "media:url:" + key
}
