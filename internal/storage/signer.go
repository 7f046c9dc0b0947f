package storage

import (
	"errors"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const downloadAudience = "blob-download"

var ErrInvalidHandle = errors.New("invalid or expired download handle")

// DownloadHandle is a signed, read-only, time-limited reference to one blob.
type DownloadHandle struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// URLSigner mints download handles. Handles are never stored: each call
// produces a fresh token with its own id, so two reads of the same
// attachment never share a handle.
type URLSigner struct {
	key     []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewURLSigner(key []byte, baseURL string, ttl time.Duration) *URLSigner {
	return &URLSigner{key: key, baseURL: baseURL, ttl: ttl, now: time.Now}
}

// Generate signs a handle for the blob behind ref.
func (s *URLSigner) Generate(ref string) (DownloadHandle, error) {
	name := BlobName(ref)
	if err := ValidName(name); err != nil {
		return DownloadHandle{}, err
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   name,
		Audience:  jwt.ClaimStrings{downloadAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return DownloadHandle{}, err
	}

	return DownloadHandle{
		URL:       s.baseURL + "/api/v1/files/" + url.PathEscape(name) + "?token=" + url.QueryEscape(token),
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks the token for the named blob.
func (s *URLSigner) Verify(name, token string) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(downloadAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.Subject != name {
		return ErrInvalidHandle
	}
	return nil
}
