package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/allegro/bigcache/v3"
	"github.com/andrebq/authbox/internal/logutil"
	"github.com/andrebq/authbox/password"
	"github.com/andrebq/authbox/userdb"
)

type (
	Basic struct {
		Base
		users  UserFinder
		hasher password.Hasher
		// verified maps sha256(header) to userID\x00hashedPassword,
		// the hash is compared on every hit so password changes
		// invalidate the entry
		verified *bigcache.BigCache
	}
)

const (
	basicPrefix = "Basic "
)

func NewBasic(ctx context.Context, base Base, users UserFinder, hasher password.Hasher, cacheWindow time.Duration) (*Basic, error) {
	b := &Basic{
		Base:   base,
		users:  users,
		hasher: hasher,
	}
	if cacheWindow > 0 {
		cfg := bigcache.DefaultConfig(cacheWindow)
		cfg.Shards = 64
		cfg.MaxEntriesInWindow = 10_000
		cfg.MaxEntrySize = 256
		cfg.HardMaxCacheSize = 16
		cfg.Verbose = false
		cache, err := bigcache.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("auth: unable to create credential cache, cause %w", err)
		}
		b.verified = cache
	}
	return b, nil
}

func (b *Basic) CurrentUser(r *http.Request) (*userdb.User, error) {
	header := b.AuthorizationHeader(r)
	if header == "" {
		return nil, nil
	}
	ctx := r.Context()
	if u, ok := b.cached(ctx, header); ok {
		return u, nil
	}
	token, ok := ExtractBase64Header(header)
	if !ok {
		return nil, nil
	}
	decoded, ok := DecodeBase64Header(token)
	if !ok {
		return nil, nil
	}
	email, pw, ok := ExtractCredentials(decoded)
	if !ok {
		return nil, nil
	}
	u, err := b.UserFromCredentials(ctx, email, pw)
	if err != nil || u == nil {
		return nil, err
	}
	b.remember(ctx, header, u)
	return u, nil
}

// UserFromCredentials returns the user owning email if pw matches.
func (b *Basic) UserFromCredentials(ctx context.Context, email, pw string) (*userdb.User, error) {
	if email == "" {
		return nil, nil
	}
	u, err := b.users.FindUserBy(ctx, userdb.ByEmail, email)
	if errors.As(err, &userdb.UserNotFound{}) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	ok, err := b.hasher.Verify(pw, u.HashedPassword)
	if err != nil {
		log := logutil.GetOrDefault(ctx)
		log.Warn().Err(err).Str("user.id", u.ID).Msg("Stored password hash cannot be verified")
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (b *Basic) cached(ctx context.Context, header string) (*userdb.User, bool) {
	if b.verified == nil {
		return nil, false
	}
	entry, err := b.verified.Get(cacheKey(header))
	if err != nil {
		return nil, false
	}
	userID, hash, found := strings.Cut(string(entry), "\x00")
	if !found {
		return nil, false
	}
	u, err := b.users.FindUserBy(ctx, userdb.ByID, userID)
	if err != nil || u.HashedPassword != hash {
		return nil, false
	}
	return u, true
}

func (b *Basic) remember(ctx context.Context, header string, u *userdb.User) {
	if b.verified == nil {
		return
	}
	err := b.verified.Set(cacheKey(header), []byte(u.ID+"\x00"+u.HashedPassword))
	if err != nil {
		log := logutil.GetOrDefault(ctx)
		log.Debug().Err(err).Msg("Unable to cache verified credential")
	}
}

func cacheKey(header string) string {
	sum := sha256.Sum256([]byte(header))
	return hex.EncodeToString(sum[:])
}

// ExtractBase64Header returns the token of a "Basic <token>" header.
func ExtractBase64Header(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, basicPrefix)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// DecodeBase64Header decodes token, which must be valid base64 holding
// utf-8 text.
func DecodeBase64Header(token string) (string, bool) {
	buf, err := base64.StdEncoding.DecodeString(token)
	if err != nil || !utf8.Valid(buf) {
		return "", false
	}
	return string(buf), true
}

// ExtractCredentials splits decoded on its first ':', passwords may
// contain ':' themselves.
func ExtractCredentials(decoded string) (email, pw string, ok bool) {
	return strings.Cut(decoded, ":")
}
