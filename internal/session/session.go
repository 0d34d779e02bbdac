// Package session owns identities and the authenticated-session gate.
//
// "An account exists" and "someone is logged in" are separate questions
// here: the first is answered by the store, the second only by a session
// token issued from Login.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"appointment-booking/internal/auth"
	"appointment-booking/internal/metrics"
	"appointment-booking/internal/model"
	"appointment-booking/internal/store"
)

var tracer = otel.Tracer("appointment-booking/internal/session")

var (
	ErrUsernameTaken      = errors.New("username already bound")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("password must be 1 to 72 bytes")
)

// Layout decides how identities are laid out in the store.
type Layout string

const (
	// LayoutKeyed stores one bcrypt hash per username under identity:<username>.
	LayoutKeyed Layout = "keyed"
	// LayoutLegacy keeps the single fixed username/password slot. A second
	// sign-up replaces the first account.
	LayoutLegacy Layout = "legacy"
)

const (
	legacyUsernameKey = "username"
	legacyPasswordKey = "password"
	identityPrefix    = "identity:"

	maxUsernameLen = 64
	// bcrypt ignores nothing past 72 bytes; it refuses longer input.
	maxPasswordLen = 72
)

func IdentityKey(username string) string { return identityPrefix + username }

type Options struct {
	Secret  string
	TTL     time.Duration
	Layout  Layout
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
	// Now is overridable for tests.
	Now func() time.Time
}

type Manager struct {
	store   store.Store
	secret  string
	ttl     time.Duration
	layout  Layout
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func New(st store.Store, opts Options) *Manager {
	if st == nil {
		panic("session: store required")
	}
	if opts.Secret == "" {
		panic("session: secret required")
	}
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	if opts.Layout == "" {
		opts.Layout = LayoutKeyed
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:   st,
		secret:  opts.Secret,
		ttl:     opts.TTL,
		layout:  opts.Layout,
		metrics: opts.Metrics,
		log:     opts.Logger.With().Str("component", "session").Logger(),
		now:     opts.Now,
	}
}

// ValidateUsername enforces the key-space rules: a username never contains
// ':' (reserved for identity and photo keys) nor whitespace.
func ValidateUsername(username string) error {
	if username == "" || len(username) > maxUsernameLen {
		return ErrInvalidUsername
	}
	for _, r := range username {
		if r == ':' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return ErrInvalidUsername
		}
	}
	return nil
}

func (m *Manager) SignUp(ctx context.Context, username, password string) (model.Identity, error) {
	if err := ValidateUsername(username); err != nil {
		m.metrics.ObserveSignUp("invalid")
		return model.Identity{}, err
	}
	if password == "" || len(password) > maxPasswordLen {
		m.metrics.ObserveSignUp("invalid")
		return model.Identity{}, ErrInvalidPassword
	}

	if m.layout == LayoutLegacy {
		if err := m.store.Set(ctx, legacyUsernameKey, username); err != nil {
			m.metrics.ObserveSignUp("error")
			return model.Identity{}, fmt.Errorf("sign up: %w", err)
		}
		if err := m.store.Set(ctx, legacyPasswordKey, password); err != nil {
			m.metrics.ObserveSignUp("error")
			return model.Identity{}, fmt.Errorf("sign up: %w", err)
		}
		m.metrics.ObserveSignUp("created")
		m.log.Info().Str("username", username).Str("layout", string(m.layout)).Msg("identity created")
		return model.Identity{Username: username, Password: password}, nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		m.metrics.ObserveSignUp("error")
		return model.Identity{}, fmt.Errorf("sign up: hash password: %w", err)
	}
	stored, err := m.store.SetNX(ctx, IdentityKey(username), hash)
	if err != nil {
		m.metrics.ObserveSignUp("error")
		return model.Identity{}, fmt.Errorf("sign up: %w", err)
	}
	if !stored {
		m.metrics.ObserveSignUp("username_taken")
		return model.Identity{}, ErrUsernameTaken
	}
	m.metrics.ObserveSignUp("created")
	m.log.Info().Str("username", username).Msg("identity created")
	return model.Identity{Username: username, Password: hash}, nil
}

// Login checks the pair by exact match and issues a session token.
// Unknown usernames and wrong passwords are not told apart.
func (m *Manager) Login(ctx context.Context, username, password string) (model.Session, error) {
	ctx, span := tracer.Start(ctx, "session.login")
	defer span.End()
	span.SetAttributes(attribute.String("booking.username", username))

	ok, err := m.checkCredentials(ctx, username, password)
	if err != nil {
		span.RecordError(err)
		m.metrics.ObserveLogin("error")
		return model.Session{}, fmt.Errorf("login: %w", err)
	}
	if !ok {
		m.metrics.ObserveLogin("invalid_credentials")
		return model.Session{}, ErrInvalidCredentials
	}

	raw, claims, err := auth.MakeToken(username, m.secret, m.ttl, m.now())
	if err != nil {
		span.RecordError(err)
		m.metrics.ObserveLogin("error")
		return model.Session{}, fmt.Errorf("login: sign token: %w", err)
	}
	m.metrics.ObserveLogin("authenticated")
	m.log.Info().Str("username", username).Msg("login")
	return model.Session{
		Token:     raw,
		Username:  username,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (m *Manager) checkCredentials(ctx context.Context, username, password string) (bool, error) {
	if username == "" || len(password) > maxPasswordLen {
		return false, nil
	}
	if m.layout == LayoutLegacy {
		storedUser, ok, err := m.store.Get(ctx, legacyUsernameKey)
		if err != nil || !ok {
			return false, err
		}
		storedPass, ok, err := m.store.Get(ctx, legacyPasswordKey)
		if err != nil || !ok {
			return false, err
		}
		return username == storedUser && password == storedPass, nil
	}

	hash, ok, err := m.store.Get(ctx, IdentityKey(username))
	if err != nil || !ok {
		return false, err
	}
	return auth.CheckPassword(hash, password), nil
}

// RequireAuthenticated is the gate in front of every protected operation.
// The token must verify and its identity must still be in the store.
func (m *Manager) RequireAuthenticated(ctx context.Context, token string) (model.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.Session{}, ErrUnauthenticated
	}
	claims, err := auth.ParseToken(token, m.secret)
	if err != nil {
		return model.Session{}, ErrUnauthenticated
	}
	exists, err := m.AccountExists(ctx, claims.Username())
	if err != nil {
		return model.Session{}, err
	}
	if !exists {
		return model.Session{}, ErrUnauthenticated
	}
	return model.Session{
		Token:     token,
		Username:  claims.Username(),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// CurrentUser answers who holds the token; ok is false for no valid session.
func (m *Manager) CurrentUser(ctx context.Context, token string) (string, bool, error) {
	sess, err := m.RequireAuthenticated(ctx, token)
	if errors.Is(err, ErrUnauthenticated) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return sess.Username, true, nil
}

func (m *Manager) AccountExists(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	if m.layout == LayoutLegacy {
		stored, ok, err := m.store.Get(ctx, legacyUsernameKey)
		if err != nil {
			return false, fmt.Errorf("account lookup: %w", err)
		}
		return ok && stored == username, nil
	}
	_, ok, err := m.store.Get(ctx, IdentityKey(username))
	if err != nil {
		return false, fmt.Errorf("account lookup: %w", err)
	}
	return ok, nil
}
