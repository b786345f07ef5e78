// Package auth is the identity gate: it registers and logs in users, issues
// session tokens, and resolves a token to the owner id that scopes every
// transaction operation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) error
	UserByEmail(ctx context.Context, email string) (core.User, error)
	UserByID(ctx context.Context, id string) (core.User, error)
}

type (
	RegisterInput struct {
		Name     string
		Email    string
		Password string
	}

	// Session is what a successful register or login hands back.
	Session struct {
		Token     string
		ExpiresAt time.Time
		User      core.User
	}

	Options struct {
		BcryptCost int
		CacheSize  int
		CacheTTL   time.Duration
		Logger     *log.Logger
		Now        func() time.Time
	}
)

type Service struct {
	users  UserStore
	tokens *Tokens
	cost   int
	cache  *cache.LRUCache[core.User]
	group  singleflight.Group
	now    func() time.Time
	logger *log.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewService(users UserStore, tokens *Tokens, opts Options) *Service {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		users:  users,
		tokens: tokens,
		cost:   opts.BcryptCost,
		cache:  cache.NewLRUCache[core.User](opts.CacheSize, opts.CacheTTL),
		now:    opts.Now,
		logger: opts.Logger.WithComponent(log.ComponentAuth),
	}
}

// UserCache exposes the lookup cache so a cache.Manager can clean it.
func (s *Service) UserCache() *cache.LRUCache[core.User] { return s.cache }

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var verr core.ValidationError
	if n := utf8.RuneCountInString(name); n == 0 || n > 50 {
		verr.Add("name", "name must be between 1 and 50 characters")
	}
	if !validEmail(email) {
		verr.Add("email", "please provide a valid email")
	}
	if len(in.Password) < MinPasswordLength {
		verr.Add("password", "password must be at least 6 characters")
	}
	if verr.HasErrors() {
		return Session{}, &verr
	}

	hash, err := HashPassword(in.Password, s.cost)
	if isTooLong(err) {
		return Session{}, core.NewValidationError("password", "password is too long")
	}
	if err != nil {
		return Session{}, err
	}

	u := core.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return Session{}, fmt.Errorf("user already exists with this email: %w", core.ErrConflict)
		}
		return Session{}, err
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldOwner, u.ID, log.FieldOperation, log.OpRegister)
	return s.session(u)
}

// Login never says which of email or password was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, core.NewValidationError("credentials", "please provide email and password")
	}

	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		// Burn a comparison so unknown emails take as long as bad passwords.
		CheckPassword(s.dummy(), password)
		return Session{}, core.ErrUnauthorized
	}
	if err != nil {
		return Session{}, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		s.logger.WarnContext(ctx, "Login rejected", log.FieldOwner, u.ID, log.FieldOperation, log.OpLogin)
		return Session{}, core.ErrUnauthorized
	}
	return s.session(u)
}

// Resolve turns a credential into an owner id. Any token problem, or a
// token naming a user that no longer exists, is ErrUnauthorized.
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", core.ErrUnauthorized
	}
	userID, err := s.tokens.Parse(token)
	if err != nil {
		s.logger.DebugContext(ctx, "Token rejected", log.FieldError, err)
		return "", core.ErrUnauthorized
	}
	u, err := s.lookup(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return "", core.ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// Me returns the profile of an already resolved owner.
func (s *Service) Me(ctx context.Context, ownerID string) (core.User, error) {
	if ownerID == "" {
		return core.User{}, core.ErrUnauthorized
	}
	u, err := s.lookup(ctx, ownerID)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.ErrUnauthorized
	}
	return u, err
}

// IssueToken signs a token for an existing user without a password check.
// Used by the admin CLI.
func (s *Service) IssueToken(ctx context.Context, email string) (Session, error) {
	u, err := s.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return Session{}, err
	}
	return s.session(u)
}

func (s *Service) session(u core.User) (Session, error) {
	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, err
	}
	s.cache.Set(u.ID, u)
	return Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// lookup reads a user through the cache; concurrent misses for the same id
// share one store call. The shared call is detached from the caller that
// started it, so one cancelled request cannot fail the others waiting on it.
func (s *Service) lookup(ctx context.Context, id string) (core.User, error) {
	if u, ok := s.cache.Get(id); ok {
		return u, nil
	}
	flight := s.group.DoChan(id, func() (interface{}, error) {
		u, err := s.users.UserByID(context.WithoutCancel(ctx), id)
		if err != nil {
			return core.User{}, err
		}
		s.cache.Set(id, u)
		return u, nil
	})
	select {
	case <-ctx.Done():
		return core.User{}, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return core.User{}, res.Err
		}
		return res.Val.(core.User), nil
	}
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = HashPassword("not-a-real-password", s.cost)
	})
	return s.dummyHash
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, ".")
}
