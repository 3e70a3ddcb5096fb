package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"golang.org/x/crypto/bcrypt"

	"github.com/aretw0/quire/pkg/core"
)

var (
	// ErrLoginTaken is returned by Register when the login is already registered.
	ErrLoginTaken = errors.New("login already taken")
	// ErrInvalidCredentials is returned when a login/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid login or password")
)

// User is a registered account. Login is the owner stamped on records.
type User struct {
	Username     string `json:"username"`
	Login        string `json:"login"`
	PasswordHash string `json:"passwordHash,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
}

// session drops the password hash; it is what gets persisted under currentUser.
func (u User) session() User {
	u.PasswordHash = ""
	return u
}

// Accounts is a local account registry kept under core.KeyUsers, with the
// signed-in user kept under core.KeyCurrentUser.
//
// Unlike the record stores, Accounts surfaces storage errors: signing in is an
// explicit user action and must not silently fail.
type Accounts struct {
	storage core.Storage
	logger  *slog.Logger
	cost    int

	mu      sync.RWMutex
	users   []User
	current *User
}

// Option configures Accounts.
type Option func(*Accounts)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Accounts) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(a *Accounts) {
		a.cost = cost
	}
}

// NewAccounts creates the registry. Call Load to restore users and the session.
func NewAccounts(storage core.Storage, opts ...Option) *Accounts {
	a := &Accounts{
		storage: storage,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		cost:    bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load reads the registered users and the persisted session. A session whose
// login is no longer registered is discarded.
func (a *Accounts) Load(ctx context.Context) error {
	var users []User
	if err := a.read(ctx, core.KeyUsers, &users); err != nil {
		return err
	}
	var session *User
	if err := a.read(ctx, core.KeyCurrentUser, &session); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.users = users
	a.current = nil
	if session != nil {
		if i := a.indexOf(session.Login); i >= 0 {
			u := a.users[i].session()
			a.current = &u
		}
	}
	a.logger.Debug("accounts loaded", "users", len(users), "signed_in", a.current != nil)
	return nil
}

// Register creates an account and signs it in.
func (a *Accounts) Register(ctx context.Context, username, login, password string) (User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return User{}, fmt.Errorf("%w: login and password are required", core.ErrInvalidInput)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = login
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.indexOf(login) >= 0 {
		return User{}, ErrLoginTaken
	}

	user := User{
		Username:     username,
		Login:        login,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UnixMilli(),
	}
	users := append(slices.Clone(a.users), user)
	if err := a.write(ctx, core.KeyUsers, users); err != nil {
		return User{}, err
	}
	a.users = users

	if err := a.signIn(ctx, user); err != nil {
		return User{}, err
	}
	a.logger.Info("account registered", "login", login)
	return user.session(), nil
}

// Login signs in the account matching login and password.
func (a *Accounts) Login(ctx context.Context, login, password string) (User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexOf(strings.TrimSpace(login))
	if i < 0 {
		return User{}, ErrInvalidCredentials
	}
	user := a.users[i]
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	if err := a.signIn(ctx, user); err != nil {
		return User{}, err
	}
	a.logger.Info("signed in", "login", user.Login)
	return user.session(), nil
}

// Logout ends the session.
func (a *Accounts) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.storage.Remove(ctx, core.KeyCurrentUser); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	a.current = nil
	return nil
}

// Delete removes the account after checking its password, ending the session
// if it belonged to it. Records owned by the account are left to the caller.
func (a *Accounts) Delete(ctx context.Context, login, password string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexOf(login)
	if i < 0 {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.users[i].PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	users := slices.Delete(slices.Clone(a.users), i, i+1)
	if err := a.write(ctx, core.KeyUsers, users); err != nil {
		return err
	}
	a.users = users

	if a.current != nil && a.current.Login == login {
		if err := a.storage.Remove(ctx, core.KeyCurrentUser); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		a.current = nil
	}
	a.logger.Info("account deleted", "login", login)
	return nil
}

// Current returns the signed-in user.
func (a *Accounts) Current() (User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return User{}, false
	}
	return *a.current, true
}

// CurrentOwner implements core.Identity.
func (a *Accounts) CurrentOwner() (string, bool) {
	u, ok := a.Current()
	return u.Login, ok
}

// IsAuthenticated reports whether someone is signed in.
func (a *Accounts) IsAuthenticated() bool {
	_, ok := a.Current()
	return ok
}

// signIn persists the session. Must be called with mu held.
func (a *Accounts) signIn(ctx context.Context, user User) error {
	session := user.session()
	if err := a.write(ctx, core.KeyCurrentUser, session); err != nil {
		return err
	}
	a.current = &session
	return nil
}

func (a *Accounts) indexOf(login string) int {
	return slices.IndexFunc(a.users, func(u User) bool { return u.Login == login })
}

func (a *Accounts) read(ctx context.Context, key string, v any) error {
	data, err := a.storage.Get(ctx, key)
	if errors.Is(err, core.ErrKeyNotFound) || (err == nil && len(data) == 0) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (a *Accounts) write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := a.storage.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// AccountsState exposes internal state for observability.
type AccountsState struct {
	Users         int    `json:"users"`
	Authenticated bool   `json:"authenticated"`
	Login         string `json:"login,omitempty"`
}

// State implements introspection.Introspectable.
func (a *Accounts) State() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := AccountsState{Users: len(a.users), Authenticated: a.current != nil}
	if a.current != nil {
		s.Login = a.current.Login
	}
	return s
}

// ComponentType implements introspection.Component.
func (a *Accounts) ComponentType() string {
	return "identity"
}

var _ core.Identity = (*Accounts)(nil)
var _ introspection.Introspectable = (*Accounts)(nil)
var _ introspection.Component = (*Accounts)(nil)
