package account

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"Bpsb/core/auth"
	"Bpsb/logger"
	"Bpsb/model"
	"Bpsb/repository"

	"github.com/google/uuid"
)

var (
	// ErrUsernameTaken 用户名已存在
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput 输入不合法（必填字段为空、密码过长、未知主题）
	ErrInvalidInput = errors.New("invalid input")
)

// normalizeUsername 注册与登录使用同一规则
func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// Store owns the account directory and the single active session.
// Every mutation rewrites the whole directory value; there is no
// transaction around the directory and session writes.
type Store struct {
	repo repository.AccountRepository

	mu      sync.Mutex
	current *model.Account

	now          func() time.Time
	newID        func() string
	hashPassword func(string) (string, error)
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides account ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithPasswordHasher overrides the credential hash function.
func WithPasswordHasher(hash func(string) (string, error)) Option {
	return func(s *Store) { s.hashPassword = hash }
}

// New 创建账户存储并尝试恢复上一次的会话
func New(ctx context.Context, repo repository.AccountRepository, opts ...Option) *Store {
	s := &Store{
		repo:         repo,
		now:          time.Now,
		newID:        func() string { return uuid.NewString() },
		hashPassword: auth.HashPassword,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	s.restoreLocked(ctx)
	s.mu.Unlock()
	return s
}

// restoreLocked sets the active session from the persisted marker, or
// leaves the store logged out when the marker or its entry is missing.
func (s *Store) restoreLocked(ctx context.Context) {
	s.current = nil

	username, err := s.repo.LoadSession(ctx)
	if err != nil {
		logger.Warn("恢复会话失败", logger.ErrorField(err))
		return
	}
	if username == "" {
		return
	}

	dir, err := s.repo.LoadDirectory(ctx)
	if err != nil {
		logger.Warn("读取账户目录失败，以未登录状态启动", logger.ErrorField(err))
		return
	}
	acc, ok := dir[username]
	if !ok {
		logger.Warn("会话指向不存在的账户", logger.String("username", username))
		return
	}

	s.current = acc.Clone()
	logger.Info("会话已恢复", logger.String("username", username))
}

// Reload re-reads the persisted state, e.g. after an external edit.
func (s *Store) Reload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreLocked(ctx)
}

// Login sets the active session when password matches the stored credential.
// On failure the session is left as it was.
func (s *Store) Login(ctx context.Context, username, password string) (*model.Account, error) {
	username = normalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.repo.LoadDirectory(ctx)
	if err != nil {
		return nil, err
	}

	acc, ok := dir[username]
	if !ok || !auth.CheckPasswordHash(password, acc.PasswordHash) {
		logger.Warn("[Login] 密码验证失败", logger.String("username", username))
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.SaveSession(ctx, username); err != nil {
		return nil, err
	}
	s.current = acc.Clone()

	logger.Info("[Login] 登录成功", logger.String("username", username))
	return s.current.Public(), nil
}

// Signup creates an account, persists the directory and makes it the active session.
func (s *Store) Signup(ctx context.Context, username, email, password string) (*model.Account, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, auth.ErrPasswordTooLong)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.repo.LoadDirectory(ctx)
	if err != nil {
		return nil, err
	}
	if _, exists := dir[username]; exists {
		logger.Warn("[Signup] 用户名已存在", logger.String("username", username))
		return nil, ErrUsernameTaken
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, err
	}

	acc := &model.Account{
		ID:           s.newID(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		Theme:        model.DefaultTheme,
		Playlists:    []string{},
		Following:    []string{},
		CreatedAt:    s.now().UTC(),
		PasswordHash: hash,
	}
	dir[username] = acc

	if err := s.repo.SaveDirectory(ctx, dir); err != nil {
		return nil, err
	}
	if err := s.repo.SaveSession(ctx, username); err != nil {
		return nil, err
	}
	s.current = acc.Clone()

	logger.Info("[Signup] 注册成功", logger.String("username", username), logger.String("id", acc.ID))
	return s.current.Public(), nil
}

// Logout clears the active session. The directory is untouched.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		logger.Info("[Logout] 用户登出", logger.String("username", s.current.Username))
	}
	s.current = nil
	return s.repo.ClearSession(ctx)
}

// UpdateProfile merges update into the active account and its directory entry.
// Without an active session it does nothing and returns nil, nil.
func (s *Store) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, nil
	}
	if err := update.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	dir, err := s.repo.LoadDirectory(ctx)
	if err != nil {
		return nil, err
	}

	entry, ok := dir[s.current.Username]
	if !ok {
		entry = s.current.Clone()
		dir[s.current.Username] = entry
	}
	update.Apply(entry)

	if err := s.repo.SaveDirectory(ctx, dir); err != nil {
		return nil, err
	}
	update.Apply(s.current)

	return s.current.Public(), nil
}

// Current returns the active account without its credential hash.
func (s *Store) Current() (*model.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, false
	}
	return s.current.Public(), true
}

// IsLoggedIn 是否存在活动会话
func (s *Store) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Accounts lists the directory sorted by username, hashes stripped.
func (s *Store) Accounts(ctx context.Context) ([]*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.repo.LoadDirectory(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Account, 0, len(dir))
	for _, acc := range dir {
		out = append(out, acc.Public())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
