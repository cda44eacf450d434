package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"skincare-client/internal/domain"
	"skincare-client/internal/infrastructure/broadcast"
	"skincare-client/internal/infrastructure/session"
	"skincare-client/pkg/logger"
	"skincare-client/pkg/utils"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Drawer is the cart UI that has to close when the session ends.
type Drawer interface {
	Close()
}

type AuthSnapshot struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user,omitempty"`
	Loading       bool         `json:"loading"`
	Error         string       `json:"error,omitempty"`
}

// AuthStore is the single source of truth for whether a session is active.
// The persisted token and user are the signal; every change is published so
// other processes sharing the session store resync too.
type AuthStore struct {
	api      Requester
	sessions session.Store
	bus      broadcast.Bus
	drawer   Drawer
	syncers  []Syncer
	source   string
	now      func() time.Time
	log      zerolog.Logger

	mu            sync.RWMutex
	token         string
	user          *domain.User
	authenticated bool
	loading       bool
	errMsg        string
}

func NewAuthStore(requester Requester, sessions session.Store, bus broadcast.Bus, drawer Drawer, syncers ...Syncer) *AuthStore {
	return &AuthStore{
		api:      requester,
		sessions: sessions,
		bus:      bus,
		drawer:   drawer,
		syncers:  syncers,
		source:   uuid.NewString(),
		now:      time.Now,
		log:      logger.WithStore("auth"),
	}
}

// Token is the bearer token for outgoing requests, empty when unauthenticated.
// Safe to call on a nil store so the API client can be built first.
func (s *AuthStore) Token() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticated {
		return ""
	}
	return s.token
}

// Start derives the session from persisted state, syncs every store and
// follows auth changes made by other instances until ctx is done.
func (s *AuthStore) Start(ctx context.Context) error {
	s.refresh(ctx)
	if err := s.syncAll(ctx); err != nil {
		s.log.Warn().Err(err).Msg("initial sync incomplete")
	}

	events, err := s.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe auth events: %w", err)
	}
	go s.listen(ctx, events)
	return nil
}

func (s *AuthStore) listen(ctx context.Context, events <-chan domain.AuthEvent) {
	for ev := range events {
		if ev.Source == s.source || ev.Kind != domain.EventAuthChanged {
			continue
		}
		s.log.Debug().Str("source", ev.Source).Msg("auth changed elsewhere")
		s.refresh(ctx)
		if err := s.syncAll(ctx); err != nil {
			s.log.Warn().Err(err).Msg("sync after remote auth change incomplete")
		}
		if !s.IsAuthenticated() && s.drawer != nil {
			s.drawer.Close()
		}
	}
}

// refresh re-reads the persisted session. Anything unreadable, malformed or
// expired counts as logged out, and the stale keys are cleared.
func (s *AuthStore) refresh(ctx context.Context) {
	token, user, err := s.readPersisted(ctx)
	if err != nil {
		s.log.Info().Err(err).Msg("no valid session")
		s.setState("", nil)
		if errors.Is(err, utils.ErrTokenExpired) || errors.Is(err, errCorruptSession) {
			if derr := s.sessions.Delete(ctx, domain.SessionTokenKey, domain.SessionUserKey); derr != nil {
				s.log.Warn().Err(derr).Msg("clear stale session failed")
				return
			}
			s.publish(ctx)
		}
		return
	}
	s.setState(token, user)
}

var (
	errNoSession      = errors.New("no persisted session")
	errCorruptSession = errors.New("persisted session is malformed")
)

func (s *AuthStore) readPersisted(ctx context.Context) (string, *domain.User, error) {
	token, ok, err := s.sessions.Get(ctx, domain.SessionTokenKey)
	if err != nil {
		return "", nil, fmt.Errorf("read token: %w", err)
	}
	if !ok || token == "" {
		return "", nil, errNoSession
	}
	raw, ok, err := s.sessions.Get(ctx, domain.SessionUserKey)
	if err != nil {
		return "", nil, fmt.Errorf("read user: %w", err)
	}
	if !ok || raw == "" {
		return "", nil, errCorruptSession
	}

	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return "", nil, fmt.Errorf("%w: %v", errCorruptSession, err)
	}
	if _, err := utils.InspectToken(token, s.now()); err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("%w: %v", errCorruptSession, err)
	}
	return token, &user, nil
}

func (s *AuthStore) setState(token string, user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	s.authenticated = token != "" && user != nil
}

func (s *AuthStore) Login(ctx context.Context, email, password string) error {
	creds := domain.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := domain.Validate(creds); err != nil {
		s.setErr(err)
		return err
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	resp, err := s.api.Post(ctx, "/auth/login", creds)
	if err != nil {
		s.setErr(err)
		return fmt.Errorf("login: %w", err)
	}
	var body domain.LoginResponse
	if err := resp.Decode(&body); err != nil {
		s.setErr(err)
		return fmt.Errorf("login: %w", err)
	}
	if body.Token == "" {
		err := fmt.Errorf("login: %w", domain.ErrUnauthenticated)
		s.setErr(err)
		return err
	}

	if err := s.persist(ctx, body.Token, &body.User); err != nil {
		s.setErr(err)
		return err
	}
	s.setState(body.Token, &body.User)
	s.setErr(nil)
	s.log.Info().Int64("user_id", body.User.ID).Str("role", body.User.Role).Msg("logged in")

	s.publish(ctx)
	if err := s.syncAll(ctx); err != nil {
		s.log.Warn().Err(err).Msg("sync after login incomplete")
	}
	return nil
}

func (s *AuthStore) persist(ctx context.Context, token string, user *domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.sessions.Set(ctx, domain.SessionTokenKey, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.sessions.Set(ctx, domain.SessionUserKey, string(raw)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

// Logout ends the session locally and everywhere sharing the session store.
// The stores find no token on reload and reset.
func (s *AuthStore) Logout(ctx context.Context) error {
	s.setState("", nil)
	err := s.sessions.Delete(ctx, domain.SessionTokenKey, domain.SessionUserKey)
	if err != nil {
		s.log.Error().Err(err).Msg("clear persisted session failed")
	}
	s.publish(ctx)
	if serr := s.syncAll(ctx); serr != nil {
		s.log.Warn().Err(serr).Msg("sync after logout incomplete")
	}
	if s.drawer != nil {
		s.drawer.Close()
	}
	s.log.Info().Msg("logged out")
	return err
}

// CheckSession asks the backend whether the token is still accepted.
// Any failure logs out.
func (s *AuthStore) CheckSession(ctx context.Context) bool {
	if !s.IsAuthenticated() {
		return false
	}
	resp, err := s.api.Get(ctx, "/auth/me")
	var env domain.Envelope[domain.User]
	if err == nil {
		err = resp.Decode(&env)
	}
	if err != nil {
		s.log.Info().Err(err).Msg("session rejected")
		_ = s.Logout(ctx)
		return false
	}

	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if env.Body.ID != 0 {
		if perr := s.persist(ctx, token, &env.Body); perr != nil {
			s.log.Warn().Err(perr).Msg("refresh persisted user failed")
		}
		s.setState(token, &env.Body)
	}
	return true
}

func (s *AuthStore) publish(ctx context.Context) {
	ev := domain.AuthEvent{Kind: domain.EventAuthChanged, Source: s.source, At: s.now()}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Msg("publish auth change failed")
	}
}

// syncAll reloads every dependent store concurrently.
func (s *AuthStore) syncAll(ctx context.Context) error {
	var g errgroup.Group
	for _, syncer := range s.syncers {
		g.Go(func() error { return syncer.Load(ctx) })
	}
	return g.Wait()
}

// User returns a copy of the logged-in user, or nil.
func (s *AuthStore) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *AuthStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *AuthStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *AuthStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *AuthStore) Snapshot() AuthSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := AuthSnapshot{
		Authenticated: s.authenticated,
		Loading:       s.loading,
		Error:         s.errMsg,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *AuthStore) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = domain.UserMessage(err)
}
