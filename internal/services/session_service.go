package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"golang-food-checkout/pkg/cache"
)

const sessionPrefix = "checkout_session"

// SnapshotStore persists session snapshots. pkg/cache.RedisCache satisfies
// it.
type SnapshotStore interface {
	SetWithPrefix(ctx context.Context, prefix, key string, value interface{}, expiration time.Duration) error
	GetWithPrefix(ctx context.Context, prefix, key string, dest interface{}) error
	DeleteWithPrefix(ctx context.Context, prefix, key string) error
}

// TokenSource hands out the backend bearer token for a customer.
type TokenSource interface {
	Get(ctx context.Context, userID string) (string, error)
}

type SessionSnapshot struct {
	ID      string        `json:"id"`
	UserID  string        `json:"user_id"`
	Cart    CartSnapshot  `json:"cart"`
	Order   OrderSnapshot `json:"order"`
	SavedAt time.Time     `json:"saved_at"`
}

// Session is one customer's checkout context: the cart, the order in
// progress and the flow that drives them, all bound to the customer's
// backend token.
type Session struct {
	ID     string
	UserID string

	Cart    *CartStore
	Order   *OrderStore
	Flow    *CheckoutFlow
	Tracker *OrderTracker
	Poller  *ActiveOrderPoller

	stopPoller context.CancelFunc
}

func (s *Session) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		ID:     s.ID,
		UserID: s.UserID,
		Cart:   s.Cart.Snapshot(),
		Order:  s.Order.Snapshot(),
	}
}

type SessionConfig struct {
	TTL          time.Duration
	PollInterval time.Duration
}

type SessionService struct {
	store    SnapshotStore
	tokens   TokenSource
	backends BackendFactory
	flow     FlowDeps
	tracking TrackingDeps
	cfg      SessionConfig
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionService(store SnapshotStore, tokens TokenSource, backends BackendFactory, flow FlowDeps, tracking TrackingDeps, cfg SessionConfig, logger *zap.Logger) *SessionService {
	return &SessionService{
		store:    store,
		tokens:   tokens,
		backends: backends,
		flow:     flow,
		tracking: tracking,
		cfg:      cfg,
		logger:   logger.Named("sessions"),
		sessions: make(map[string]*Session),
	}
}

// Get returns the customer's live session, building it on first use and
// restoring the last saved snapshot when one exists. sessionID is the id
// minted at login and is used only when no snapshot is found.
func (s *SessionService) Get(ctx context.Context, userID, sessionID string) (*Session, error) {
	if session := s.live(userID); session != nil {
		return session, nil
	}

	token, err := s.tokens.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	var snapshot SessionSnapshot
	restored := true
	if err := s.store.GetWithPrefix(ctx, sessionPrefix, userID, &snapshot); err != nil {
		restored = false
		if !isMiss(err) {
			s.logger.Warn("loading session snapshot", zap.String("user_id", userID), zap.Error(err))
		}
	}

	id := sessionID
	if restored && snapshot.ID != "" {
		id = snapshot.ID
	}
	if id == "" {
		id = uuid.NewString()
	}

	session := s.build(userID, id, s.backends(token))
	if restored {
		session.Cart.Restore(snapshot.Cart)
		session.Order.Restore(snapshot.Order)
	}

	s.mu.Lock()
	if existing, ok := s.sessions[userID]; ok {
		// a concurrent request opened it first
		s.mu.Unlock()
		return existing, nil
	}
	s.sessions[userID] = session
	s.startPoller(session)
	s.mu.Unlock()

	s.logger.Debug("session opened", zap.String("user_id", userID), zap.String("session_id", id), zap.Bool("restored", restored))
	return session, nil
}

func (s *SessionService) live(userID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

func (s *SessionService) build(userID, sessionID string, backend Backend) *Session {
	cart := NewCartStore(backend, s.logger)
	order := NewOrderStore(backend, s.logger)
	return &Session{
		ID:      sessionID,
		UserID:  userID,
		Cart:    cart,
		Order:   order,
		Flow:    NewCheckoutFlow(userID, sessionID, backend, cart, order, s.flow),
		Tracker: NewOrderTracker(userID, backend, s.tracking),
		Poller:  NewActiveOrderPoller(backend, s.cfg.PollInterval, s.logger),
	}
}

func (s *SessionService) startPoller(session *Session) {
	if s.cfg.PollInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	session.stopPoller = cancel
	go session.Poller.Run(ctx)
}

// Save writes the session's snapshot with the configured TTL.
func (s *SessionService) Save(ctx context.Context, session *Session) error {
	snapshot := session.Snapshot()
	snapshot.SavedAt = time.Now()
	return s.store.SetWithPrefix(ctx, sessionPrefix, session.UserID, snapshot, s.cfg.TTL)
}

// Drop stops the session's poller, forgets it and deletes its snapshot.
func (s *SessionService) Drop(ctx context.Context, userID string) error {
	s.forget(userID)
	return s.store.DeleteWithPrefix(ctx, sessionPrefix, userID)
}

// Release forgets the live session but keeps its snapshot, so the next Get
// rebuilds it against the current backend token.
func (s *SessionService) Release(ctx context.Context, userID string) error {
	session := s.forget(userID)
	if session == nil {
		return nil
	}
	return s.Save(ctx, session)
}

func (s *SessionService) forget(userID string) *Session {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if session.stopPoller != nil {
		session.stopPoller()
	}
	return session
}

// Close stops every poller. Snapshots are kept.
func (s *SessionService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, session := range s.sessions {
		if session.stopPoller != nil {
			session.stopPoller()
		}
		delete(s.sessions, userID)
	}
}

func isMiss(err error) bool {
	return errors.Is(err, cache.ErrCacheMiss)
}
