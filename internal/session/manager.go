package session

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/fjod/squeeze/internal/bootstrap"
	"github.com/fjod/squeeze/internal/localstore"
	"github.com/fjod/squeeze/internal/payment"
	"github.com/fjod/squeeze/internal/qrcode"
	"github.com/fjod/squeeze/internal/wallet"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultTTL is how long an idle session is kept
	DefaultTTL = 30 * time.Minute

	// CleanupInterval is how often the background cleanup runs
	CleanupInterval = time.Minute

	authTimeout = 30 * time.Second
)

// AuthProvider returns the wallet capability for a session token.
type AuthProvider interface {
	ForSession(token string) wallet.Authenticator
}

// DemoAuth authenticates every session with the demo wallet.
type DemoAuth struct{}

func (DemoAuth) ForSession(string) wallet.Authenticator { return wallet.Demo{} }

type Deps struct {
	Directory Directory
	Payer     payment.Payer
	Balances  payment.BalanceReader
	Names     payment.NameResolver
	Codec     *qrcode.Codec
	Local     localstore.Store
	Auth      AuthProvider
	Logger    *zap.Logger
}

type CreateRequest struct {
	DeviceID  string
	Query     url.Values
	AuthToken string
}

// Manager keeps the live sessions and expires idle ones.
type Manager struct {
	deps Deps
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewManager(deps Deps, ttl, cleanupInterval time.Duration) *Manager {
	if deps.Auth == nil {
		deps.Auth = DemoAuth{}
	}
	m := &Manager{
		deps:        deps,
		ttl:         ttl,
		now:         time.Now,
		sessions:    make(map[string]*Session),
		stopCleanup: make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop(cleanupInterval)

	return m
}

// Create bootstraps a session and starts wallet authentication in the
// background. The session renders Loading until it completes.
func (m *Manager) Create(ctx context.Context, req CreateRequest) *Session {
	id := uuid.NewString()

	var device *localstore.Device
	if req.DeviceID != "" && m.deps.Local != nil {
		device = localstore.ForDevice(m.deps.Local, req.DeviceID)
	}
	boot := bootstrap.Resolve(ctx, device, bootstrap.ParseParams(req.Query), m.deps.Logger)

	s := newSession(config{
		id:        id,
		device:    device,
		directory: m.deps.Directory,
		payer:     m.deps.Payer,
		balances:  m.deps.Balances,
		names:     m.deps.Names,
		codec:     m.deps.Codec,
		logger:    m.deps.Logger,
		now:       m.now,
	}, boot)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	auth := m.deps.Auth.ForSession(req.AuthToken)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()
		res := bootstrap.Authenticate(ctx, auth, wallet.ChainBase, m.deps.Logger)
		s.completeAuth(ctx, res)
	}()

	m.deps.Logger.Info("session created",
		zap.String("session_id", id),
		zap.String("device_id", req.DeviceID),
		zap.String("screen", boot.Screen.String()))
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) cleanupLoop(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.expireSessions()
		case <-m.stopCleanup:
			return
		}
	}
}

// expireSessions drops sessions idle for longer than the TTL
func (m *Manager) expireSessions() {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			m.deps.Logger.Debug("session expired", zap.String("session_id", id))
		}
	}
}

// Close stops the background cleanup and waits for pending authentications.
func (m *Manager) Close() error {
	close(m.stopCleanup)
	m.wg.Wait()
	return nil
}
