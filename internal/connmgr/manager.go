package connmgr

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/bus"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/codec"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/model/enum"
	"github.com/SlimmithJimmith/Aibodes-sub001/internal/store"
	"github.com/SlimmithJimmith/Aibodes-sub001/pkg/exception"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	DefaultMaxRetries  = 3
	DefaultBaseDelay   = 5 * time.Second
	DefaultDialTimeout = 10 * time.Second
	DefaultAuthTimeout = 10 * time.Second
)

// Config drives the push-channel lifecycle.
type Config struct {
	URL    string
	Token  string
	UserID string

	MaxRetries  int
	BaseDelay   time.Duration
	DialTimeout time.Duration
	AuthTimeout time.Duration

	// OnState observes every state transition with the retry count at the
	// time of the transition.
	OnState func(state enum.ConnState, retryCount int)
}

func (c *Config) applyDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = DefaultAuthTimeout
	}
}

// Manager owns the push channel: dial, authenticate, read loop, reconnect
// with bounded linear backoff. Transitions are surfaced as connection-state
// events; no error escapes to callers.
type Manager struct {
	cfg       Config
	transport Transport
	store     *store.Store
	bus       *bus.Bus
	now       func() time.Time

	mu         sync.Mutex
	state      enum.ConnState
	retryCount int
	conn       Conn

	wake    chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
	running atomic.Bool
}

// New creates a manager. The transport is injectable so the state machine
// is testable without a network.
func New(cfg Config, transport Transport, s *store.Store, b *bus.Bus) *Manager {
	cfg.applyDefaults()
	return &Manager{
		cfg:       cfg,
		transport: transport,
		store:     s,
		bus:       b,
		now:       time.Now,
		state:     enum.ConnDisconnected,
		wake:      make(chan struct{}, 1),
	}
}

// Start launches the connection loop. It returns immediately.
func (m *Manager) Start(parent context.Context) {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		m.run(ctx)
		m.running.Store(false)
	}()
}

// Stop cancels the loop, closes any active connection, and waits for the
// loop to exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	if m.conn != nil {
		_ = m.conn.Close()
	}
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

// NotifyConnectivityRestored wakes the manager: it interrupts a backoff
// sleep and is the only path out of the suspended state. Waking a manager
// whose loop is not running returns ErrManagerNotRunning.
func (m *Manager) NotifyConnectivityRestored() error {
	if !m.running.Load() {
		return exception.ErrManagerNotRunning
	}
	select {
	case m.wake <- struct{}{}:
	default:
	}
	return nil
}

// State returns the current lifecycle state.
func (m *Manager) State() enum.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RetryCount returns the current consecutive failure count.
func (m *Manager) RetryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retryCount
}

func (m *Manager) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			m.transition(enum.ConnDisconnected)
			return
		}

		err := m.connectOnce(ctx)
		if ctx.Err() != nil {
			m.transition(enum.ConnDisconnected)
			return
		}
		if err != nil {
			logs.Errorf("push channel dropped, err: %+v", err)
		}

		m.mu.Lock()
		m.retryCount++
		retry := m.retryCount
		m.mu.Unlock()

		if retry > m.cfg.MaxRetries {
			logs.Errorf("push channel retries exhausted, attempts: %d, err: %+v", retry-1, exception.ErrRetriesExhausted)
			m.transition(enum.ConnSuspended)
			if !m.waitForWake(ctx) {
				m.transition(enum.ConnDisconnected)
				return
			}
			logs.Info("connectivity restored, attempting push channel reconnect")
			continue
		}

		// linear backoff: the delay grows with the attempt count
		if !m.sleep(ctx, time.Duration(retry)*m.cfg.BaseDelay) {
			m.transition(enum.ConnDisconnected)
			return
		}
	}
}

func (m *Manager) connectOnce(ctx context.Context) error {
	m.transition(enum.ConnConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	conn, err := m.transport.Dial(dialCtx, m.cfg.URL)
	cancel()
	if err != nil {
		m.transition(enum.ConnDisconnected)
		return err
	}

	m.setConn(conn)
	m.transition(enum.ConnAuthenticating)
	if err := m.authenticate(ctx, conn); err != nil {
		_ = conn.Close()
		m.setConn(nil)
		m.transition(enum.ConnDisconnected)
		return err
	}

	m.mu.Lock()
	m.retryCount = 0
	m.mu.Unlock()
	m.transition(enum.ConnConnected)

	err = m.readLoop(ctx, conn)
	_ = conn.Close()
	m.setConn(nil)
	m.transition(enum.ConnDisconnected)
	return err
}

func (m *Manager) authenticate(ctx context.Context, conn Conn) error {
	payload, err := codec.EncodeAuth(m.cfg.Token, m.cfg.UserID)
	if err != nil {
		return err
	}

	authCtx, cancel := context.WithTimeout(ctx, m.cfg.AuthTimeout)
	defer cancel()

	if err := conn.WriteMessage(authCtx, payload); err != nil {
		return errors.Wrap(err, "send auth envelope")
	}

	for {
		data, err := conn.ReadMessage(authCtx)
		if err != nil {
			if authCtx.Err() != nil {
				return exception.ErrAuthTimeout
			}
			return errors.Wrap(err, "read auth ack")
		}
		msg, err := codec.Decode(data, m.now())
		if err != nil {
			logs.Errorf("drop undecodable message during auth, err: %+v", err)
			continue
		}
		if msg.Kind != codec.MessageAuthAck {
			// servers may interleave updates before the ack
			m.handle(msg)
			continue
		}
		if !msg.AuthOK {
			return exception.ErrAuthRejected
		}
		return nil
	}
}

func (m *Manager) readLoop(ctx context.Context, conn Conn) error {
	for {
		data, err := conn.ReadMessage(ctx)
		if err != nil {
			return errors.Wrap(exception.ErrConnectionClosed, err.Error())
		}
		msg, err := codec.Decode(data, m.now())
		if err != nil {
			logs.Errorf("drop undecodable push message, err: %+v", err)
			continue
		}
		m.handle(msg)
	}
}

func (m *Manager) handle(msg codec.Message) {
	switch msg.Kind {
	case codec.MessagePropertyUpdate, codec.MessageMarketUpdate, codec.MessageNeighborhoodUpdate:
		m.store.Merge(msg.Record)
	case codec.MessageNewListing:
		m.store.Merge(msg.Record)
		m.bus.Publish(bus.Event{
			Kind:   enum.EventNewListing,
			Record: msg.Record,
			At:     msg.Record.FetchedAt(),
		})
	case codec.MessagePriceAlert:
		m.bus.Publish(bus.Event{
			Kind:  enum.EventPriceAlert,
			Alert: msg.Alert,
			At:    msg.Alert.At,
		})
	case codec.MessageAuthAck:
		// late ack outside the handshake, nothing to do
	default:
		logs.Infof("ignore unknown push message type: %q", msg.Type)
	}
}

func (m *Manager) transition(next enum.ConnState) {
	m.mu.Lock()
	if m.state == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	retry := m.retryCount
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      enum.EventConnectionState,
			ConnState: next,
			At:        m.now(),
		})
	}
	if m.cfg.OnState != nil {
		m.cfg.OnState(next, retry)
	}
}

func (m *Manager) setConn(conn Conn) {
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
}

// sleep waits the backoff delay; a wake signal ends it early. Returns false
// when the context is done.
func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-m.wake:
		return true
	case <-timer.C:
		return true
	}
}

func (m *Manager) waitForWake(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.wake:
		return true
	}
}
