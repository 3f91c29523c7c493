// Package notification holds the live set of websocket subscribers and
// fans messages out to them.
package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRegistered is returned when a handle is registered twice.
var ErrAlreadyRegistered = errors.New("notification: connection already registered")

// Conn is one subscriber channel.
type Conn interface {
	ID() string
	Open() bool
	Send(ctx context.Context, message []byte) error
	Close() error
}

// Hooks are invoked on registry membership changes.
type Hooks struct {
	OnConnect func(Conn)
	OnClose   func(Conn)
	// OnSend observes every attempted delivery; err is nil on success.
	OnSend func(Conn, error)
}

// BroadcastResult summarizes one broadcast.
type BroadcastResult struct {
	Delivered int
	Skipped   int
	Failed    int
}

// Registry tracks live connections. The set is only reachable through its methods.
type Registry struct {
	mu          sync.RWMutex
	conns       map[string]Conn
	hooks       Hooks
	sendTimeout time.Duration
	logger      *zap.Logger
}

// NewRegistry creates an empty registry. A zero sendTimeout disables the per-send deadline.
func NewRegistry(logger *zap.Logger, sendTimeout time.Duration, hooks Hooks) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		conns:       make(map[string]Conn),
		hooks:       hooks,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Register adds conn to the live set.
func (r *Registry) Register(conn Conn) error {
	r.mu.Lock()
	if _, exists := r.conns[conn.ID()]; exists {
		r.mu.Unlock()
		return ErrAlreadyRegistered
	}
	r.conns[conn.ID()] = conn
	r.mu.Unlock()

	if r.hooks.OnConnect != nil {
		r.hooks.OnConnect(conn)
	}
	return nil
}

// Unregister removes conn. Removing an absent handle is a no-op.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	_, existed := r.conns[conn.ID()]
	delete(r.conns, conn.ID())
	r.mu.Unlock()

	if existed && r.hooks.OnClose != nil {
		r.hooks.OnClose(conn)
	}
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast sends message to every open handle registered at call time.
// Closed handles are skipped but stay registered until their close callback
// unregisters them. A failing handle never prevents delivery to the others.
func (r *Registry) Broadcast(ctx context.Context, message string) BroadcastResult {
	snapshot := r.snapshot()
	payload := []byte(message)

	var (
		result    BroadcastResult
		delivered atomic.Int64
		failed    atomic.Int64
		g         errgroup.Group
	)

	for _, conn := range snapshot {
		if !conn.Open() {
			result.Skipped++
			continue
		}
		g.Go(func() error {
			err := r.send(ctx, conn, payload)
			if err != nil {
				failed.Add(1)
				r.logger.Debug("notification send failed", zap.String("conn_id", conn.ID()), zap.Error(err))
			} else {
				delivered.Add(1)
			}
			if r.hooks.OnSend != nil {
				r.hooks.OnSend(conn, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Delivered = int(delivered.Load())
	result.Failed = int(failed.Load())
	return result
}

// CloseAll closes and unregisters every handle.
func (r *Registry) CloseAll() {
	for _, conn := range r.snapshot() {
		if err := conn.Close(); err != nil {
			r.logger.Debug("closing notification connection", zap.String("conn_id", conn.ID()), zap.Error(err))
		}
		r.Unregister(conn)
	}
}

func (r *Registry) send(ctx context.Context, conn Conn, payload []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.New("notification: send panicked")
		}
	}()

	if r.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.sendTimeout)
		defer cancel()
	}
	return conn.Send(ctx, payload)
}

func (r *Registry) snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}
