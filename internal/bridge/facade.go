package bridge

import (
	"sync"

	"github.com/codefionn/testbridge/internal/socketserver"
)

// Bridge is the plain-call façade over a Manager for callers that want
// callbacks instead of subscriptions: the host extension glue, the CLI,
// and tests.
//
// Construct one per composition root with New. Default and ResetDefault
// remain for call sites that still expect a process-wide instance.
type Bridge struct {
	mgr *Manager

	mu       sync.Mutex
	subs     map[uint64]*Subscription
	nextSub  uint64
	disposed bool
}

// New creates a Bridge over a fresh idle Manager.
func New(opts ...ManagerOption) *Bridge {
	return &Bridge{
		mgr:  NewManager(opts...),
		subs: make(map[uint64]*Subscription),
	}
}

// SetHandlers replaces the handler table (wholesale, not merged).
func (b *Bridge) SetHandlers(table socketserver.HandlerTable) {
	b.mgr.SetHandlers(table)
}

// Start starts the bridge and returns its socket path.
func (b *Bridge) Start() (string, error) {
	return b.mgr.Start()
}

// Stop stops the bridge; stopping an idle bridge is a silent success.
func (b *Bridge) Stop() error {
	return b.mgr.Stop()
}

// Restart stops then starts, returning the new socket path.
func (b *Bridge) Restart() (string, error) {
	return b.mgr.Restart()
}

// Status returns the current lifecycle snapshot.
func (b *Bridge) Status() Status {
	return b.mgr.Status()
}

// IsRunning reports whether the bridge is up.
func (b *Bridge) IsRunning() bool {
	return b.mgr.IsRunning()
}

// SocketPath returns the live socket path, empty when stopped.
func (b *Bridge) SocketPath() string {
	return b.mgr.SocketPath()
}

// OnStatusChange invokes cb for the current status and every later
// transition, each callback run on the subscription's own goroutine in
// publish order. The returned function unsubscribes; calling it more than
// once is fine.
func (b *Bridge) OnStatusChange(cb func(Status)) (unsubscribe func()) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return func() {}
	}
	sub := b.mgr.Subscribe()
	b.nextSub++
	id := b.nextSub
	b.subs[id] = sub
	b.mu.Unlock()

	go func() {
		for st := range sub.C {
			cb(st)
		}
	}()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		sub.Cancel()
	}
}

// Dispose stops the bridge if running and releases every callback loop.
// Safe to call repeatedly.
func (b *Bridge) Dispose() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	subs := b.subs
	b.subs = make(map[uint64]*Subscription)
	b.mu.Unlock()

	_ = b.mgr.Stop()
	for _, sub := range subs {
		sub.Cancel()
	}
}

var (
	defaultMu     sync.Mutex
	defaultBridge *Bridge
)

// Default returns the process-wide Bridge, creating an idle one on first
// use. Prefer wiring a Bridge from New at the composition root; this
// accessor exists for call sites not yet converted to injection.
func Default() *Bridge {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBridge == nil {
		defaultBridge = New()
	}
	return defaultBridge
}

// ResetDefault disposes the process-wide Bridge, if any. The next Default
// call builds a fresh idle instance.
func ResetDefault() {
	defaultMu.Lock()
	b := defaultBridge
	defaultBridge = nil
	defaultMu.Unlock()

	if b != nil {
		b.Dispose()
	}
}
