package bridge

import "sync"

// Status is a snapshot of the bridge lifecycle, as observed by the host UI
// and the companion tooling.
type Status struct {
	// BridgeReady is true while a listener is live.
	BridgeReady bool `json:"bridgeReady"`
	// Starting is true between a start request and its outcome.
	Starting bool `json:"starting"`
	// Error holds the last start failure, empty otherwise.
	Error string `json:"error,omitempty"`
	// SocketPath is the live socket path, empty when not running.
	SocketPath string `json:"socketPath,omitempty"`
}

// Subscription is one listener's view of the status stream. Receive from C
// and call Cancel when done; Cancel is idempotent and safe from any
// goroutine.
type Subscription struct {
	C <-chan Status

	sub  *subscriber
	once sync.Once
}

// Cancel tears the subscription down. C is closed once any buffered
// snapshots have been dropped.
func (s *Subscription) Cancel() {
	s.once.Do(s.sub.stop)
}

// Publisher broadcasts status snapshots to any number of subscribers and
// replays the current snapshot to each new one.
//
// Publishing never blocks: every subscriber has its own unbounded queue
// drained by its own goroutine, so one stalled listener cannot hold up the
// lifecycle manager or its peers.
type Publisher struct {
	mu      sync.Mutex
	current Status
	subs    map[uint64]*subscriber
	nextID  uint64
}

// NewPublisher creates a publisher whose current snapshot is the zero
// Status (idle, no error, no path).
func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[uint64]*subscriber)}
}

// Publish records s as the current snapshot and enqueues it for every
// subscriber.
func (p *Publisher) Publish(s Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = s
	for _, sub := range p.subs {
		sub.push(s)
	}
}

// Current returns the latest published snapshot.
func (p *Publisher) Current() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Subscribe attaches a new listener. The subscriber's first received value
// is the snapshot current at the moment of subscription; the snapshot and
// the attach happen under one lock, so no transition published concurrently
// can fall between them.
func (p *Publisher) Subscribe() *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan Status)
	sub := &subscriber{out: ch, wake: make(chan struct{}, 1), done: make(chan struct{})}
	sub.queue = append(sub.queue, p.current)
	sub.signal()

	p.nextID++
	id := p.nextID
	p.subs[id] = sub
	sub.detach = func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}

	go sub.pump()

	return &Subscription{C: ch, sub: sub}
}

// SubscriberCount reports how many subscriptions are attached.
func (p *Publisher) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// subscriber owns one listener's queue. push appends under the queue lock
// and nudges the pump, which forwards values to the out channel at
// whatever pace the listener consumes them.
type subscriber struct {
	mu     sync.Mutex
	queue  []Status
	out    chan Status
	wake   chan struct{}
	done   chan struct{}
	detach func()
}

func (s *subscriber) push(v Status) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			v := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case s.out <- v:
			case <-s.done:
				return
			}
		}
	}
}

func (s *subscriber) stop() {
	s.detach()
	close(s.done)
}
