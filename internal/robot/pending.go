package robot

import (
	"sync"
	"time"
)

// outcome is the single result delivered to a waiting caller.
type outcome struct {
	response Response
	err      error
}

type pendingRequest struct {
	key          Key
	result       chan outcome
	registeredAt time.Time
	deadline     time.Time
}

// pendingTable maps correlation keys to their waiting callers. Removal from
// the map is the claim on a request: whoever deletes the entry delivers the
// outcome, so each request resolves exactly once.
type pendingTable struct {
	mu       sync.Mutex
	requests map[Key]*pendingRequest
	closed   bool
}

func newPendingTable() *pendingTable {
	return &pendingTable{requests: make(map[Key]*pendingRequest)}
}

func (t *pendingTable) register(key Key, timeout time.Duration) (*pendingRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrConnectionClosed
	}
	if _, busy := t.requests[key]; busy {
		return nil, ErrRequestInFlight
	}

	now := time.Now()
	p := &pendingRequest{
		key:          key,
		result:       make(chan outcome, 1),
		registeredAt: now,
		deadline:     now.Add(timeout),
	}
	t.requests[key] = p
	return p, nil
}

// resolve delivers o to the request waiting on key, if any.
func (t *pendingTable) resolve(key Key, o outcome) bool {
	t.mu.Lock()
	p, ok := t.requests[key]
	if ok {
		delete(t.requests, key)
	}
	t.mu.Unlock()

	if ok {
		p.result <- o
	}
	return ok
}

// remove withdraws p without delivering anything. It reports false when
// another path already claimed p.
func (t *pendingTable) remove(p *pendingRequest) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.requests[p.key]; ok && cur == p {
		delete(t.requests, p.key)
		return true
	}
	return false
}

// failAll fails every request with err and refuses new registrations.
func (t *pendingTable) failAll(err error) int {
	t.mu.Lock()
	t.closed = true
	requests := t.requests
	t.requests = make(map[Key]*pendingRequest)
	t.mu.Unlock()

	for _, p := range requests {
		p.result <- outcome{err: err}
	}
	return len(requests)
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}
