package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ajitpratap0/mcp-sse-client/pkg/logging"
)

type outcome struct {
	result json.RawMessage
	err    error
}

// pendingCall is one request waiting for its response
type pendingCall struct {
	id      int64
	gen     uint64
	method  string
	started time.Time
	// log is tagged with the session and request id
	log  logging.Logger
	done chan outcome
}

// complete delivers the outcome. Entries are completed once, by whoever removed
// them from the table.
func (p *pendingCall) complete(result json.RawMessage, err error) {
	select {
	case p.done <- outcome{result: result, err: err}:
	default:
	}
}

// pendingTable maps request ids of the current session to their callers
type pendingTable struct {
	mu      sync.Mutex
	entries map[int64]*pendingCall
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[int64]*pendingCall)}
}

func (t *pendingTable) add(id int64, gen uint64, method string, now time.Time, log logging.Logger) *pendingCall {
	p := &pendingCall{
		id:      id,
		gen:     gen,
		method:  method,
		started: now,
		log:     log,
		done:    make(chan outcome, 1),
	}

	t.mu.Lock()
	t.entries[id] = p
	t.mu.Unlock()
	return p
}

// take removes and returns the entry for a response of session gen
func (t *pendingTable) take(id int64, gen uint64) *pendingCall {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.entries[id]
	if !ok || p.gen != gen {
		return nil
	}
	delete(t.entries, id)
	return p
}

// remove deletes p if it is still registered and reports whether it was
func (t *pendingTable) remove(p *pendingCall) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entries[p.id] != p {
		return false
	}
	delete(t.entries, p.id)
	return true
}

// drain empties the table in one step and returns what it held
func (t *pendingTable) drain() []*pendingCall {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) == 0 {
		return nil
	}
	calls := make([]*pendingCall, 0, len(t.entries))
	for _, p := range t.entries {
		calls = append(calls, p)
	}
	t.entries = make(map[int64]*pendingCall)
	return calls
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
