// Package sink collects what the probe workers find and streams it to the
// scan's destinations: the output file, the error file, and optionally a
// database.
package sink

import (
	"os"
	"strings"
	"sync"
)

// Record is one discovered name together with the value its query answered
// with. A probe that returns several records produces several Records.
type Record struct {
	Target string `json:"target"`
	Value  string `json:"value"`
}

// Line renders the record as it appears in the output file.
func (r Record) Line() string {
	return r.Target + " | " + r.Value
}

// Results buffers records between the probe workers and the writer. Workers
// append, the writer drains; both sides may run concurrently.
type Results struct {
	mu       sync.Mutex
	buf      []Record
	appended uint64
}

// Append adds one record to the buffer.
func (rs *Results) Append(r Record) {
	rs.mu.Lock()
	rs.buf = append(rs.buf, r)
	rs.appended++
	rs.mu.Unlock()
}

// Drain returns everything buffered so far and empties the buffer.
func (rs *Results) Drain() []Record {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.buf) == 0 {
		return nil
	}
	out := rs.buf
	rs.buf = nil
	return out
}

// Pending reports how many records are waiting to be drained.
func (rs *Results) Pending() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.buf)
}

// Appended reports how many records have ever been appended.
func (rs *Results) Appended() uint64 {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.appended
}

// Errors accumulates probe failures worth reporting. Unlike results they are
// kept for the whole scan and written out once at the end.
type Errors struct {
	mu   sync.Mutex
	msgs []string
}

// Append records one failure message.
func (e *Errors) Append(msg string) {
	e.mu.Lock()
	e.msgs = append(e.msgs, msg)
	e.mu.Unlock()
}

// Len reports how many failures have been recorded.
func (e *Errors) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.msgs)
}

// Snapshot returns a copy of every recorded failure in append order.
func (e *Errors) Snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.msgs))
	copy(out, e.msgs)
	return out
}

// WriteFile overwrites path with the recorded failures, one per line.
func (e *Errors) WriteFile(path string) error {
	return os.WriteFile(path, []byte(strings.Join(e.Snapshot(), "\n")), 0o644)
}
