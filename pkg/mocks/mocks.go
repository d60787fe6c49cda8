// Package mocks provides test doubles for the distillation collaborators
package mocks

import (
	"strings"
	"sync"
	"time"

	"github.com/poltergeist/distill/pkg/interfaces"
)

var (
	_ interfaces.FileSystem      = (*MockFileSystem)(nil)
	_ interfaces.DistillNotifier = (*MockNotifier)(nil)
)

// MockFileSystem wraps a real FileSystem and injects faults
type MockFileSystem struct {
	interfaces.FileSystem

	mu sync.Mutex
	// DropAfterStamp makes destinations disappear after SetTimestamps.
	DropAfterStamp bool
	// CopyError is returned from Copy when set.
	CopyError error
	// Calls records the collaborator operations in order.
	Calls []string

	dropped map[string]bool
}

// NewMockFileSystem wraps inner
func NewMockFileSystem(inner interfaces.FileSystem) *MockFileSystem {
	return &MockFileSystem{
		FileSystem: inner,
		dropped:    make(map[string]bool),
	}
}

func (m *MockFileSystem) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// Exists reports false for dropped destinations
func (m *MockFileSystem) Exists(path string) bool {
	m.mu.Lock()
	dropped := m.dropped[path]
	m.mu.Unlock()
	if dropped {
		return false
	}
	return m.FileSystem.Exists(path)
}

// Copy records the call and returns CopyError when set
func (m *MockFileSystem) Copy(src, dst string) error {
	m.record("copy " + src + " " + dst)
	if m.CopyError != nil {
		return m.CopyError
	}
	return m.FileSystem.Copy(src, dst)
}

// SetTimestamps records the call and optionally drops the file afterwards
func (m *MockFileSystem) SetTimestamps(path string, created, modified time.Time) error {
	m.record("stamp " + path)
	if err := m.FileSystem.SetTimestamps(path, created, modified); err != nil {
		return err
	}
	if m.DropAfterStamp {
		m.mu.Lock()
		m.dropped[path] = true
		m.mu.Unlock()
	}
	return nil
}

// CopyCount returns how many Copy calls were made
func (m *MockFileSystem) CopyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if strings.HasPrefix(c, "copy ") {
			n++
		}
	}
	return n
}

// NotifierEvent is one recorded notification
type NotifierEvent struct {
	Kind    string
	Session string
	Files   int
	Err     error
}

// MockNotifier records notifications
type MockNotifier struct {
	mu     sync.Mutex
	events []NotifierEvent
}

// NewMockNotifier creates an empty recorder
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// NotifyDistillStart records a start event
func (n *MockNotifier) NotifyDistillStart(session string) {
	n.add(NotifierEvent{Kind: "start", Session: session})
}

// NotifyDistillSuccess records a success event
func (n *MockNotifier) NotifyDistillSuccess(session string, files int, _ time.Duration) {
	n.add(NotifierEvent{Kind: "success", Session: session, Files: files})
}

// NotifyDistillFailure records a failure event
func (n *MockNotifier) NotifyDistillFailure(session string, err error) {
	n.add(NotifierEvent{Kind: "failure", Session: session, Err: err})
}

// Events returns a copy of the recorded events
func (n *MockNotifier) Events() []NotifierEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]NotifierEvent, len(n.events))
	copy(out, n.events)
	return out
}

func (n *MockNotifier) add(e NotifierEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}
