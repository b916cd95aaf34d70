// Package testutil provides test utilities and mocks for transfer operations.
// This package is internal and should only be used for testing within the
// transfer module.
package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/meridianworks/transfer/rpc"
	"github.com/meridianworks/transfer/transfertypes"
)

// MockCaller is a mock implementation of the rpc.Caller interface for testing.
// It records every call and allows customization through function fields.
type MockCaller struct {
	CallFunc   func(ctx context.Context, ops []rpc.Operation) ([]json.RawMessage, error)
	DeleteFunc func(ctx context.Context, entityType string, keys []string) error

	mu      sync.Mutex
	calls   [][]rpc.Operation
	deletes []DeleteCall
}

// DeleteCall records one Delete invocation.
type DeleteCall struct {
	EntityType string
	Keys       []string
}

// Call records the operations and delegates to CallFunc. Without a CallFunc
// it returns one empty object per operation.
func (m *MockCaller) Call(ctx context.Context, ops []rpc.Operation) ([]json.RawMessage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ops)
	m.mu.Unlock()

	if m.CallFunc != nil {
		return m.CallFunc(ctx, ops)
	}
	responses := make([]json.RawMessage, len(ops))
	for i := range responses {
		responses[i] = json.RawMessage(`{}`)
	}
	return responses, nil
}

// Delete records the invocation and delegates to DeleteFunc.
func (m *MockCaller) Delete(ctx context.Context, entityType string, keys []string) error {
	m.mu.Lock()
	m.deletes = append(m.deletes, DeleteCall{EntityType: entityType, Keys: keys})
	m.mu.Unlock()

	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, entityType, keys)
	}
	return nil
}

// Calls returns a copy of the recorded batched calls.
func (m *MockCaller) Calls() [][]rpc.Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([][]rpc.Operation, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Deletes returns a copy of the recorded delete invocations.
func (m *MockCaller) Deletes() []DeleteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	deletes := make([]DeleteCall, len(m.deletes))
	copy(deletes, m.deletes)
	return deletes
}

// MockPublisher records published events.
type MockPublisher struct {
	PublishFunc func(ctx context.Context, event transfertypes.Event) error

	mu     sync.Mutex
	events []transfertypes.Event
}

// Publish records the event and delegates to PublishFunc.
func (m *MockPublisher) Publish(ctx context.Context, event transfertypes.Event) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	return nil
}

// Events returns a copy of the recorded events.
func (m *MockPublisher) Events() []transfertypes.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]transfertypes.Event, len(m.events))
	copy(events, m.events)
	return events
}

// StubConnectivity is a toggleable connectivity probe.
type StubConnectivity struct {
	mu     sync.Mutex
	online bool
}

// NewStubConnectivity creates a probe with the given initial state.
func NewStubConnectivity(online bool) *StubConnectivity {
	return &StubConnectivity{online: online}
}

// Online reports the stubbed state.
func (s *StubConnectivity) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetOnline flips the stubbed state.
func (s *StubConnectivity) SetOnline(online bool) {
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()
}
