// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/alchemorsel/chefnano/internal/ports/outbound"
)

var (
	_ outbound.KitchenAI      = (*MockKitchenAI)(nil)
	_ outbound.ImageSharer    = (*MockImageSharer)(nil)
	_ outbound.KitchenMetrics = (*RecordingMetrics)(nil)
	_ outbound.FlowTracer     = (*RecordingTracer)(nil)
)

// MockKitchenAI provides a mock implementation of KitchenAI
type MockKitchenAI struct {
	mock.Mock
}

// RequestRecipe mocks recipe generation
func (m *MockKitchenAI) RequestRecipe(ctx context.Context, ingredients string) (kitchen.Recipe, error) {
	args := m.Called(ctx, ingredients)
	return args.Get(0).(kitchen.Recipe), args.Error(1)
}

// RequestFoodImage mocks dish photo generation
func (m *MockKitchenAI) RequestFoodImage(ctx context.Context, dishTitle string) (kitchen.DataURI, error) {
	args := m.Called(ctx, dishTitle)
	return args.Get(0).(kitchen.DataURI), args.Error(1)
}

// RequestImageEdit mocks image editing
func (m *MockKitchenAI) RequestImageEdit(ctx context.Context, source kitchen.DataURI, instruction string) (kitchen.DataURI, error) {
	args := m.Called(ctx, source, instruction)
	return args.Get(0).(kitchen.DataURI), args.Error(1)
}

// BlockUntilCancelled is a Run hook that parks the call until its context
// (the first argument) is cancelled.
func BlockUntilCancelled(args mock.Arguments) {
	<-args.Get(0).(context.Context).Done()
}

// MockImageSharer provides a mock implementation of ImageSharer
type MockImageSharer struct {
	mock.Mock
	name string
}

// NewMockImageSharer creates a named mock sharer
func NewMockImageSharer(name string) *MockImageSharer {
	return &MockImageSharer{name: name}
}

// Name returns the sharer name
func (m *MockImageSharer) Name() string {
	return m.name
}

// CanShare mocks the capability check
func (m *MockImageSharer) CanShare(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

// Share mocks sharing a file
func (m *MockImageSharer) Share(ctx context.Context, filename string, data []byte) (string, error) {
	args := m.Called(ctx, filename, data)
	return args.String(0), args.Error(1)
}

// RecordingMetrics counts kitchen metric events in memory
type RecordingMetrics struct {
	mu       sync.Mutex
	started  map[string]int
	finished map[string]int
	stale    map[string]int
	saves    map[string]int
}

// NewRecordingMetrics creates an empty recorder
func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{
		started:  make(map[string]int),
		finished: make(map[string]int),
		stale:    make(map[string]int),
		saves:    make(map[string]int),
	}
}

func (r *RecordingMetrics) FlowStarted(flow string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started[flow]++
}

func (r *RecordingMetrics) FlowFinished(flow, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[flow+"/"+outcome]++
}

func (r *RecordingMetrics) StaleResult(flow string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale[flow]++
}

func (r *RecordingMetrics) SaveCompleted(method, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves[method+"/"+target]++
}

// Finished returns how often flow ended with outcome
func (r *RecordingMetrics) Finished(flow, outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished[flow+"/"+outcome]
}

// Stale returns how many results of flow were dropped
func (r *RecordingMetrics) Stale(flow string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale[flow]
}

// Saves returns how many saves used method and target
func (r *RecordingMetrics) Saves(method, target string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves[method+"/"+target]
}

// FlowSpan is one flow observed by a RecordingTracer
type FlowSpan struct {
	Flow       string
	SessionID  string
	Generation uint64
	Ended      bool
	Err        error
}

// RecordingTracer keeps every flow span in memory
type RecordingTracer struct {
	mu    sync.Mutex
	spans []*FlowSpan
}

func (r *RecordingTracer) StartFlow(ctx context.Context, flow, sessionID string, generation uint64) (context.Context, func(error)) {
	span := &FlowSpan{Flow: flow, SessionID: sessionID, Generation: generation}
	r.mu.Lock()
	r.spans = append(r.spans, span)
	r.mu.Unlock()
	return ctx, func(err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		span.Ended = true
		span.Err = err
	}
}

// Spans returns a copy of the recorded spans in start order
func (r *RecordingTracer) Spans() []FlowSpan {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FlowSpan, 0, len(r.spans))
	for _, s := range r.spans {
		out = append(out, *s)
	}
	return out
}
