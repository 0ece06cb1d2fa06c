package synth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/codetutor/internal/provider"
)

// fakeProvider replays a fixed event stream and records the last request.
type fakeProvider struct {
	events  []provider.StreamEvent
	lastReq provider.CompletionRequest
	err     error
}

func (f *fakeProvider) Stream(_ context.Context, req provider.CompletionRequest) (<-chan provider.StreamEvent, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan provider.StreamEvent, len(f.events))
	for _, evt := range f.events {
		ch <- evt
	}
	close(ch)
	return ch, nil
}

func TestCompleteCollectsTextDeltas(t *testing.T) {
	p := &fakeProvider{events: []provider.StreamEvent{
		{Type: "text_delta", Text: "Hello"},
		{Type: "text_delta", Text: ", "},
		{Type: "text_delta", Text: "world"},
		{Type: "stop"},
	}}
	c := NewCompleter(p, "test-model", 1024, 0)

	got, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", got)
}

func TestCompletePinsTemperatureToZero(t *testing.T) {
	p := &fakeProvider{events: []provider.StreamEvent{{Type: "stop"}}}
	c := NewCompleter(p, "test-model", 512, 0)

	_, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, "test-model", p.lastReq.Model)
	assert.Equal(t, 512, p.lastReq.MaxTokens)
	require.NotNil(t, p.lastReq.Temperature)
	assert.Equal(t, 0.0, *p.lastReq.Temperature)
	require.Len(t, p.lastReq.Messages, 1)
	assert.Equal(t, "user", p.lastReq.Messages[0].Role)
	assert.Equal(t, "prompt", p.lastReq.Messages[0].Content)
}

func TestCompleteDefaultMaxTokens(t *testing.T) {
	p := &fakeProvider{events: []provider.StreamEvent{{Type: "stop"}}}
	c := NewCompleter(p, "m", 0, 0)

	_, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, 4096, p.lastReq.MaxTokens)
}

func TestCompleteStreamError(t *testing.T) {
	p := &fakeProvider{events: []provider.StreamEvent{
		{Type: "text_delta", Text: "partial"},
		{Type: "error", Error: errors.New("rate limited")},
	}}
	c := NewCompleter(p, "m", 1024, 0)

	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestCompleteProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	c := NewCompleter(p, "m", 1024, 0)

	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCompleteRateLimiterHonorsCancellation(t *testing.T) {
	p := &fakeProvider{events: []provider.StreamEvent{{Type: "stop"}}}
	// Tiny rate so the second call must wait long enough to observe the
	// cancelled context.
	c := NewCompleter(p, "m", 1024, 0.001)

	_, err := c.Complete(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Complete(ctx, "second")
	require.Error(t, err)
}
