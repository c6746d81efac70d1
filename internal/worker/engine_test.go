package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/messaging"
)

type queueClient struct {
	messages []messaging.Message
	once     sync.Once
}

func (q *queueClient) Publish(context.Context, []byte, []byte) error { return nil }

func (q *queueClient) Consume(ctx context.Context, handler messaging.Handler) error {
	q.once.Do(func() {
		for _, m := range q.messages {
			_ = handler(ctx, m)
		}
	})
	<-ctx.Done()
	return ctx.Err()
}

func (q *queueClient) Topic() string { return "orders.events" }

func enabledConfig() config.Config {
	var cfg config.Config
	cfg.Messaging.Enabled = true
	cfg.Messaging.Workers.Enabled = true
	cfg.Messaging.Workers.Concurrency = 2
	return cfg
}

func TestEngine_DispatchesByTopic(t *testing.T) {
	defer goleak.VerifyNone(t)

	var (
		mu   sync.Mutex
		seen []string
	)
	done := make(chan struct{})
	client := &queueClient{messages: []messaging.Message{
		{Topic: "orders.events", Value: []byte("a")},
		{Topic: "unknown", Value: []byte("b")},
		{Topic: "orders.events", Value: []byte("c")},
	}}
	record := func(_ context.Context, msg messaging.Message) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, string(msg.Value))
		if len(seen) == 2 {
			close(done)
		}
		return nil
	}
	engine, err := NewEngine(Params{
		Client:        client,
		Logger:        zaptest.NewLogger(t),
		Config:        enabledConfig(),
		Registrations: []HandlerRegistration{{Topic: "orders.events", Handler: record}},
	})
	require.NoError(t, err)

	require.NoError(t, engine.start(t.Context()))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("messages were not dispatched")
	}
	require.NoError(t, engine.stop(t.Context()))

	assert.Equal(t, []string{"a", "c"}, seen)
}

func TestEngine_DisabledDoesNotStart(t *testing.T) {
	engine, err := NewEngine(Params{Client: &queueClient{}, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	require.NoError(t, engine.start(t.Context()))
	assert.Nil(t, engine.cancel)
	require.NoError(t, engine.stop(t.Context()))
}

func TestEngine_DispatchRecoversPanics(t *testing.T) {
	engine, err := NewEngine(Params{
		Client: &queueClient{},
		Logger: zaptest.NewLogger(t),
		Config: enabledConfig(),
		Registrations: []HandlerRegistration{
			{Topic: "boom", Handler: func(context.Context, messaging.Message) error { panic("kaboom") }},
			{Topic: "fail", Handler: func(context.Context, messaging.Message) error { return errors.New("nope") }},
		},
	})
	require.NoError(t, err)

	err = engine.dispatch(t.Context(), 0, messaging.Message{Topic: "boom"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	assert.EqualError(t, engine.dispatch(t.Context(), 0, messaging.Message{Topic: "fail"}), "nope")
	assert.NoError(t, engine.dispatch(t.Context(), 0, messaging.Message{Topic: "missing"}))
}
