package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"atomdeck/api/internal/engine"
	"atomdeck/api/internal/operation"
	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

type recordingSink struct {
	name string
	err  error
	wait time.Duration

	mu   sync.Mutex
	recs []Record
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(ctx context.Context, rec Record) error {
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
	return s.err
}

func (s *recordingSink) timestamps() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.recs))
	for _, r := range s.recs {
		out = append(out, r.Operation.Timestamp)
	}
	return out
}

type closingSink struct {
	recordingSink
	closed bool
}

func (s *closingSink) Close() error {
	s.closed = true
	return errors.New("close failed")
}

func record(presentationID string, ts int64) Record {
	op := operation.AtomicOperation{Op: operation.OpAdd, Type: "text", Timestamp: ts, UserID: "u1"}
	return NewRecord(presentationID, op, engine.Result{Applied: true, Op: op.Op, Type: op.Type, SlideIndex: 0, Count: 1})
}

func TestNewRecordContext(t *testing.T) {
	rec := record("p1", 42)
	assert.Equal(t, "p1", rec.PresentationID)
	assert.Equal(t, 0, rec.SlideIndex)
	assert.Equal(t, "u1", rec.Context["userId"])
	assert.NotContains(t, rec.Context, "sessionId")
}

func TestDispatcherPreservesOrderAndIsolatesFailures(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	good := &recordingSink{name: "good"}
	bad := &recordingSink{name: "bad", err: errors.New("endpoint down")}
	d := NewDispatcher(zaptest.NewLogger(t), 64, time.Second, good, bad)
	d.Start(context.Background())

	for i := int64(1); i <= 20; i++ {
		require.True(t, d.Enqueue(record("p1", i)))
	}
	require.NoError(t, d.Close(context.Background()))

	want := make([]int64, 0, 20)
	for i := int64(1); i <= 20; i++ {
		want = append(want, i)
	}
	assert.Equal(t, want, good.timestamps())
	assert.Equal(t, want, bad.timestamps())
	assert.Equal(t, Stats{Failed: 20}, d.Stats())
	assert.False(t, d.Enqueue(record("p1", 99)), "closed dispatcher rejects records")
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(zaptest.NewLogger(t), 2, time.Second, &recordingSink{name: "s"})
	// Not started: the queue fills up.
	assert.True(t, d.Enqueue(record("p", 1)))
	assert.True(t, d.Enqueue(record("p", 2)))
	assert.False(t, d.Enqueue(record("p", 3)))
	assert.Equal(t, int64(1), d.Stats().Dropped)

	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, int64(2), d.Stats().Delivered)
}

func TestDispatcherClosesSinks(t *testing.T) {
	sink := &closingSink{recordingSink: recordingSink{name: "closing"}}
	d := NewDispatcher(nil, 1, time.Second, sink)
	d.Start(context.Background())
	err := d.Close(context.Background())
	assert.EqualError(t, err, "close failed")
	assert.True(t, sink.closed)
	assert.NoError(t, d.Close(context.Background()))
}

func TestDispatcherListenerForwardsAppliedOnly(t *testing.T) {
	sink := &recordingSink{name: "s"}
	d := NewDispatcher(zaptest.NewLogger(t), 8, time.Second, sink)
	d.Start(context.Background())

	listen := d.Listener("deck-9")
	listen(operation.AtomicOperation{Op: operation.OpRemove, Timestamp: 1}, engine.Result{Applied: false})
	listen(operation.AtomicOperation{Op: operation.OpAdd, Timestamp: 2}, engine.Result{Applied: true, SlideIndex: 3})
	require.NoError(t, d.Close(context.Background()))

	require.Len(t, sink.recs, 1)
	assert.Equal(t, "deck-9", sink.recs[0].PresentationID)
	assert.Equal(t, 3, sink.recs[0].SlideIndex)
}

func TestDispatcherTimesOutSlowSink(t *testing.T) {
	slow := &recordingSink{name: "slow", wait: time.Minute}
	d := NewDispatcher(zaptest.NewLogger(t), 1, 20*time.Millisecond, slow)
	d.Start(context.Background())
	d.Enqueue(record("p", 1))
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, int64(1), d.Stats().Failed)
}

func TestHTTPSink(t *testing.T) {
	var got Record
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if got.PresentationID == "reject" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, time.Second)
	require.NoError(t, sink.Publish(context.Background(), record("p1", 7)))
	assert.Equal(t, "p1", got.PresentationID)
	assert.Equal(t, int64(7), got.Operation.Timestamp)

	err := sink.Publish(context.Background(), record("reject", 8))
	assert.ErrorContains(t, err, "503")
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisSinkPublishesOnPresentationChannel(t *testing.T) {
	client := newRedis(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, OperationChannel("p1"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, NewRedisSink(client).Publish(ctx, record("p1", 5)))

	select {
	case msg := <-sub.Channel():
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &rec))
		assert.Equal(t, int64(5), rec.Operation.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published record")
	}
}

func TestSuggestionSubscriberReplays(t *testing.T) {
	client := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	replayed := make(chan string, 4)
	sub := NewSuggestionSubscriber(client, func(_ context.Context, presentationID string, op operation.AtomicOperation) error {
		replayed <- presentationID + ":" + string(op.Op)
		return nil
	}, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()
	select {
	case <-sub.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never became ready")
	}

	require.NoError(t, client.Publish(ctx, SuggestionChannel("deck-1"), "not json").Err())
	payload, err := json.Marshal(operation.AtomicOperation{Op: operation.OpApply, Type: "theme"})
	require.NoError(t, err)
	require.NoError(t, client.Publish(ctx, SuggestionChannel("deck-1"), payload).Err())

	select {
	case got := <-replayed:
		assert.Equal(t, "deck-1:APPLY", got)
	case <-time.After(2 * time.Second):
		t.Fatal("suggestion was not replayed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}

func TestHubWelcomePingAndBroadcast(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t), "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("p"), "u1")
	}))
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?p=deck-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() hubMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg hubMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	assert.Equal(t, "welcome", read().Type)
	require.Eventually(t, func() bool { return hub.Count("deck-1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, "pong", read().Type)

	require.NoError(t, hub.Publish(context.Background(), record("other-deck", 1)))
	require.NoError(t, hub.Publish(context.Background(), record("deck-1", 2)))
	msg := read()
	assert.Equal(t, "operation_update", msg.Type)
	require.NotNil(t, msg.Record)
	assert.Equal(t, int64(2), msg.Record.Operation.Timestamp)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count("deck-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
