// ABOUTME: Tests for event fan-out, suppression, and best-effort persistence
// ABOUTME: Uses a recording appender instead of a real store

package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdguard/pdguard/internal/store"
)

type recordingAppender struct {
	mu      sync.Mutex
	entries []store.AccessEntry
	err     error
}

func (r *recordingAppender) AppendAccess(_ context.Context, e store.AccessEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingAppender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func TestPublishReachesSubscribers(t *testing.T) {
	n := New(nil, nil)
	n.SetBootCompleted()

	ch, cancel := n.Subscribe()
	defer cancel()

	n.Publish(context.Background(), Event{
		PackageName: "com.example.app",
		UID:         10042,
		Mode:        "empty",
		DataTag:     "deviceID",
	})

	select {
	case ev := <-ch:
		assert.Equal(t, "com.example.app", ev.PackageName)
		assert.Equal(t, "empty", ev.Mode)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event never arrived")
	}
}

func TestPublishSuppressedBeforeBoot(t *testing.T) {
	n := New(nil, nil)
	ch, cancel := n.Subscribe()
	defer cancel()

	n.Publish(context.Background(), Event{PackageName: "com.early"})

	select {
	case ev := <-ch:
		t.Fatalf("event delivered before boot latch: %+v", ev)
	default:
	}
}

func TestPublishSuppressedWhenDisabled(t *testing.T) {
	n := New(nil, nil)
	n.SetBootCompleted()
	n.SetEnabled(false)

	ch, cancel := n.Subscribe()
	defer cancel()

	n.Publish(context.Background(), Event{PackageName: "com.quiet"})
	select {
	case <-ch:
		t.Fatal("event delivered while disabled")
	default:
	}

	n.SetEnabled(true)
	n.Publish(context.Background(), Event{PackageName: "com.loud"})
	select {
	case ev := <-ch:
		assert.Equal(t, "com.loud", ev.PackageName)
	case <-time.After(time.Second):
		t.Fatal("event never arrived after re-enable")
	}
}

func TestPublishPersistsEvenWhenSuppressed(t *testing.T) {
	rec := &recordingAppender{}
	n := New(rec, nil)
	// latch not released: broadcast suppressed, audit still written

	n.Publish(context.Background(), Event{PackageName: "com.audit", DataTag: "deviceID"})
	require.Equal(t, 1, rec.count())
	assert.Equal(t, "com.audit", rec.entries[0].PackageName)
}

func TestPublishSwallowsAppendFailure(t *testing.T) {
	rec := &recordingAppender{err: errors.New("disk full")}
	n := New(rec, nil)
	n.SetBootCompleted()

	// must not panic or block
	n.Publish(context.Background(), Event{PackageName: "com.example"})
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	n := New(nil, nil)
	n.SetBootCompleted()

	ch, cancel := n.Subscribe()
	defer cancel()

	// overflow the buffer without draining
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*3; i++ {
			n.Publish(context.Background(), Event{PackageName: "com.flood"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestCancelRemovesSubscriber(t *testing.T) {
	n := New(nil, nil)
	_, cancel := n.Subscribe()
	require.Equal(t, 1, n.SubscriberCount())
	cancel()
	cancel() // double cancel is safe
	assert.Equal(t, 0, n.SubscriberCount())
}
