package speech

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestQueueSpeaksInOrder(t *testing.T) {
	fake := NewFake(0, nil)
	q := NewQueue(context.Background(), fake, 10)

	for _, text := range []string{"one", "two", "three"} {
		if !q.Enqueue(text) {
			t.Fatalf("Enqueue(%q) dropped", text)
		}
	}
	q.Close()

	if got, want := fake.Utterances(), []string{"one", "two", "three"}; !reflect.DeepEqual(got, want) {
		t.Errorf("utterances = %v, want %v", got, want)
	}

	stats := q.Stats()
	if stats.Utterances != 3 || stats.Dropped != 0 || stats.Errors != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestQueueEnqueueNeverBlocks(t *testing.T) {
	fake := NewFake(50*time.Millisecond, nil)
	q := NewQueue(context.Background(), fake, 1)
	defer q.Close()

	start := time.Now()
	accepted := 0
	for i := 0; i < 5; i++ {
		if q.Enqueue("hello") {
			accepted++
		}
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("Enqueue blocked for %v", elapsed)
	}

	// one in flight at most plus one buffered
	if accepted < 1 || accepted > 2 {
		t.Errorf("accepted = %d, want 1 or 2", accepted)
	}
	if dropped := q.Stats().Dropped; dropped != 5-accepted {
		t.Errorf("dropped = %d, want %d", dropped, 5-accepted)
	}
}

func TestQueueCountsErrors(t *testing.T) {
	fake := NewFake(0, errors.New("no audio device"))
	q := NewQueue(context.Background(), fake, 4)

	q.Enqueue("a")
	q.Enqueue("b")
	q.Close()

	if stats := q.Stats(); stats.Errors != 2 || stats.Utterances != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestQueueCancelledContextDropsPending(t *testing.T) {
	fake := NewFake(time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue(ctx, fake, 4)

	q.Enqueue("a")
	q.Enqueue("b")
	cancel()

	done := make(chan struct{})
	go func() {
		q.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Close() did not return after cancellation")
	}

	if len(fake.Utterances()) != 0 {
		t.Errorf("expected no completed utterances, got %v", fake.Utterances())
	}
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	q := NewQueue(context.Background(), NewFake(0, nil), 1)
	q.Close()
	q.Close()
}

func TestSynthArgs(t *testing.T) {
	tests := []struct {
		voice string
		rate  int
		want  []string
	}{
		{"en", 150, []string{"--stdout", "--stdin", "-s", "150", "-v", "en"}},
		{"", 0, []string{"--stdout", "--stdin"}},
	}

	for _, tt := range tests {
		if got := synthArgs(tt.voice, tt.rate); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("synthArgs(%q, %d) = %v, want %v", tt.voice, tt.rate, got, tt.want)
		}
	}
}
