package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"pgregory.net/rapid"
)

func TestCache_SetGet(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[string]("test", WithClock(clock))

	c.Set("projects?page=1", "payload", time.Minute)
	got, ok := c.Get("projects?page=1")
	if !ok || got != "payload" {
		t.Fatalf("Get() = %q, %v, want %q, true", got, ok, "payload")
	}

	clock.Advance(time.Minute)
	if _, ok := c.Get("projects?page=1"); !ok {
		t.Errorf("Get() at exactly ttl reported absent, want present")
	}

	clock.Advance(time.Millisecond)
	if _, ok := c.Get("projects?page=1"); ok {
		t.Errorf("Get() after ttl reported present, want absent")
	}
	if c.Len() != 0 {
		t.Errorf("Len() after expired Get = %d, want 0", c.Len())
	}
}

func TestCache_DefaultTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[int]("test", WithClock(clock))

	c.Set("k", 1, 0)
	clock.Advance(DefaultTTL)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("entry with default ttl expired early")
	}
	clock.Advance(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Errorf("entry with default ttl still present after %v", DefaultTTL+time.Second)
	}
}

func TestCache_SetOverwritesAndRestamps(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[int]("test", WithClock(clock))

	c.Set("k", 1, time.Minute)
	clock.Advance(50 * time.Second)
	c.Set("k", 2, time.Minute)
	clock.Advance(50 * time.Second)

	got, ok := c.Get("k")
	if !ok || got != 2 {
		t.Errorf("Get() = %d, %v, want 2, true", got, ok)
	}
}

func TestCache_Clear(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		removed int
		left    []string
	}{
		{"ByProject", "/projects/7/", 2, []string{"/projects?per_page=100", "/projects/8/pipelines"}},
		{"NoMatch", "/groups", 0, []string{"/projects?per_page=100", "/projects/7/commits", "/projects/7/pipelines", "/projects/8/pipelines"}},
		{"All", "", 4, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New[int]("test", WithClock(clockwork.NewFakeClock()))
			for _, k := range []string{"/projects?per_page=100", "/projects/7/commits", "/projects/7/pipelines", "/projects/8/pipelines"} {
				c.Set(k, 1, time.Minute)
			}

			if got := c.Clear(tt.pattern); got != tt.removed {
				t.Errorf("Clear(%q) = %d, want %d", tt.pattern, got, tt.removed)
			}
			if c.Len() != len(tt.left) {
				t.Errorf("Len() = %d, want %d", c.Len(), len(tt.left))
			}
			for _, k := range tt.left {
				if _, ok := c.Get(k); !ok {
					t.Errorf("key %q missing after Clear(%q)", k, tt.pattern)
				}
			}
		})
	}
}

func TestCache_Sweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[int]("test", WithClock(clock))

	c.Set("short", 1, time.Minute)
	c.Set("long", 2, time.Hour)
	clock.Advance(2 * time.Minute)

	if got := c.Sweep(); got != 1 {
		t.Errorf("Sweep() = %d, want 1", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCache_RunSweepsOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[int]("test", WithClock(clock))
	c.Set("k", 1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, DefaultSweepInterval)
		close(done)
	}()

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}
	clock.Advance(DefaultSweepInterval)

	deadline := time.After(2 * time.Second)
	for c.Len() != 0 {
		select {
		case <-deadline:
			t.Fatalf("entry not swept, Len() = %d", c.Len())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestCache_SetThenGetProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		clock := clockwork.NewFakeClock()
		c := New[string]("prop", WithClock(clock))

		key := rapid.String().Draw(t, "key")
		val := rapid.String().Draw(t, "val")
		ttl := time.Duration(rapid.Int64Range(1, int64(time.Hour)).Draw(t, "ttl"))

		c.Set(key, val, ttl)
		if got, ok := c.Get(key); !ok || got != val {
			t.Fatalf("Get(%q) = %q, %v right after Set", key, got, ok)
		}

		clock.Advance(ttl + time.Nanosecond)
		if _, ok := c.Get(key); ok {
			t.Fatalf("Get(%q) present after ttl %v elapsed", key, ttl)
		}
	})
}

func ExampleCache_Clear() {
	c := New[int]("example")
	c.Set("/projects/1/merge_requests?state=opened", 3, 0)
	c.Set("/projects/2/merge_requests?state=opened", 5, 0)
	fmt.Println(c.Clear("/projects/1/"), c.Len())
	// Output: 1 1
}
