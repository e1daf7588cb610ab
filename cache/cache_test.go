package cache

import (
	"context"
	"testing"
	"time"
)

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time { return c.now }

func (c *stubClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type payload struct {
	Likes int64 `json:"likes"`
}

func TestMemoryCacheRoundtrip(t *testing.T) {
	var c = NewMemory(nil)
	var ctx = context.Background()
	if err := c.Set(ctx, "k", payload{Likes: 7}, time.Minute); err != nil {
		t.Fatal(err)
	}
	var got payload
	ok, err := c.Get(ctx, "k", &got)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if got.Likes != 7 {
		t.Fatalf("got %+v", got)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	var clock = &stubClock{now: time.Unix(1700000000, 0)}
	var c = NewMemory(clock)
	var ctx = context.Background()
	if err := c.Set(ctx, "k", payload{Likes: 1}, 10*time.Minute); err != nil {
		t.Fatal(err)
	}
	clock.advance(9 * time.Minute)
	if ok, _ := c.Get(ctx, "k", nil); !ok {
		t.Fatal("entry expired early")
	}
	clock.advance(2 * time.Minute)
	if ok, _ := c.Get(ctx, "k", nil); ok {
		t.Fatal("entry survived its ttl")
	}
	if c.Len() != 0 {
		t.Fatal("expired entry not evicted")
	}
}

func TestMemoryCacheZeroTtlNeverExpires(t *testing.T) {
	var clock = &stubClock{now: time.Unix(1700000000, 0)}
	var c = NewMemory(clock)
	var ctx = context.Background()
	if err := c.Set(ctx, "k", payload{Likes: 1}, 0); err != nil {
		t.Fatal(err)
	}
	clock.advance(1000 * time.Hour)
	if ok, _ := c.Get(ctx, "k", nil); !ok {
		t.Fatal("zero ttl entry should stay")
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	var c = NewMemory(nil)
	var got payload
	ok, err := c.Get(context.Background(), "absent", &got)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestMemoryCacheDel(t *testing.T) {
	var c = NewMemory(nil)
	var ctx = context.Background()
	c.Set(ctx, "k", payload{Likes: 1}, 0)
	if err := c.Del(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.Get(ctx, "k", nil); ok {
		t.Fatal("deleted entry still present")
	}
}
