package price

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCacheHitAndMiss(t *testing.T) {
	c := newTableCache(cacheTTL)

	if _, ok := c.get(); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.set(Table{"TCS": decimal.NewFromInt(4000)})
	got, ok := c.get()
	if !ok {
		t.Fatal("expected cache hit, got miss")
	}
	if p, _ := got.Price("TCS"); !p.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("cached price = %s, want 4000", p)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := newTableCache(10 * time.Millisecond)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.set(Table{})
	now = now.Add(20 * time.Millisecond)

	if _, ok := c.get(); ok {
		t.Error("expected cache miss after TTL")
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := newTableCache(cacheTTL)
	c.set(Table{})
	c.invalidate()

	if _, ok := c.get(); ok {
		t.Error("expected miss after invalidate")
	}
}
