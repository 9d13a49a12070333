package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/budget-calendar-go/internal/domain"
	"github.com/boddenberg/budget-calendar-go/internal/infra/cache"
	"github.com/boddenberg/budget-calendar-go/internal/port"
)

var _ port.Cache[domain.MonthlyCalendar] = (*cache.InMemory[domain.MonthlyCalendar])(nil)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[domain.MonthlyCalendar](5 * time.Minute)
	defer c.Close()

	cal := domain.NewMonthlyCalendar(2025, time.March)
	c.Set("plan-1", cal)

	got, ok := c.Get("plan-1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if len(got) != 31 {
		t.Errorf("expected 31 days, got %d", len(got))
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
	if n := c.Len(); n != 0 {
		t.Errorf("expected 0 live entries, got %d", n)
	}
}

func TestCache_NoTTLNeverExpires(t *testing.T) {
	c := cache.New[string](0)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(10 * time.Millisecond)

	if _, ok := c.Get("key1"); !ok {
		t.Fatal("expected entry without ttl to stay")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_CloseTwice(t *testing.T) {
	c := cache.New[string](time.Minute)
	c.Close()
	c.Close()

	c.Set("key1", "value1")
	if _, ok := c.Get("key1"); !ok {
		t.Fatal("expected cache usable after Close")
	}
}
