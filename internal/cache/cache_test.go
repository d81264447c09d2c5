package cache

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestTTL_GetSet(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := NewTTL[string](5*time.Minute, clock)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache should miss")
	}

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Errorf("Get = %q, %v; want v, true", got, ok)
	}
}

func TestTTL_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := NewTTL[int](5*time.Minute, clock)

	c.Set("k", 42)
	clock.Advance(4 * time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry should survive within TTL")
	}

	clock.Advance(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("entry should expire after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not dropped, Len = %d", c.Len())
	}
}

func TestTTL_Overwrite(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := NewTTL[int](time.Minute, clock)

	c.Set("k", 1)
	clock.Advance(50 * time.Second)
	c.Set("k", 2) // refreshes expiry
	clock.Advance(30 * time.Second)

	got, ok := c.Get("k")
	if !ok || got != 2 {
		t.Errorf("Get = %d, %v; want 2, true", got, ok)
	}
}

func TestTTL_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := NewTTL[int](time.Minute, clock)

	c.Set("a", 1)
	c.Set("b", 2)
	clock.Advance(2 * time.Minute)

	c.sweep()
	if c.Len() != 0 {
		t.Errorf("Len after sweep = %d, want 0", c.Len())
	}
}

func TestTTL_StopIsIdempotent(t *testing.T) {
	c := NewTTL[int](time.Minute, nil)
	c.Start(10 * time.Millisecond)
	c.Stop()
	c.Stop() // must not panic
}

func TestResponseMiddleware_ServesCachedCopy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := 0

	r := gin.New()
	r.Use(ResponseMiddleware(time.Minute))
	r.GET("/quote", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"toAmount": "100"})
	})

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/quote?amount=1", nil))
	if w1.Header().Get("X-Cache") != "MISS" {
		t.Errorf("first request X-Cache = %q, want MISS", w1.Header().Get("X-Cache"))
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/quote?amount=1", nil))
	if w2.Header().Get("X-Cache") != "HIT" {
		t.Errorf("second request X-Cache = %q, want HIT", w2.Header().Get("X-Cache"))
	}
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}
	if w2.Body.String() != w1.Body.String() {
		t.Error("cached body differs from original")
	}
}

func TestResponseMiddleware_DistinctQueriesNotShared(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ResponseMiddleware(time.Minute))
	r.GET("/quote", func(c *gin.Context) {
		c.String(http.StatusOK, c.Query("amount"))
	})

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/quote?amount=1", nil))
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/quote?amount=2", nil))

	if w2.Body.String() != "2" {
		t.Errorf("different query served stale body %q", w2.Body.String())
	}
}

func TestResponseMiddleware_SkipsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := 0
	r := gin.New()
	r.Use(ResponseMiddleware(time.Minute))
	r.GET("/quote", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream_error"})
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/quote", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/quote", nil))

	if calls != 2 {
		t.Errorf("error responses must not be cached, calls = %d", calls)
	}
}

func TestResponseMiddleware_SkipsPost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := 0
	r := gin.New()
	r.Use(ResponseMiddleware(time.Minute))
	r.POST("/simulate", func(c *gin.Context) {
		calls++
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/simulate", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/simulate", nil))

	if calls != 2 {
		t.Errorf("POST must not be cached, calls = %d", calls)
	}
}
