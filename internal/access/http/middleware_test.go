package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	auditDomain "github.com/openspace-ehr/phiguard/internal/audit/domain"
	"github.com/openspace-ehr/phiguard/internal/session"
)

func TestIPRateLimiter(t *testing.T) {
	defer goleak.VerifyNone(t)
	gin.SetMode(gin.TestMode)

	limiter := NewIPRateLimiter(0.1, 2, time.Hour, discardLogger())
	defer func() {
		assert.NoError(t, limiter.Close())
	}()

	router := gin.New()
	router.POST("/verify", limiter.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/verify", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1234").Code)

	w := send("10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.JSONEq(t,
		`{"error":"rate_limit_exceeded","message":"Too many verification attempts from this address, retry later"}`,
		w.Body.String())

	t.Run("OtherClientUnaffected", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, send("10.0.0.2:1234").Code)
	})
}

func TestIPRateLimiter_EvictStale(t *testing.T) {
	defer goleak.VerifyNone(t)

	limiter := NewIPRateLimiter(1, 1, time.Hour, discardLogger())
	defer func() {
		assert.NoError(t, limiter.Close())
	}()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	limiter.limiterFor("10.0.0.1")

	now = now.Add(staleLimiterAge + time.Minute)
	limiter.limiterFor("10.0.0.2")
	limiter.evictStale()

	_, oldPresent := limiter.limiters.Load("10.0.0.1")
	_, newPresent := limiter.limiters.Load("10.0.0.2")
	assert.False(t, oldPresent)
	assert.True(t, newPresent)
}

func TestIPRateLimiter_CloseTwice(t *testing.T) {
	defer goleak.VerifyNone(t)

	limiter := NewIPRateLimiter(1, 1, 0, discardLogger())
	assert.NoError(t, limiter.Close())
	assert.NoError(t, limiter.Close())
}

func TestSessionMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := session.NewMemoryStore(time.Hour, time.Hour)
	defer func() { _ = store.Close() }()

	var seen string
	router := gin.New()
	router.Use(SessionMiddleware(store, SessionCookieConfig{Name: testCookie, TTL: time.Hour, Secure: true}, discardLogger()))
	router.GET("/", func(c *gin.Context) {
		sess, ok := session.FromContext(c.Request.Context())
		require.True(t, ok)
		seen = sess.ID()
		c.Status(http.StatusOK)
	})

	t.Run("IssuesCookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		cookie := sessionCookie(t, w)
		assert.Equal(t, seen, cookie.Value)
		assert.True(t, cookie.Secure)
		assert.Equal(t, 3600, cookie.MaxAge)
	})

	t.Run("ReusesIssuedCookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		id := sessionCookie(t, w).Value

		exists, err := store.Exists(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, exists)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: testCookie, Value: id})
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, id, seen)
	})

	t.Run("ReplacesUnknownCookie", func(t *testing.T) {
		chosen := "0190f1a2-7c3e-7d4b-9a2f-5e6d7c8b9a01"
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: testCookie, Value: chosen})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.NotEqual(t, chosen, seen)
		assert.Equal(t, seen, sessionCookie(t, w).Value)

		exists, err := store.Exists(context.Background(), chosen)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("ReplacesExpiredCookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		id := sessionCookie(t, w).Value
		require.NoError(t, store.Destroy(context.Background(), id))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: testCookie, Value: id})
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.NotEqual(t, id, seen)
	})

	t.Run("ReplacesMalformedCookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: testCookie, Value: "patient_access:42"})
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.NotEqual(t, "patient_access:42", seen)
		assert.Len(t, seen, 36)
	})
}

func TestActorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var actor auditDomain.Actor
	router := gin.New()
	router.Use(ActorMiddleware("X-Forwarded-User"))
	router.GET("/", func(c *gin.Context) {
		actor = auditDomain.ActorFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	req.Header.Set("X-Forwarded-User", "dr.house")
	req.Header.Set("User-Agent", "chart-viewer/1.0")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, auditDomain.Actor{ID: "dr.house", IPAddress: "192.0.2.10", UserAgent: "chart-viewer/1.0"}, actor)
}
