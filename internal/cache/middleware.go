package cache

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

// bodyRecorder tees the response body so it can be cached after the
// handler runs.
type bodyRecorder struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// ResponseMiddleware caches successful GET responses keyed by the full
// request URI. Quote endpoints hit upstream aggregators on every call;
// a short TTL absorbs bursts of identical requests.
func ResponseMiddleware(ttl time.Duration) gin.HandlerFunc {
	store := NewTTL[cachedResponse](ttl, RealClock{})

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.RequestURI()
		if cached, ok := store.Get(key); ok {
			c.Header("X-Cache", "HIT")
			c.Data(cached.status, cached.contentType, cached.body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = rec
		c.Header("X-Cache", "MISS")

		c.Next()

		// Only cache successes; errors should be retried upstream.
		if status := c.Writer.Status(); status == http.StatusOK {
			store.Set(key, cachedResponse{
				status:      status,
				contentType: c.Writer.Header().Get("Content-Type"),
				body:        rec.buf.Bytes(),
			})
		}
	}
}
