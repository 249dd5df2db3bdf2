package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass/internal/platform/metrics"
	"gatepass/internal/ratelimit/models"
	"gatepass/internal/ratelimit/store/bucket"
	"gatepass/pkg/requestcontext"
	httptestutil "gatepass/pkg/testutil"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.Result, error) {
	return nil, errors.New("redis down")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoEmail writes back the request body so tests can see it survived the peek.
var echoEmail = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
})

func fromIP(req *http.Request, ip string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
}

func TestByIP(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	mw := New(bucket.NewInMemoryStore(), discardLogger(), WithMetrics(m))
	policy := models.Policy{Name: "send_code_ip", Limit: 2, Window: time.Minute}
	h := mw.ByIP(policy)(echoEmail)

	for i := range 2 {
		rr := httptestutil.DoRequest(h, fromIP(httptestutil.NewRequest(t, http.MethodPost, "/"), "10.0.0.1"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, []string{"1", "0"}[i], rr.Header().Get("X-RateLimit-Remaining"))
	}

	rr := httptestutil.DoRequest(h, fromIP(httptestutil.NewRequest(t, http.MethodPost, "/"), "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	resp := httptestutil.UnmarshalResponse[models.ExceededResponse](t, rr)
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
	assert.GreaterOrEqual(t, resp.RetryAfter, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues("send_code_ip")))

	// Other addresses keep their own budget.
	rr = httptestutil.DoRequest(h, fromIP(httptestutil.NewRequest(t, http.MethodPost, "/"), "10.0.0.2"))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestByEmail(t *testing.T) {
	mw := New(bucket.NewInMemoryStore(), discardLogger())
	h := mw.ByEmail(models.Policy{Name: "send_code_email", Limit: 1, Window: time.Minute})(echoEmail)

	t.Run("body is restored for the handler", func(t *testing.T) {
		req := httptestutil.NewJSONRequest(t, http.MethodPost, "/", map[string]string{"email": "Visitor@Example.com"})
		rr := httptestutil.DoRequest(h, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"email":"Visitor@Example.com"}`, rr.Body.String())
	})

	t.Run("same mailbox in another case is limited", func(t *testing.T) {
		req := httptestutil.NewJSONRequest(t, http.MethodPost, "/", map[string]string{"email": " visitor@example.com"})
		rr := httptestutil.DoRequest(h, req)
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	})

	t.Run("requests without an email pass through", func(t *testing.T) {
		req := httptestutil.NewJSONRequest(t, http.MethodPost, "/", map[string]string{"code": "123456"})
		for range 3 {
			rr := httptestutil.DoRequest(h, req.Clone(req.Context()))
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
		}
	})
}

func TestFailOpenAndDisabled(t *testing.T) {
	policy := models.Policy{Name: "login_ip", Limit: 1, Window: time.Minute}

	t.Run("store errors let the request through", func(t *testing.T) {
		h := New(failingStore{}, discardLogger()).ByIP(policy)(echoEmail)
		rr := httptestutil.DoRequest(h, fromIP(httptestutil.NewRequest(t, http.MethodPost, "/"), "10.0.0.1"))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("disabled never limits", func(t *testing.T) {
		h := New(bucket.NewInMemoryStore(), discardLogger(), WithDisabled(true)).ByIP(policy)(echoEmail)
		for range 3 {
			rr := httptestutil.DoRequest(h, fromIP(httptestutil.NewRequest(t, http.MethodPost, "/"), "10.0.0.1"))
			assert.Equal(t, http.StatusOK, rr.Code)
		}
	})
}
