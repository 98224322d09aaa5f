package http_server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"liveauction/internal/database/memstore"
	"liveauction/internal/highbid"
	"liveauction/internal/http/middleware"
	"liveauction/internal/ratelimit"
	"liveauction/internal/services/auction"
	"liveauction/internal/services/notification"
	"liveauction/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(secret string) *httpServer {
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	hub := ws.NewHub()
	svc := auction.NewAuctionService(store, highbid.NewMemory(hub.Broadcast), nil)
	sink := notification.NewSink(store, nil)
	limiter := ratelimit.NewMemory(10, time.Minute)
	return NewHttpServer(context.Background(), 8085, secret,
		ws.NewWsServer(hub, ws.DirectFeed{}, svc, ws.WithBidLimiter(limiter)), svc, sink, limiter)
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes_Ops(t *testing.T) {
	r := newServer("").Routes()

	w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	serve(r, httptest.NewRequest(http.MethodGet, "/auctions", nil))
	w = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_request_duration_seconds")
}

func TestRoutes_TokenAuth(t *testing.T) {
	const secret = "s3cret"
	r := newServer(secret).Routes()

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req.Header.Set("X-User-ID", "bidder-x")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	tok, err := middleware.IssueToken(secret, "bidder-x", time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestRoutes_BidRateLimit(t *testing.T) {
	r := newServer("").Routes()
	bid := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auctions/missing/bids", strings.NewReader(`{"amount":525}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", user)
		return serve(r, req)
	}

	for range 10 {
		assert.Equal(t, http.StatusNotFound, bid("bidder-x").Code)
	}
	w := bid("bidder-x")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusNotFound, bid("bidder-y").Code)
}
