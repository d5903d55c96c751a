package admin

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"go.minekube.com/queue/pkg/control"
	"go.minekube.com/queue/pkg/queue"
)

func newTestServer() (*Server, *queue.Store) {
	store := queue.NewStore(true, true)
	surface := &control.Surface{Store: store}
	srv := &Server{Surface: surface, metricsHandler: func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
	}}
	return srv, store
}

func request(method, path string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	ctx.Init(&req, nil, nil)
	return &ctx
}

func TestServeListQueuesReturnsJSON(t *testing.T) {
	srv, store := newTestServer()
	_, _ = store.Enqueue(uuid.New(), "survival", 0, false, false)

	ctx := request("GET", "/queues")
	srv.handler(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var listings []control.QueueListing
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &listings))
	require.Len(t, listings, 1)
	assert.Equal(t, "survival", listings[0].Server)
	assert.Equal(t, 1, listings[0].Size)
}

func TestServePauseToggleSetsPaused(t *testing.T) {
	srv, store := newTestServer()
	store.Status("survival")

	ctx := request("POST", "/queues/survival/pause")
	srv.handler(ctx)
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
	assert.True(t, store.Status("survival").Paused())

	ctx = request("POST", "/queues/survival/unpause")
	srv.handler(ctx)
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
	assert.False(t, store.Status("survival").Paused())
}

func TestServePauseToggleUnknownActionNotFound(t *testing.T) {
	srv, _ := newTestServer()
	ctx := request("POST", "/queues/survival/frobnicate")
	srv.handler(ctx)
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestHandlerUnknownPathNotFound(t *testing.T) {
	srv, _ := newTestServer()
	ctx := request("GET", "/unknown")
	srv.handler(ctx)
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestSplitLast(t *testing.T) {
	server, action := splitLast("survival/pause")
	assert.Equal(t, "survival", server)
	assert.Equal(t, "pause", action)

	server, action = splitLast("noaction")
	assert.Equal(t, "noaction", server)
	assert.Equal(t, "", action)
}
