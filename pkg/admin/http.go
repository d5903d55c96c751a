/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package admin exposes the queue subsystem's read/control surface
// over HTTP, for dashboards and external tooling that would rather
// poll HTTP than attach an in-game permission-gated CLI.
package admin

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"go.minekube.com/queue/pkg/control"
	"go.minekube.com/queue/pkg/metrics"
)

// Server serves GET /queues, POST /queues/{server}/pause,
// POST /queues/{server}/unpause and GET /metrics.
type Server struct {
	Surface *control.Surface
	Addr    string

	metricsHandler fasthttp.RequestHandler
}

// ListenAndServe blocks serving the admin HTTP surface until ctx is
// canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.metricsHandler = fasthttpadaptor.NewFastHTTPHandler(metrics.Handler())

	srv := &fasthttp.Server{
		Handler: s.handler,
		Name:    "gate-queue-admin",
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(s.Addr) }()

	select {
	case <-ctx.Done():
		return srv.Shutdown()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	switch {
	case path == "/metrics":
		s.metricsHandler(ctx)
	case path == "/queues" && ctx.IsGet():
		s.serveListQueues(ctx)
	case ctx.IsPost() && strings.HasPrefix(path, "/queues/"):
		s.servePauseToggle(ctx, strings.TrimPrefix(path, "/queues/"))
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) serveListQueues(ctx *fasthttp.RequestCtx) {
	listings := s.Surface.List()
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(listings); err != nil {
		zap.L().Warn("failed encoding queue listing", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	}
}

func (s *Server) servePauseToggle(ctx *fasthttp.RequestCtx, rest string) {
	server, action := splitLast(rest)
	switch action {
	case "pause":
		s.Surface.Pause(ctx, server)
	case "unpause":
		s.Surface.Unpause(ctx, server)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func splitLast(path string) (server, action string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return path, ""
	}
	return path[:i], path[i+1:]
}
