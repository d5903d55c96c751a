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

// Package gate wires the queue subsystem's components into a running
// process: config, coordinator, store, engine, prober, feedback,
// control surface, admin HTTP surface and signal handling.
package gate

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.minekube.com/common/minecraft/color"
	"go.minekube.com/common/minecraft/component"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"go.minekube.com/queue/pkg/admin"
	"go.minekube.com/queue/pkg/backend"
	"go.minekube.com/queue/pkg/cluster"
	"go.minekube.com/queue/pkg/config"
	"go.minekube.com/queue/pkg/control"
	"go.minekube.com/queue/pkg/engine"
	"go.minekube.com/queue/pkg/feedback"
	"go.minekube.com/queue/pkg/metrics"
	"go.minekube.com/queue/pkg/prober"
	"go.minekube.com/queue/pkg/proxy"
	"go.minekube.com/queue/pkg/queue"
	"go.minekube.com/queue/pkg/schedule"
)

// Run loads configuration, builds every queue subsystem component and
// blocks serving its ticks until a termination signal arrives. The
// debug flag is read from viper directly (mirroring the teacher's
// cfg.Debug field) since it controls logger construction before the
// rest of Config is even loaded.
func Run() (err error) {
	debug := viper.GetBool("debug")
	if err := initLogger(debug); err != nil {
		return fmt.Errorf("error initializing global logger: %w", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer func() { signal.Stop(sig); close(sig) }()

	app, err := build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("error building queue subsystem: %w", err)
	}
	defer app.Close()

	go func() {
		s, ok := <-sig
		if !ok {
			return
		}
		zap.S().Infof("Received %s signal", s)
		app.Registry.BroadcastAll(&component.Text{
			Content: "Gate proxy is shutting down...\nPlease reconnect in a moment!",
			S:       component.Style{Color: color.Red}})
		cancel()
	}()

	app.Run(ctx)
	return nil
}

func initLogger(debug bool) (err error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(l)
	return nil
}

// App holds every constructed component for one running proxy
// instance, so Run and tests can drive it without re-deriving wiring.
type App struct {
	Config   config.Config
	Coord    *cluster.Coordinator
	Store    *queue.Store
	Registry *proxy.Registry
	Engine   *engine.Engine
	Prober   *prober.Prober
	Feedback *feedback.Feedback
	Surface  *control.Surface
	Timeouts *control.DisconnectTimeouts
	Admin    *admin.Server

	selfID         string
	masterEligible []string
	closeCoord     func() error
	closeWatch     func() error
}

func build(ctx context.Context, cfg config.Config) (*App, error) {
	selfID := firstNonEmpty(viper.GetString("proxy_id"), "proxy-1")

	coord, closeCoord, err := buildCoordinator(selfID, cfg)
	if err != nil {
		return nil, err
	}

	store := queue.NewStore(cfg.AllowMultiQueue, cfg.AllowPausedQueueJoining)
	store.SetNoQueueServers(cfg.NoQueueServers)
	registry := proxy.NewRegistry()

	resolver := make(backend.StaticResolver, len(cfg.Servers))
	for name, addr := range cfg.Servers {
		resolver[name] = addr
	}
	pinger := &backend.TCPPinger{Resolver: resolver}
	connector := &backend.TCPConnector{Resolver: resolver, Timeout: 5 * time.Second}

	responder, err := cluster.NewResponder(ctx, coord, connector)
	if err != nil {
		return nil, fmt.Errorf("starting send responder: %w", err)
	}
	responder.Local = registry
	sender, err := cluster.NewSender(ctx, coord)
	if err != nil {
		return nil, fmt.Errorf("starting sender: %w", err)
	}

	eng := &engine.Engine{
		Store:          store,
		Sender:         sender,
		Offline:        &engine.ClusterOfflineChecker{Local: registry, Coord: coord},
		Notify:         &engine.ChatNotifier{Local: registry, Coord: coord},
		Placement:      registry,
		Coord:          coord,
		MaxSendRetries: cfg.MaxSendRetries,
	}

	caps := map[string]int{}
	for server, threshold := range cfg.PlayerCaps {
		caps[server] = threshold
	}
	prb := &prober.Prober{
		Store:       store,
		Pinger:      pinger,
		Counter:     localCounter{registry},
		Drainer:     eng,
		Coord:       coord,
		Caps:        caps,
		PingTimeout: 2 * time.Second,
		QueueDelay:  cfg.QueueDelay(),
	}

	fb := feedback.New(store, registry, coord, cfg.SendDelay(), feedback.DefaultTemplates)

	surface := &control.Surface{
		Store:     store,
		Broadcast: registry,
		Lister:    registry,
		Coord:     coord,
	}

	timeouts := control.NewDisconnectTimeouts(store, schedule.NewDelayed())

	// Re-applies max_send_retries, the feedback ETA unit, queue_delay,
	// no_queue_servers and the server address map. It does not re-apply
	// master_proxy_ids, and the running tickers keep their original
	// periods.
	surface.AddReloadable(func() error {
		reloaded, err := config.Load("")
		if err != nil {
			return err
		}
		eng.MaxSendRetries = reloaded.MaxSendRetries
		fb.SendDelay = reloaded.SendDelay()
		prb.QueueDelay = reloaded.QueueDelay()
		store.SetNoQueueServers(reloaded.NoQueueServers)
		for name := range resolver {
			delete(resolver, name)
		}
		for name, addr := range reloaded.Servers {
			resolver[name] = addr
		}
		return nil
	})

	adminSrv := &admin.Server{Surface: surface, Addr: firstNonEmpty(viper.GetString("admin_addr"), ":9100")}

	// Hot-reload: if the loaded config came from a file, watch it and
	// re-run every registered reload hook on change. This watch is the
	// only caller of surface.ReloadConfig in this process.
	var closeWatch func() error
	if path := viper.ConfigFileUsed(); path != "" {
		closeWatch, err = config.WatchReload(path, func(_ config.Config) {
			if err := surface.ReloadConfig(); err != nil {
				zap.L().Warn("config reload failed", zap.Error(err))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("watching config file: %w", err)
		}
	}

	return &App{
		Config:         cfg,
		Coord:          coord,
		Store:          store,
		Registry:       registry,
		Engine:         eng,
		Prober:         prb,
		Feedback:       fb,
		Surface:        surface,
		Timeouts:       timeouts,
		Admin:          adminSrv,
		selfID:         selfID,
		masterEligible: cfg.MasterProxyIDs,
		closeCoord:     closeCoord,
		closeWatch:     closeWatch,
	}, nil
}

func buildCoordinator(selfID string, cfg config.Config) (*cluster.Coordinator, func() error, error) {
	if !cfg.Redis.Enabled {
		return cluster.NewSingleNode(selfID), func() error { return nil }, nil
	}
	coord, err := cluster.NewRedis(selfID, &redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, "@every 1m")
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return nil }
	if closer, ok := coord.Pub.(interface{ Close() error }); ok {
		closeFn = closer.Close
	}
	return coord, closeFn, nil
}

// Run fans out the send/probe/message ticks and blocks until ctx is
// canceled.
func (a *App) Run(ctx context.Context) {
	go func() {
		if err := a.Admin.ListenAndServe(ctx); err != nil {
			zap.L().Warn("admin http server stopped", zap.Error(err))
		}
	}()

	go schedule.Ticker(ctx, a.Config.BackendPingInterval(), func(ctx context.Context) {
		a.Prober.Tick(ctx)
	})
	go schedule.Ticker(ctx, a.Config.MessageDelay(), func(ctx context.Context) {
		a.Feedback.Tick(ctx)
	})
	// Renew this proxy's liveness entry well inside its TTL so the
	// coordinator's peer set, and with it master election, includes it.
	go schedule.Ticker(ctx, 5*time.Second, func(ctx context.Context) {
		if err := a.Coord.Peers.Heartbeat(ctx, a.selfID, 15*time.Second); err != nil {
			zap.L().Warn("coordinator heartbeat failed", zap.Error(err))
		}
	})
	schedule.Ticker(ctx, a.Config.SendDelay(), func(ctx context.Context) {
		a.Timeouts.Scheduler.Poll(time.Now())
		a.tickEngine(ctx)
	})
}

// tickEngine fans the send decision out across every locally mastered
// queue in parallel (spec §2 "Queue Engine... running only on the
// elected master for each queue").
func (a *App) tickEngine(ctx context.Context) {
	live, err := cluster.LivePeers(ctx, a.Coord)
	if err != nil {
		zap.L().Warn("resolving live peers failed, skipping send tick", zap.Error(err))
		return
	}

	eligible := a.masterEligible
	if len(eligible) == 0 {
		eligible = []string{a.selfID}
		live = map[string]struct{}{a.selfID: {}}
	}

	// Tick only kicks off each send asynchronously (engine.send spawns a
	// detached goroutine for the actual round trip); it does not block
	// on that goroutine's completion. So the context handed to Tick must
	// outlive this function, not errgroup's derived context, which is
	// canceled the moment g.Wait() returns below — using it here would
	// cancel every in-flight Sender.Send almost immediately.
	g, _ := errgroup.WithContext(ctx)
	for _, server := range a.Store.Servers() {
		server := server
		if !cluster.IsMaster(a.selfID, eligible, live) {
			continue
		}
		metrics.MasterElections.Inc()
		g.Go(func() error {
			a.Engine.Tick(ctx, server)
			return nil
		})
	}
	_ = g.Wait()
}

// Close releases the coordinator's resources (e.g. the Redis client
// and its janitor).
func (a *App) Close() {
	if a.closeWatch != nil {
		_ = a.closeWatch()
	}
	if a.closeCoord != nil {
		_ = a.closeCoord()
	}
}

type localCounter struct{ r *proxy.Registry }

func (c localCounter) PlayerCount(_ context.Context, server string) (int, error) {
	return c.r.CountOn(server), nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
