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
package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang/groupcache/lru"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	peerKeyPrefix   = "gate:queue:peer:"
	snapshotPrefix  = "gate:queue:snapshot:"
	playerKeyPrefix = "gate:queue:player:"
)

// RedisCoordinator is the concrete, non-trivial Coordinator backend:
// Redis PUBLISH/SUBSCRIBE for the spec §4.5 topics, TTL'd SET/GET for
// peer liveness, untouched-TTL SET/GET for queue snapshots and
// player_info (janitor-swept instead, see runJanitor), and a bounded
// groupcache/lru front-cache for player_info lookups so the send tick
// doesn't round trip to Redis for a player it just resolved.
type RedisCoordinator struct {
	client *redis.Client
	janitor *cron.Cron

	playerCache *lru.Cache
}

// NewRedis connects a RedisCoordinator and wires it into a Coordinator.
// janitorSpec is a standard cron expression (e.g. "@every 1m") driving
// housekeeping: evicting player_info entries (Redis key and local LRU
// front-cache alike) asserted by a proxy that is no longer live. Peer
// liveness keys already expire natively via TTL (Heartbeat), but
// player_info is written with no TTL (spec §4.5 expects it readable
// for the lifetime of a player's session), so a proxy that crashes
// without clearing its players' entries would otherwise leave them
// stuck forever.
func NewRedis(selfID string, opts *redis.Options, janitorSpec string) (*Coordinator, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	rc := &RedisCoordinator{
		client:      client,
		playerCache: lru.New(4096),
	}

	rc.janitor = cron.New()
	if janitorSpec == "" {
		janitorSpec = "@every 1m"
	}
	if _, err := rc.janitor.AddFunc(janitorSpec, rc.runJanitor); err != nil {
		return nil, fmt.Errorf("scheduling redis coordinator janitor: %w", err)
	}
	rc.janitor.Start()

	return &Coordinator{ID: selfID, Pub: rc, Peers: rc, Snap: rc}, nil
}

func (r *RedisCoordinator) runJanitor() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	live, err := r.Peers(ctx)
	if err != nil {
		zap.L().Warn("redis coordinator janitor: resolving live peers failed", zap.Error(err))
		return
	}

	pruned := 0
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, playerKeyPrefix+"*", 200).Result()
		if err != nil {
			zap.L().Warn("redis coordinator janitor: scanning player keys failed", zap.Error(err))
			return
		}
		for _, key := range keys {
			raw, err := r.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}
			var info PlayerInfo
			if err := json.Unmarshal(raw, &info); err != nil {
				continue
			}
			if _, ok := live[info.ProxyID]; ok {
				continue
			}
			if playerID, err := uuid.Parse(key[len(playerKeyPrefix):]); err == nil {
				r.playerCache.Remove(playerID)
			}
			if err := r.client.Del(ctx, key).Err(); err == nil {
				pruned++
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	zap.L().Debug("redis coordinator janitor tick",
		zap.Int("pruned_player_keys", pruned), zap.Int("cached_players", r.playerCache.Len()))
}

// Close stops the janitor and the underlying Redis client.
func (r *RedisCoordinator) Close() error {
	r.janitor.Stop()
	return r.client.Close()
}

func (r *RedisCoordinator) Publish(ctx context.Context, topic string, payload []byte) error {
	return r.client.Publish(ctx, topic, payload).Err()
}

func (r *RedisCoordinator) Subscribe(ctx context.Context, topic string, handler Handler) error {
	sub := r.client.Subscribe(ctx, topic)
	ch := sub.Channel()
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				zap.S().Errorf("recovered from panic in redis subscription %s: %v", topic, rec)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler(ctx, []byte(msg.Payload))
			}
		}
	}()
	return nil
}

func (r *RedisCoordinator) Heartbeat(ctx context.Context, selfID string, ttl time.Duration) error {
	return r.client.Set(ctx, peerKeyPrefix+selfID, "1", ttl).Err()
}

func (r *RedisCoordinator) Peers(ctx context.Context) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, peerKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			out[k[len(peerKeyPrefix):]] = struct{}{}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

func (r *RedisCoordinator) PlayerInfo(ctx context.Context, playerID uuid.UUID) (PlayerInfo, bool, error) {
	if v, ok := r.playerCache.Get(playerID); ok {
		return v.(PlayerInfo), true, nil
	}

	raw, err := r.client.Get(ctx, playerKeyPrefix+playerID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return PlayerInfo{}, false, nil
	}
	if err != nil {
		return PlayerInfo{}, false, err
	}
	var info PlayerInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return PlayerInfo{}, false, err
	}
	r.playerCache.Add(playerID, info)
	return info, true, nil
}

func (r *RedisCoordinator) SetPlayerInfo(ctx context.Context, playerID uuid.UUID, info PlayerInfo, present bool) error {
	key := playerKeyPrefix + playerID.String()
	if !present {
		r.playerCache.Remove(playerID)
		return r.client.Del(ctx, key).Err()
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	r.playerCache.Add(playerID, info)
	return r.client.Set(ctx, key, raw, 0).Err()
}

func (r *RedisCoordinator) SnapshotPut(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, snapshotPrefix+key, value, 0).Err()
}

func (r *RedisCoordinator) SnapshotGet(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.client.Get(ctx, snapshotPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}
