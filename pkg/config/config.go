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

// Package config holds the queue subsystem's recognized options
// (spec §6) and loading/validation/hot-reload, following the teacher's
// viper-based cmd/gate/gate.go wiring.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Config is the queue subsystem's recognized option set (spec §6).
type Config struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	SendDelaySeconds        float64        `mapstructure:"send_delay" yaml:"send_delay"`
	MessageDelaySeconds     float64        `mapstructure:"message_delay" yaml:"message_delay"`
	BackendPingIntervalSecs float64        `mapstructure:"backend_ping_interval" yaml:"backend_ping_interval"`
	QueueDelaySeconds       float64        `mapstructure:"queue_delay" yaml:"queue_delay"`
	MaxSendRetries          int            `mapstructure:"max_send_retries" yaml:"max_send_retries"`
	AllowMultiQueue         bool           `mapstructure:"allow_multi_queue" yaml:"allow_multi_queue"`
	AllowPausedQueueJoining bool           `mapstructure:"allow_paused_queue_joining" yaml:"allow_paused_queue_joining"`
	ForwardKickReason       bool           `mapstructure:"forward_kick_reason" yaml:"forward_kick_reason"`
	NoQueueServers          []string       `mapstructure:"no_queue_servers" yaml:"no_queue_servers"`
	QueueAliases            []string       `mapstructure:"queue_aliases" yaml:"queue_aliases"`
	LeaveQueueAliases       []string       `mapstructure:"leavequeue_aliases" yaml:"leavequeue_aliases"`
	QueueAdminAliases       []string       `mapstructure:"queueadmin_aliases" yaml:"queueadmin_aliases"`
	MasterProxyIDs          []string       `mapstructure:"master_proxy_ids" yaml:"master_proxy_ids"`
	PlayerCaps              map[string]int `mapstructure:"player_caps" yaml:"player_caps"`

	// Servers maps a configured backend name to its dial address
	// (host:port), resolved by pkg/backend.StaticResolver for every
	// probe and send.
	Servers map[string]string `mapstructure:"servers" yaml:"servers"`

	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig configures the Redis-backed Cluster Coordinator.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// SendDelay is SendDelaySeconds as a time.Duration.
func (c *Config) SendDelay() time.Duration { return floatSeconds(c.SendDelaySeconds) }

// MessageDelay is MessageDelaySeconds as a time.Duration.
func (c *Config) MessageDelay() time.Duration { return floatSeconds(c.MessageDelaySeconds) }

// BackendPingInterval is BackendPingIntervalSecs as a time.Duration.
func (c *Config) BackendPingInterval() time.Duration { return floatSeconds(c.BackendPingIntervalSecs) }

// QueueDelay is QueueDelaySeconds as a time.Duration.
func (c *Config) QueueDelay() time.Duration { return floatSeconds(c.QueueDelaySeconds) }

func floatSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Default returns a Config populated with sane defaults, used both to
// seed viper and to generate a starter config file.
func Default() Config {
	return Config{
		Enabled:                 true,
		SendDelaySeconds:        1,
		MessageDelaySeconds:     1,
		BackendPingIntervalSecs: 5,
		QueueDelaySeconds:       5,
		MaxSendRetries:          3,
		AllowMultiQueue:         false,
		AllowPausedQueueJoining: true,
		ForwardKickReason:       true,
		QueueAliases:            []string{"queue", "q"},
		LeaveQueueAliases:       []string{"leavequeue", "leaveq"},
		QueueAdminAliases:       []string{"queueadmin", "qa"},
		PlayerCaps:              map[string]int{},
		Servers:                 map[string]string{},
	}
}

// Validate rejects a Config with contradictory or out-of-range values.
func Validate(c *Config) error {
	if !c.Enabled {
		return nil
	}
	if c.SendDelaySeconds <= 0 {
		return fmt.Errorf("send_delay must be > 0")
	}
	if c.MessageDelaySeconds <= 0 {
		return fmt.Errorf("message_delay must be > 0")
	}
	if c.BackendPingIntervalSecs <= 0 {
		return fmt.Errorf("backend_ping_interval must be > 0")
	}
	if c.QueueDelaySeconds < 0 {
		return fmt.Errorf("queue_delay must be >= 0")
	}
	if c.MaxSendRetries < 1 {
		return fmt.Errorf("max_send_retries must be >= 1")
	}
	return nil
}

// Load reads and unmarshals the configuration from path (or the
// already-configured viper search paths, if path is empty).
func Load(path string) (Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}
	cfg := Default()
	if err := viper.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return cfg, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// WriteDefault writes Default() to path in YAML, refusing to overwrite
// an existing file. Used by `gate init` to seed a starter config the
// operator then edits by hand, rather than requiring every option be
// passed as a flag.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	b, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshalling default config: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// WatchReload starts an fsnotify watch on the config file, invoking
// onReload with a freshly loaded/validated Config whenever it changes
// on disk (spec §4.7 reload_config). The returned stop func tears down
// the watch.
func WatchReload(path string, onReload func(Config)) (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					zap.L().Warn("config reload failed, keeping previous config", zap.Error(err))
					continue
				}
				onReload(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zap.L().Warn("config watcher error", zap.Error(err))
			}
		}
	}()

	return watcher.Close, nil
}
