package config

import (
	"errors"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config 客户端配置
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Redis  RedisConfig  `yaml:"redis"`
	Bots   BotsConfig   `yaml:"bots"`
}

// ServerConfig 游戏服务器连接配置
type ServerConfig struct {
	URL              string `yaml:"url" env:"BONK_SERVER_URL"`                     // ws(s)://host[:port]，连接地址为 <url>/ws/<identity>
	HandshakeTimeout int    `yaml:"handshake_timeout" env:"BONK_HANDSHAKE_TIMEOUT"` // 握手超时（秒）
	CloseTimeout     int    `yaml:"close_timeout" env:"BONK_CLOSE_TIMEOUT"`         // 等待关闭确认的上限（秒）
	PongWait         int    `yaml:"pong_wait"`                                      // 读超时（秒）
	WriteWait        int    `yaml:"write_wait"`                                     // 写超时（秒）
}

// ClientConfig 本地客户端行为
type ClientConfig struct {
	Identity      string `yaml:"identity" env:"BONK_IDENTITY"`
	AutoRespond   bool   `yaml:"auto_respond" env:"BONK_AUTO_RESPOND"`     // 被瞄准时自动出防御牌
	DefensiveCard string `yaml:"defensive_card" env:"BONK_DEFENSIVE_CARD"` // 默认 Missed
	SkipResume    bool   `yaml:"skip_resume" env:"BONK_SKIP_RESUME"`       // 连接后不发送 DataRequest
	Sound         bool   `yaml:"sound" env:"BONK_SOUND"`
	Debug         bool   `yaml:"debug" env:"BONK_DEBUG"`
}

// RedisConfig Redis 配置（快照与日志，可选）
type RedisConfig struct {
	Enabled     bool   `yaml:"enabled" env:"BONK_REDIS_ENABLED"`
	Addr        string `yaml:"addr" env:"BONK_REDIS_ADDR"`
	Password    string `yaml:"password" env:"BONK_REDIS_PASSWORD"`
	DB          int    `yaml:"db" env:"BONK_REDIS_DB"`
	SnapshotTTL int    `yaml:"snapshot_ttl"` // 快照过期时间（分钟）
}

// BotsConfig 机器人测试编排配置
type BotsConfig struct {
	Count      int    `yaml:"count" env:"BONK_BOTS_COUNT"`
	Prefix     string `yaml:"prefix" env:"BONK_BOTS_PREFIX"`
	UUIDNames  bool   `yaml:"uuid_names"`                              // <prefix>-<uuid8> 代替 user1..N
	StatusAddr string `yaml:"status_addr" env:"BONK_BOTS_STATUS_ADDR"` // 为空则不开启 /status
	Turns      int    `yaml:"turns" env:"BONK_BOTS_TURNS"`             // 总共进行的回合数
	TurnDelay  int    `yaml:"turn_delay"`                              // 出牌后结束回合前的等待（毫秒）
}

// HandshakeTimeoutDuration 返回握手超时时长
func (c *ServerConfig) HandshakeTimeoutDuration() time.Duration {
	return time.Duration(c.HandshakeTimeout) * time.Second
}

// CloseTimeoutDuration 返回关闭确认等待时长
func (c *ServerConfig) CloseTimeoutDuration() time.Duration {
	return time.Duration(c.CloseTimeout) * time.Second
}

// PongWaitDuration 返回读超时时长
func (c *ServerConfig) PongWaitDuration() time.Duration {
	return time.Duration(c.PongWait) * time.Second
}

// WriteWaitDuration 返回写超时时长
func (c *ServerConfig) WriteWaitDuration() time.Duration {
	return time.Duration(c.WriteWait) * time.Second
}

// SnapshotTTLDuration 返回快照过期时长
func (c *RedisConfig) SnapshotTTLDuration() time.Duration {
	return time.Duration(c.SnapshotTTL) * time.Minute
}

// TurnDelayDuration 返回回合结束前的等待时长
func (c *BotsConfig) TurnDelayDuration() time.Duration {
	return time.Duration(c.TurnDelay) * time.Millisecond
}

// Load 加载配置文件，环境变量优先于文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// Default 返回默认配置（叠加环境变量）
func Default() *Config {
	cfg := &Config{}
	// 默认配置下环境变量格式错误只忽略
	_ = ApplyEnv(cfg)
	cfg.setDefaults()
	return cfg
}

// ApplyEnv 用 BONK_* 环境变量覆盖配置，未设置的字段保持不变
func ApplyEnv(cfg *Config) error {
	err := envdecode.Decode(cfg)
	if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil
	}
	return err
}

// setDefaults 设置默认值
func (cfg *Config) setDefaults() {
	if cfg.Server.URL == "" {
		cfg.Server.URL = "ws://localhost:8000"
	}
	if cfg.Server.HandshakeTimeout == 0 {
		cfg.Server.HandshakeTimeout = 10
	}
	if cfg.Server.CloseTimeout == 0 {
		cfg.Server.CloseTimeout = 5
	}
	if cfg.Server.PongWait == 0 {
		cfg.Server.PongWait = 60
	}
	if cfg.Server.WriteWait == 0 {
		cfg.Server.WriteWait = 10
	}
	if cfg.Client.DefensiveCard == "" {
		cfg.Client.DefensiveCard = "Missed"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.SnapshotTTL == 0 {
		cfg.Redis.SnapshotTTL = 120
	}
	if cfg.Bots.Count == 0 {
		cfg.Bots.Count = 4
	}
	if cfg.Bots.Prefix == "" {
		cfg.Bots.Prefix = "user"
	}
	if cfg.Bots.Turns == 0 {
		cfg.Bots.Turns = 1
	}
	if cfg.Bots.TurnDelay == 0 {
		cfg.Bots.TurnDelay = 500
	}
}
