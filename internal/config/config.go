package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const appDirName = "reed-tpse"

// SerialConfig 串口连接配置
type SerialConfig struct {
	// Port 设备节点路径，空表示自动探测 /dev/ttyACM*
	Port string `mapstructure:"port"`
}

// DisplayConfig 显示默认值
type DisplayConfig struct {
	Brightness int    `mapstructure:"brightness"`
	Ratio      string `mapstructure:"ratio"`
}

// KeepaliveConfig 保活配置
type KeepaliveConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	// ReconnectPerMinute 握手失败后每分钟允许的重连次数（令牌桶稳定速率）
	ReconnectPerMinute int `mapstructure:"reconnectPerMinute"`
}

// HTTPConfig daemon 状态 HTTP 服务配置
type HTTPConfig struct {
	Enable       bool          `mapstructure:"enable"`
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Path string `mapstructure:"path"`
}

// Config 顶层配置结构
type Config struct {
	Serial    SerialConfig    `mapstructure:"serial"`
	Display   DisplayConfig   `mapstructure:"display"`
	Keepalive KeepaliveConfig `mapstructure:"keepalive"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ConfigDir 配置目录，遵循XDG约定
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".config", appDirName)
	}
	return filepath.Join(".config", appDirName)
}

// StateDir 状态目录，遵循XDG约定
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "state", appDirName)
	}
	return filepath.Join(".local", "state", appDirName)
}

// Load 从 YAML 配置文件与环境变量加载配置
// path 为空时读取 <ConfigDir>/config.yaml；文件缺失不视为错误，
// 依赖默认值与 REED_ 前缀的环境变量覆盖。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(ConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// 环境变量覆盖：前缀 REED_，点号替换为下划线
	v.SetEnvPrefix("REED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 默认路径下允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "")

	v.SetDefault("display.brightness", 100)
	v.SetDefault("display.ratio", "2:1")

	v.SetDefault("keepalive.interval", "10s")
	v.SetDefault("keepalive.reconnectPerMinute", 6)

	v.SetDefault("http.enable", false)
	v.SetDefault("http.addr", "127.0.0.1:9310")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 20)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 14)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.path", "/metrics")
}
