package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Cfg 是一个全局变量，用于存储所有应用程序的配置
var Cfg *Config

// UnknownVote 是点数表中允许出现的非数值哨兵值。
// 含有该值的投票不参与平均分计算。
const UnknownVote = "?"

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Poker    PokerConfig    `mapstructure:"poker"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Address string     `mapstructure:"address"`
	Cors    CorsConfig `mapstructure:"cors"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了共享存储和本地缓存相关的配置
type DatabaseConfig struct {
	Redis  RedisConfig  `mapstructure:"redis"`
	Sqlite SqliteConfig `mapstructure:"sqlite"`
}

// RedisConfig 定义了Redis的配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SqliteConfig 定义了本地身份缓存数据库的配置
type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig 定义了身份校验相关的配置。
// AllowedDomain 是允许登录的邮箱域名后缀；AdminEmails 是拥有管理能力的邮箱列表。
type AuthConfig struct {
	AllowedDomain string   `mapstructure:"allowedDomain"`
	AdminEmails   []string `mapstructure:"adminEmails"`
}

// PokerConfig 定义了估点相关的配置
type PokerConfig struct {
	// Points 是允许的点数表，按顺序排列。
	// 条目可以是数值（如 "0.5"、"8"），也可以是唯一允许的非数值哨兵 "?"。
	Points []string `mapstructure:"points"`
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 它会在指定的路径中查找名为 config.yaml 的文件
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// 可以添加多个路径，Viper会按顺序查找
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// 允许通过环境变量覆盖配置，例如 SERVER_ADDRESS=:9090
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 默认使用常见的斐波那契式点数表
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.sqlite.path", "identity.db")
	v.SetDefault("poker.points", []string{"0", "1", "3", "5", "8", "13", "21", "34", "55", UnknownVote})

	if err := v.ReadInConfig(); err != nil {
		// 配置文件缺失时采用默认值，其他错误仍然致命
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validatePoints(cfg.Poker.Points); err != nil {
		return nil, err
	}

	Cfg = &cfg
	return Cfg, nil
}

// validatePoints 校验点数表：每个条目要么是有限数值，要么是哨兵"?"，且不允许重复。
func validatePoints(points []string) error {
	if len(points) == 0 {
		return fmt.Errorf("配置错误: 点数表不能为空")
	}
	seen := make(map[string]bool, len(points))
	for _, p := range points {
		if seen[p] {
			return fmt.Errorf("配置错误: 点数表中存在重复条目 %q", p)
		}
		seen[p] = true
		if p == UnknownVote {
			continue
		}
		if _, err := strconv.ParseFloat(p, 64); err != nil {
			return fmt.Errorf("配置错误: 点数表条目 %q 既不是数值也不是哨兵%q", p, UnknownVote)
		}
	}
	return nil
}
