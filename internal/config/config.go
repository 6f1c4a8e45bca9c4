// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Media     MediaConfig     `mapstructure:"media"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MediaConfig 存储媒体存储与处理相关的配置。
type MediaConfig struct {
	StorageRoot       string `mapstructure:"storage_root"`        // 磁盘上的存储根目录
	URLPrefix         string `mapstructure:"url_prefix"`          // 拼接存储相对 URL 时使用的前缀
	MaxImageBytes     int64  `mapstructure:"max_image_bytes"`     // 图像上传大小上限
	MaxVideoBytes     int64  `mapstructure:"max_video_bytes"`     // 视频上传大小上限
	MaxSVGBytes       int64  `mapstructure:"max_svg_bytes"`       // SVG 是标记文本，单独收紧上限
	MaxDimension      int    `mapstructure:"max_dimension"`       // 单边像素上限
	MaxPixels         int64  `mapstructure:"max_pixels"`          // 宽×高像素总数上限
	BoundingBox       int    `mapstructure:"bounding_box"`        // 转码输出的外接正方形边长
	JPEGQuality       int    `mapstructure:"jpeg_quality"`        // 规范格式的编码质量
	DefaultVideoCover string `mapstructure:"default_video_cover"` // 无封面视频的占位封面 URL
}

// RateLimitConfig 存储上传与访问限流相关的配置。
type RateLimitConfig struct {
	Store            string `mapstructure:"store"`              // memory 或 redis
	UploadUserLimit  int    `mapstructure:"upload_user_limit"`  // 单用户窗口内上传次数上限
	UploadIPLimit    int    `mapstructure:"upload_ip_limit"`    // 单来源地址窗口内上传次数上限
	UploadWindowMs   int64  `mapstructure:"upload_window_ms"`   // 上传限流窗口宽度
	VisitWindowMs    int64  `mapstructure:"visit_window_ms"`    // 访问去重窗口宽度
	VisitBurstLimit  int    `mapstructure:"visit_burst_limit"`  // 窗口内超过该次数的地址记为疑似滥用
	SweepIntervalSec int    `mapstructure:"sweep_interval_sec"` // 过期条目清理周期
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}
