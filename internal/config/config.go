package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"wisefido-posture/internal/analyzer"
	"wisefido-posture/internal/classifier"
	"wisefido-posture/internal/roi"

	"github.com/joho/godotenv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// Config 姿态服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 姿态服务特定配置
	Posture struct {
		Topics struct {
			Frames string // 订阅主题，如 "pose/+/frames"
		}

		Camera struct {
			ID          string
			FrameWidth  int
			FrameHeight int
			DefaultROI  roi.Region
		}

		Classifier struct {
			WindowSize          int     // 多数投票窗口大小，默认 5
			VisibilityThreshold float64 // 平均可见度低于此值视为不确定，默认 0.5
		}

		Analyzer struct {
			TiltWindow          time.Duration
			TiltDuration        time.Duration
			TiltThreshold       float64
			MotionlessWindow    time.Duration
			MotionlessDuration  time.Duration
			MotionThreshold     float64
			FallTransitionTime  time.Duration
			IrregularThreshold  int
			ProneDepthThreshold float64
			Cooldown            time.Duration
		}

		Cache struct {
			StateKeyPrefix string        // 主体状态缓存键前缀，如 "posture:subject:"
			StateTTL       time.Duration // 状态 TTL，默认 30秒
			EventsStream   string        // 事件流，如 "posture:events:stream"
		}

		ROIRefreshInterval time.Duration // 关注区域刷新间隔，默认 10秒
		SubjectIdleTimeout time.Duration // 主体无帧超时，默认 10秒
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（.env 可选，环境变量优先）
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "owlrd")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = 10
	cfg.Database.MaxIdle = 5

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-posture")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	p := &cfg.Posture
	p.Topics.Frames = getEnv("MQTT_TOPIC_FRAMES", "pose/+/frames")

	p.Camera.ID = getEnv("CAMERA_ID", "camera-1")
	p.Camera.FrameWidth = getEnvInt("FRAME_WIDTH", 640)
	p.Camera.FrameHeight = getEnvInt("FRAME_HEIGHT", 480)
	defaultROI, err := parseRegion(getEnv("DEFAULT_ROI", "100,200,500,600"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_ROI: %w", err)
	}
	p.Camera.DefaultROI = defaultROI

	p.Classifier.WindowSize = getEnvInt("CLASSIFIER_WINDOW_SIZE", 5)
	p.Classifier.VisibilityThreshold = getEnvFloat("CLASSIFIER_VISIBILITY_THRESHOLD", 0.5)

	def := analyzer.DefaultConfig()
	p.Analyzer.TiltWindow = getEnvDuration("TILT_WINDOW", def.TiltWindow)
	p.Analyzer.TiltDuration = getEnvDuration("TILT_DURATION", def.TiltDuration)
	p.Analyzer.TiltThreshold = getEnvFloat("TILT_THRESHOLD", def.TiltThreshold)
	p.Analyzer.MotionlessWindow = getEnvDuration("MOTIONLESS_WINDOW", def.MotionlessWindow)
	p.Analyzer.MotionlessDuration = getEnvDuration("MOTIONLESS_DURATION", def.MotionlessDuration)
	p.Analyzer.MotionThreshold = getEnvFloat("MOTION_THRESHOLD", def.MotionThreshold)
	p.Analyzer.FallTransitionTime = getEnvDuration("FALL_TRANSITION_TIME", def.FallTransitionTime)
	p.Analyzer.IrregularThreshold = getEnvInt("IRREGULAR_THRESHOLD", def.IrregularThreshold)
	p.Analyzer.ProneDepthThreshold = getEnvFloat("PRONE_DEPTH_THRESHOLD", def.ProneDepthThreshold)
	p.Analyzer.Cooldown = getEnvDuration("EVENT_COOLDOWN", def.Cooldown)

	p.Cache.StateKeyPrefix = getEnv("CACHE_STATE_PREFIX", "posture:subject:")
	p.Cache.StateTTL = getEnvDuration("CACHE_STATE_TTL", 30*time.Second)
	p.Cache.EventsStream = getEnv("EVENTS_STREAM", "posture:events:stream")

	p.ROIRefreshInterval = getEnvDuration("ROI_REFRESH_INTERVAL", 10*time.Second)
	p.SubjectIdleTimeout = getEnvDuration("SUBJECT_IDLE_TIMEOUT", 10*time.Second)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate 时长类配置必须为正（用作 ticker 间隔和窗口长度）
func (c *Config) validate() error {
	p := c.Posture
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"TILT_WINDOW", p.Analyzer.TiltWindow},
		{"TILT_DURATION", p.Analyzer.TiltDuration},
		{"MOTIONLESS_WINDOW", p.Analyzer.MotionlessWindow},
		{"MOTIONLESS_DURATION", p.Analyzer.MotionlessDuration},
		{"FALL_TRANSITION_TIME", p.Analyzer.FallTransitionTime},
		{"EVENT_COOLDOWN", p.Analyzer.Cooldown},
		{"CACHE_STATE_TTL", p.Cache.StateTTL},
		{"ROI_REFRESH_INTERVAL", p.ROIRefreshInterval},
		{"SUBJECT_IDLE_TIMEOUT", p.SubjectIdleTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}

	if p.Classifier.WindowSize <= 0 {
		return fmt.Errorf("CLASSIFIER_WINDOW_SIZE must be positive, got %d", p.Classifier.WindowSize)
	}
	if p.Camera.FrameWidth <= 0 || p.Camera.FrameHeight <= 0 {
		return fmt.Errorf("FRAME_WIDTH and FRAME_HEIGHT must be positive")
	}
	return nil
}

// AnalyzerConfig 转换为分析器配置
func (c *Config) AnalyzerConfig() analyzer.Config {
	a := c.Posture.Analyzer
	return analyzer.Config{
		TiltWindow:          a.TiltWindow,
		TiltDuration:        a.TiltDuration,
		TiltThreshold:       a.TiltThreshold,
		MotionlessWindow:    a.MotionlessWindow,
		MotionlessDuration:  a.MotionlessDuration,
		MotionThreshold:     a.MotionThreshold,
		FallTransitionTime:  a.FallTransitionTime,
		IrregularThreshold:  a.IrregularThreshold,
		ProneDepthThreshold: a.ProneDepthThreshold,
		Cooldown:            a.Cooldown,
		FrameWidth:          c.Posture.Camera.FrameWidth,
		FrameHeight:         c.Posture.Camera.FrameHeight,
	}
}

// ClassifierThresholds 规则分类器阈值（目前不开放环境变量覆盖）
func (c *Config) ClassifierThresholds() classifier.Thresholds {
	return classifier.DefaultThresholds()
}

// parseRegion 解析 "x1,y1,x2,y2"
func parseRegion(s string) (roi.Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return roi.Region{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return roi.Region{}, fmt.Errorf("parse %q: %w", p, err)
		}
		v[i] = n
	}
	return roi.Region{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration 支持 "10s" 形式，纯数字按秒处理
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}
