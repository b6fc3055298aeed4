package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string
	LogLevel   string

	KVBackend     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	DatabaseDSN   string

	VisionURL     string
	VisionModel   string
	VisionTimeout time.Duration
	VisionRPM     int
	VisionBurst   int

	AutoStart          bool
	HoldThreshold      time.Duration
	FirstFrameDelay    time.Duration
	PostNarrationDelay time.Duration
	BusyRetryDelay     time.Duration
	ListenRetryDelay   time.Duration
	ErrorRetryDelay    time.Duration
	ResumeDelay        time.Duration
	MaxUtterance       time.Duration
	MaxTags            int

	FrameCaptureRate time.Duration
	FrameMaxAge      time.Duration
	FrameWidth       int
	FrameQuality     int

	SpeechRate      float64
	RecognitionLang string

	DeviceRequestsPerSecond float64
	DeviceBurst             int
}

// LoadConfig reads the environment, after an optional .env file.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		KVBackend:     getEnv("KV_BACKEND", "redis"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "sightline:"),
		DatabaseDSN:   getEnv("DATABASE_DSN", ""),

		VisionURL:     getEnv("VISION_URL", "http://localhost:11434"),
		VisionModel:   getEnv("VISION_MODEL", "llava"),
		VisionTimeout: getEnvDuration("VISION_TIMEOUT", 30*time.Second),
		VisionRPM:     getEnvInt("VISION_RPM", 60),
		VisionBurst:   getEnvInt("VISION_BURST", 2),

		AutoStart:          getEnvBool("AUTO_START", false),
		HoldThreshold:      getEnvDuration("HOLD_THRESHOLD", 500*time.Millisecond),
		FirstFrameDelay:    getEnvDuration("FIRST_FRAME_DELAY", time.Second),
		PostNarrationDelay: getEnvDuration("POST_NARRATION_DELAY", 4*time.Second),
		BusyRetryDelay:     getEnvDuration("BUSY_RETRY_DELAY", 500*time.Millisecond),
		ListenRetryDelay:   getEnvDuration("LISTEN_RETRY_DELAY", 500*time.Millisecond),
		ErrorRetryDelay:    getEnvDuration("ERROR_RETRY_DELAY", time.Second),
		ResumeDelay:        getEnvDuration("RESUME_DELAY", 2*time.Second),
		MaxUtterance:       getEnvDuration("MAX_UTTERANCE", 30*time.Second),
		MaxTags:            getEnvInt("MAX_TAGS", 2),

		FrameCaptureRate: getEnvDuration("FRAME_CAPTURE_RATE", 250*time.Millisecond),
		FrameMaxAge:      getEnvDuration("FRAME_MAX_AGE", 10*time.Second),
		FrameWidth:       getEnvInt("FRAME_WIDTH", 512),
		FrameQuality:     getEnvInt("FRAME_QUALITY", 70),

		SpeechRate:      getEnvFloat("SPEECH_RATE", 1.1),
		RecognitionLang: getEnv("RECOGNITION_LANG", "en-US"),

		DeviceRequestsPerSecond: getEnvFloat("DEVICE_RPS", 10),
		DeviceBurst:             getEnvInt("DEVICE_BURST", 20),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
