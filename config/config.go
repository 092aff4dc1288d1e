package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ListenAddr string
	LogLevel   string
	LogFile    string

	// 账户存储
	StoreDriver     string // file, redis, gorm, minio, memory
	StoreFile       string // file driver: path of the JSON blob
	WatchStoreFile  bool   // reload the account store when the file changes on disk
	UsersKey        string
	SessionKey      string
	JWTSecret       string
	TokenTTLMinutes int

	// 播放器
	FFprobePath   string
	UseFFprobe    bool
	TickMillis    int
	DefaultVolume float64
	CatalogFile   string // optional JSON fixture for the catalog

	// Database (gorm driver)
	DBDriver   string // mysql or sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO配置
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	PresignMinutes int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	dataDir := getEnv("DATA_DIR", "data")

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    getEnv("LOG_FILE", filepath.Join("logs", "bpsb.log")),

		StoreDriver:     getEnv("STORE_DRIVER", "file"),
		StoreFile:       getEnv("STORE_FILE", filepath.Join(dataDir, "accounts.json")),
		WatchStoreFile:  getEnvBool("STORE_WATCH", true),
		UsersKey:        getEnv("ACCOUNT_USERS_KEY", "bpsb-users"),
		SessionKey:      getEnv("ACCOUNT_SESSION_KEY", "bpsb-current"),
		JWTSecret:       os.Getenv("JWT_SECRET"), // 不提供默认值，为空时启动随机生成
		TokenTTLMinutes: getEnvInt("TOKEN_TTL_MINUTES", 24*60),

		FFprobePath:   getEnv("FFPROBE_PATH", "ffprobe"),
		UseFFprobe:    getEnvBool("USE_FFPROBE", false),
		TickMillis:    getEnvInt("PLAYER_TICK_MS", 250),
		DefaultVolume: getEnvFloat("PLAYER_VOLUME", 1),
		CatalogFile:   os.Getenv("CATALOG_FILE"),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "bpsb"),
		SQLitePath: getEnv("SQLITE_PATH", filepath.Join(dataDir, "bpsb.db")),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:       getEnvInt("REDIS_DB", 0),     // 默认使用0号数据库

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "bpsb"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		PresignMinutes: getEnvInt("MINIO_PRESIGN_MINUTES", 60),
	}
}
