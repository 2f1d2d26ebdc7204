package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Store   StoreConfig
	Admin   AdminConfig
	Log     LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	backend, err := loadBackendConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	admin, err := loadAdminConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Backend: backend,
		Store:   store,
		Admin:   admin,
		Log:     loadLogConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// BackendConfig 描述 RAG 后端的连接方式。
type BackendConfig struct {
	BaseURL    string
	AdminToken string
	TopK       int
}

func loadBackendConfig() (BackendConfig, error) {
	topK := 5
	if override, err := parseOptionalIntEnv("RAG_TOP_K"); err != nil {
		return BackendConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return BackendConfig{}, fmt.Errorf("invalid RAG_TOP_K value %d: must be at least 1", *override)
		}
		topK = *override
	}

	return BackendConfig{
		BaseURL:    strings.TrimRight(getEnvOrDefault("RAG_BACKEND_URL", "http://localhost:8000"), "/"),
		AdminToken: strings.TrimSpace(os.Getenv("RAG_ADMIN_TOKEN")),
		TopK:       topK,
	}, nil
}

// 会话存储的取值。
const (
	StoreLocal  = "local"
	StoreRemote = "remote"

	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// StoreConfig 描述会话与上传文件的存放位置。
type StoreConfig struct {
	Kind        string
	Driver      string
	Path        string
	DatabaseURL string
	BucketDir   string
}

func loadStoreConfig() (StoreConfig, error) {
	cfg := StoreConfig{
		Kind:        strings.ToLower(getEnvOrDefault("CHAT_STORE", StoreLocal)),
		Driver:      strings.ToLower(getEnvOrDefault("LOCAL_STORE_DRIVER", DriverFile)),
		Path:        getEnvOrDefault("LOCAL_STORE_PATH", "./data"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		BucketDir:   strings.TrimSpace(os.Getenv("UPLOAD_BUCKET_DIR")),
	}

	switch cfg.Kind {
	case StoreLocal:
		switch cfg.Driver {
		case DriverFile, DriverSQLite, DriverMemory:
		default:
			return StoreConfig{}, fmt.Errorf("invalid LOCAL_STORE_DRIVER value %q", cfg.Driver)
		}
	case StoreRemote:
		if cfg.DatabaseURL == "" {
			return StoreConfig{}, fmt.Errorf("DATABASE_URL is required when CHAT_STORE=%s", StoreRemote)
		}
	default:
		return StoreConfig{}, fmt.Errorf("invalid CHAT_STORE value %q", cfg.Kind)
	}
	return cfg, nil
}

// AdminConfig 描述管理台的缓存策略。
type AdminConfig struct {
	FilesCacheTTL time.Duration
}

func loadAdminConfig() (AdminConfig, error) {
	ttl, err := parseDurationEnv("FILES_CACHE_TTL", 30*time.Second)
	if err != nil {
		return AdminConfig{}, err
	}
	return AdminConfig{FilesCacheTTL: ttl}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	FilePath   string
	Production bool
}

func loadLogConfig() LogConfig {
	return LogConfig{
		FilePath:   strings.TrimSpace(os.Getenv("LOG_FILE_PATH")),
		Production: strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}
