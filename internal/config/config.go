package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort string
	APIToken string
	LogLevel string

	K8sHost            string
	K8sToken           string
	K8sTokenPath       string
	JobsNamespace      string
	TemplatePath       string
	InsecureSkipVerify bool

	BreakerMaxFailures int
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
	TransportRetries   int
	RequestTimeout     time.Duration

	DatabaseURL string
	LokiURL     string
}

func Load() *Config {
	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		APIToken: os.Getenv("API_TOKEN"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		K8sHost:            getEnv("K8S_HOST", "kubernetes.default.svc"),
		K8sToken:           os.Getenv("K8S_TOKEN"),
		K8sTokenPath:       getEnv("K8S_TOKEN_PATH", "/etc/kubernetes/apikey/token"),
		JobsNamespace:      getEnv("JOBS_NAMESPACE", "default"),
		TemplatePath:       getEnv("TEMPLATE_PATH", DefaultTemplatePath),
		InsecureSkipVerify: getBool("K8S_INSECURE_SKIP_VERIFY", true),

		BreakerMaxFailures: getInt("BREAKER_MAX_FAILURES", 5),
		BreakerInterval:    getDuration("BREAKER_INTERVAL", 60*time.Second),
		BreakerTimeout:     getDuration("BREAKER_TIMEOUT", 10*time.Second),
		TransportRetries:   getInt("TRANSPORT_RETRIES", 0),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		LokiURL:     os.Getenv("LOKI_URL"),
	}
}

// DefaultTemplatePath 是相对工作目录的默认 Job 模板路径，文件不存在时使用内置模板。
const DefaultTemplatePath = "config/job.yaml.tim"

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		slog.Warn("invalid integer config, using default", "key", key, "value", v, "default", defaultVal)
		return defaultVal
	}
	return n
}

func getBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("invalid boolean config, using default", "key", key, "value", v, "default", defaultVal)
		return defaultVal
	}
	return b
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d < 0 {
		slog.Warn("invalid duration config, using default", "key", key, "value", v, "default", defaultVal.String())
		return defaultVal
	}
	return d
}
