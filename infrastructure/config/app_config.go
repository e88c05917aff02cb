package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"nppflow/database"
	"nppflow/logging"
)

// AppConfig holds application-wide system configuration.
type AppConfig struct {
	HTTPAddr    string
	HTTPLogPath string
	Database    *database.Config
	Logging     *logging.Config
	Auth        *AuthConfig
	Licensing   *LicensingConfig
	Graph       *GraphConfig
	PowerBI     *PowerBIConfig
	Cache       *CacheConfig
	Mirror      *MirrorConfig
	Scheduler   *SchedulerConfig
	HTTP        *HTTPConfig
	KeyVaultURL string
}

// AuthConfig configures Teams SSO bearer token validation.
type AuthConfig struct {
	Enabled     bool
	TenantID    string
	ClientID    string
	InstanceURL string
	// DevUserEmail is used as the caller identity when auth is disabled.
	DevUserEmail string
}

// LicensingConfig configures the licensing API.
type LicensingConfig struct {
	BaseURL       string
	FunctionKey   string
	ApplicationID string
	Timeout       time.Duration
	RetryMax      int
}

// GraphConfig configures app-only access to Microsoft Graph and Power BI.
// An empty ClientSecret falls back to the default Azure credential chain.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	BaseURL      string
}

// PowerBIConfig identifies the workspace holding the analytics reports.
type PowerBIConfig struct {
	BaseURL     string
	WorkspaceID string
}

// CacheConfig holds TTLs for the in-memory caches.
type CacheConfig struct {
	MasterTTL       time.Duration
	LicenseTTL      time.Duration
	FolderTTL       time.Duration
	MembershipTTL   time.Duration
	UserTTL         time.Duration
	RefreshDebounce time.Duration
}

// MirrorConfig selects where companion forecast CSVs are written.
type MirrorConfig struct {
	Mode             string // "sharepoint" or "azure"
	ConnectionString string
	Container        string
}

// SchedulerConfig holds cron expressions for recurring jobs.
type SchedulerConfig struct {
	Enabled     bool
	RLSSyncCron string
}

// HTTPConfig holds API middleware settings.
type HTTPConfig struct {
	AllowedOrigins    []string
	RequestsPerMinute int
	ShutdownTimeout   time.Duration
	MaxUploadBytes    int64
}

// LoadAppConfigFromEnv loads complete application configuration from environment variables.
func LoadAppConfigFromEnv() *AppConfig {
	return &AppConfig{
		HTTPAddr:    getEnvWithDefault("HTTP_ADDR", ":8080"),
		HTTPLogPath: getEnvWithDefault("HTTP_LOG_PATH", ""),
		Database:    LoadDatabaseConfigFromEnv(),
		Logging:     LoadLoggingConfigFromEnv(),
		Auth:        LoadAuthConfigFromEnv(),
		Licensing:   LoadLicensingConfigFromEnv(),
		Graph:       LoadGraphConfigFromEnv(),
		PowerBI:     LoadPowerBIConfigFromEnv(),
		Cache:       LoadCacheConfigFromEnv(),
		Mirror:      LoadMirrorConfigFromEnv(),
		Scheduler:   LoadSchedulerConfigFromEnv(),
		HTTP:        LoadHTTPConfigFromEnv(),
		KeyVaultURL: getEnvWithDefault("KEY_VAULT_URL", ""),
	}
}

// LoadDatabaseConfigFromEnv loads database configuration from environment variables.
func LoadDatabaseConfigFromEnv() *database.Config {
	return &database.Config{
		Path:              getEnvWithDefault("DB_PATH", "./nppflow.db"),
		MaxOpenConns:      getEnvIntWithDefault("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:      getEnvIntWithDefault("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:   getEnvDurationWithDefault("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime:   getEnvDurationWithDefault("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		BusyTimeoutMs:     getEnvIntWithDefault("DB_BUSY_TIMEOUT_MS", 5000),
		EnableForeignKeys: getEnvBoolWithDefault("DB_ENABLE_FOREIGN_KEYS", true),
		EnableWAL:         getEnvBoolWithDefault("DB_ENABLE_WAL", true),
		StrictMode:        getEnvBoolWithDefault("DB_STRICT_MODE", true),
	}
}

// LoadLoggingConfigFromEnv loads logging configuration from environment variables.
func LoadLoggingConfigFromEnv() *logging.Config {
	return &logging.Config{
		Level:  getEnvWithDefault("LOG_LEVEL", "info"),
		Format: getEnvWithDefault("LOG_FORMAT", "json"),
		Output: getEnvWithDefault("LOG_OUTPUT", "stdout"),
	}
}

func LoadAuthConfigFromEnv() *AuthConfig {
	return &AuthConfig{
		Enabled:      getEnvBoolWithDefault("AUTH_ENABLED", true),
		TenantID:     getEnvWithDefault("AZURE_AD_TENANT_ID", os.Getenv("SP_TENANT_ID")),
		ClientID:     getEnvWithDefault("AZURE_AD_CLIENT_ID", ""),
		InstanceURL:  getEnvWithDefault("AZURE_AD_INSTANCE_URL", "https://login.microsoftonline.com/"),
		DevUserEmail: getEnvWithDefault("AUTH_DEV_USER_EMAIL", ""),
	}
}

func LoadLicensingConfigFromEnv() *LicensingConfig {
	return &LicensingConfig{
		BaseURL:       getEnvWithDefault("LICENSING_API_URL", ""),
		FunctionKey:   getEnvWithDefault("LICENSING_API_KEY", ""),
		ApplicationID: getEnvWithDefault("LICENSING_APP_ID", ""),
		Timeout:       getEnvDurationWithDefault("LICENSING_TIMEOUT", 15*time.Second),
		RetryMax:      getEnvIntWithDefault("LICENSING_RETRY_MAX", 3),
	}
}

func LoadGraphConfigFromEnv() *GraphConfig {
	return &GraphConfig{
		TenantID:     getEnvWithDefault("GRAPH_TENANT_ID", os.Getenv("SP_TENANT_ID")),
		ClientID:     getEnvWithDefault("GRAPH_CLIENT_ID", os.Getenv("SP_CLIENT_ID")),
		ClientSecret: getEnvWithDefault("GRAPH_CLIENT_SECRET", ""),
		BaseURL:      getEnvWithDefault("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
	}
}

func LoadPowerBIConfigFromEnv() *PowerBIConfig {
	return &PowerBIConfig{
		BaseURL:     getEnvWithDefault("POWERBI_BASE_URL", "https://api.powerbi.com/v1.0/myorg"),
		WorkspaceID: getEnvWithDefault("POWERBI_WORKSPACE_ID", ""),
	}
}

func LoadCacheConfigFromEnv() *CacheConfig {
	return &CacheConfig{
		MasterTTL:       getEnvDurationWithDefault("CACHE_MASTER_TTL", 30*time.Minute),
		LicenseTTL:      getEnvDurationWithDefault("CACHE_LICENSE_TTL", 10*time.Minute),
		FolderTTL:       getEnvDurationWithDefault("CACHE_FOLDER_TTL", 2*time.Minute),
		MembershipTTL:   getEnvDurationWithDefault("CACHE_MEMBERSHIP_TTL", 5*time.Minute),
		UserTTL:         getEnvDurationWithDefault("CACHE_USER_TTL", 24*time.Hour),
		RefreshDebounce: getEnvDurationWithDefault("REFRESH_DEBOUNCE", 500*time.Millisecond),
	}
}

func LoadMirrorConfigFromEnv() *MirrorConfig {
	return &MirrorConfig{
		Mode:             strings.ToLower(getEnvWithDefault("MIRROR_MODE", "sharepoint")),
		ConnectionString: getEnvWithDefault("MIRROR_AZURE_CONNECTION_STRING", ""),
		Container:        getEnvWithDefault("MIRROR_AZURE_CONTAINER", "forecast-extractions"),
	}
}

func LoadSchedulerConfigFromEnv() *SchedulerConfig {
	return &SchedulerConfig{
		Enabled:     getEnvBoolWithDefault("SCHEDULER_ENABLED", true),
		RLSSyncCron: getEnvWithDefault("SCHEDULER_RLS_SYNC_CRON", "0 0 2 * * *"),
	}
}

func LoadHTTPConfigFromEnv() *HTTPConfig {
	return &HTTPConfig{
		AllowedOrigins:    getEnvListWithDefault("CORS_ALLOWED_ORIGINS", []string{"https://teams.microsoft.com"}),
		RequestsPerMinute: getEnvIntWithDefault("RATE_LIMIT_PER_MINUTE", 300),
		ShutdownTimeout:   getEnvDurationWithDefault("SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxUploadBytes:    int64(getEnvIntWithDefault("MAX_UPLOAD_MB", 100)) << 20,
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(v string, def bool) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// Helper functions for environment variable parsing.
func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return parseBool(value, defaultValue)
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvListWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
