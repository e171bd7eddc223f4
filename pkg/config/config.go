package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// State drivers.
const (
	StateDriverMemory   = "memory"
	StateDriverFile     = "file"
	StateDriverRedis    = "redis"
	StateDriverPostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	State    StateConfig
	Import   ImportConfig
	Sync     SyncConfig
	Teacher  TeacherConfig
	Export   ExportConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StateConfig selects where the student store and class configuration live.
type StateConfig struct {
	Driver    string
	Dir       string
	KeyPrefix string
}

// ImportConfig tunes spreadsheet ingestion.
type ImportConfig struct {
	MaxFileSizeBytes int64
	HeaderScanRows   int
	DefaultTeacher   string
	DefaultSubject   string
	MinNameLength    int
	DateLayout       string
	Duplicates       string
	Timezone         string
}

// SyncConfig controls pushes to the remote spreadsheet endpoint.
type SyncConfig struct {
	Enabled       bool
	URL           string
	Timeout       time.Duration
	Workers       int
	Retries       int
	RetryDelay    time.Duration
	IncludeImages bool
	AutoPush      bool
}

// TeacherConfig holds the teacher login secret. Hash wins over the plain PIN.
type TeacherConfig struct {
	Pin     string
	PinHash string
}

// ExportConfig controls rendered reports.
type ExportConfig struct {
	PDFFontPath string
	RightToLeft bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.State = StateConfig{
		Driver:    strings.ToLower(v.GetString("STATE_DRIVER")),
		Dir:       v.GetString("STATE_DIR"),
		KeyPrefix: v.GetString("STATE_KEY_PREFIX"),
	}

	maxFileSize := v.GetInt64("IMPORT_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 5 * 1024 * 1024
	}
	cfg.Import = ImportConfig{
		MaxFileSizeBytes: maxFileSize,
		HeaderScanRows:   v.GetInt("IMPORT_HEADER_SCAN_ROWS"),
		DefaultTeacher:   v.GetString("IMPORT_DEFAULT_TEACHER"),
		DefaultSubject:   v.GetString("IMPORT_DEFAULT_SUBJECT"),
		MinNameLength:    v.GetInt("IMPORT_MIN_NAME_LENGTH"),
		DateLayout:       v.GetString("IMPORT_DATE_LAYOUT"),
		Duplicates:       v.GetString("IMPORT_DUPLICATE_ROWS"),
		Timezone:         v.GetString("IMPORT_TIMEZONE"),
	}

	cfg.Sync = SyncConfig{
		Enabled:       v.GetBool("SYNC_ENABLED"),
		URL:           v.GetString("SYNC_URL"),
		Timeout:       parseDuration(v.GetString("SYNC_TIMEOUT"), 15*time.Second),
		Workers:       v.GetInt("SYNC_WORKERS"),
		Retries:       v.GetInt("SYNC_RETRIES"),
		RetryDelay:    parseDuration(v.GetString("SYNC_RETRY_DELAY"), 5*time.Second),
		IncludeImages: v.GetBool("SYNC_INCLUDE_IMAGES"),
		AutoPush:      v.GetBool("SYNC_AUTO_PUSH"),
	}

	cfg.Teacher = TeacherConfig{
		Pin:     v.GetString("TEACHER_PIN"),
		PinHash: v.GetString("TEACHER_PIN_HASH"),
	}

	cfg.Export = ExportConfig{
		PDFFontPath: v.GetString("EXPORT_PDF_FONT_PATH"),
		RightToLeft: v.GetBool("EXPORT_RIGHT_TO_LEFT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "class_bank")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "class-bank")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STATE_DRIVER", StateDriverFile)
	v.SetDefault("STATE_DIR", "./data")
	v.SetDefault("STATE_KEY_PREFIX", "class-bank")

	v.SetDefault("IMPORT_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("IMPORT_HEADER_SCAN_ROWS", 30)
	v.SetDefault("IMPORT_DEFAULT_TEACHER", "צוות")
	v.SetDefault("IMPORT_DEFAULT_SUBJECT", "כללי")
	v.SetDefault("IMPORT_MIN_NAME_LENGTH", 2)
	v.SetDefault("IMPORT_DATE_LAYOUT", "2.1.2006")
	v.SetDefault("IMPORT_DUPLICATE_ROWS", "accumulate")
	v.SetDefault("IMPORT_TIMEZONE", "Asia/Jerusalem")

	v.SetDefault("SYNC_ENABLED", false)
	v.SetDefault("SYNC_URL", "")
	v.SetDefault("SYNC_TIMEOUT", "15s")
	v.SetDefault("SYNC_WORKERS", 1)
	v.SetDefault("SYNC_RETRIES", 3)
	v.SetDefault("SYNC_RETRY_DELAY", "5s")
	v.SetDefault("SYNC_INCLUDE_IMAGES", false)
	v.SetDefault("SYNC_AUTO_PUSH", true)

	v.SetDefault("TEACHER_PIN", "1234")
	v.SetDefault("TEACHER_PIN_HASH", "")

	v.SetDefault("EXPORT_PDF_FONT_PATH", "")
	v.SetDefault("EXPORT_RIGHT_TO_LEFT", true)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
