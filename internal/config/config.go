package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Pipeline PipelineConfig
	Tasks    TasksConfig
	Remote   RemoteConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Server   ServerConfig
	Log      LogConfig
}

type PipelineConfig struct {
	ContainerName       string
	StagingDir          string
	OutputDirs          []string
	ArchiveRoot         string
	PollIntervalSeconds int
	MaxWaitSeconds      int
	SummaryTitle        string
}

// PollInterval returns the configured interval as a duration.
func (p PipelineConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSeconds) * time.Second
}

// MaxWait returns the configured wait window as a duration.
func (p PipelineConfig) MaxWait() time.Duration {
	return time.Duration(p.MaxWaitSeconds) * time.Second
}

type TasksConfig struct {
	ExportCommand  string
	ProcessCommand string
	WorkDir        string
}

type RemoteConfig struct {
	Provider             string
	DriveCredentialsJSON string
	DriveCredentialsFile string
	S3                   S3Config
	DownloadRateLimit    float64
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Prefix    string
	UseSSL    bool
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled        bool
	RedisURL       string
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	LockTTLSeconds int
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

const (
	ProviderDrive = "drive"
	ProviderS3    = "s3"
	ProviderMinio = "minio"
)

var (
	once     sync.Once
	instance *Config
	loadErr  error
)

// Load reads the process configuration once: .env, then an optional config
// file named by EXPORTFLOW_CONFIG, then environment variables.
func Load() (*Config, error) {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance, loadErr = New(viper.New())
	})

	return instance, loadErr
}

// New builds a Config from the given viper instance, applying defaults.
func New(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	if file := v.GetString("EXPORTFLOW_CONFIG"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", file)
		}
	}

	return &Config{
		Pipeline: PipelineConfig{
			ContainerName:       v.GetString("EXPORT_CONTAINER"),
			StagingDir:          v.GetString("STAGING_DIR"),
			OutputDirs:          splitList(v.GetStringSlice("PROCESSED_OUTPUT_DIRS")),
			ArchiveRoot:         v.GetString("ARCHIVE_ROOT"),
			PollIntervalSeconds: v.GetInt("POLL_INTERVAL_SECONDS"),
			MaxWaitSeconds:      v.GetInt("MAX_WAIT_SECONDS"),
			SummaryTitle:        v.GetString("SUMMARY_TITLE"),
		},
		Tasks: TasksConfig{
			ExportCommand:  v.GetString("EXPORT_COMMAND"),
			ProcessCommand: v.GetString("PROCESS_COMMAND"),
			WorkDir:        v.GetString("TASK_WORK_DIR"),
		},
		Remote: RemoteConfig{
			Provider:             strings.ToLower(v.GetString("REMOTE_PROVIDER")),
			DriveCredentialsJSON: v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			DriveCredentialsFile: v.GetString("GOOGLE_DRIVE_CREDENTIALS_FILE"),
			S3: S3Config{
				Endpoint:  v.GetString("S3_ENDPOINT"),
				AccessKey: v.GetString("S3_ACCESS_KEY"),
				SecretKey: v.GetString("S3_SECRET_KEY"),
				Region:    v.GetString("S3_REGION"),
				Prefix:    v.GetString("S3_PREFIX"),
				UseSSL:    v.GetBool("S3_USE_SSL"),
			},
			DownloadRateLimit: v.GetFloat64("DOWNLOAD_RATE_LIMIT"),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("RUN_HISTORY_ENABLED"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:        v.GetBool("CACHE_ENABLED"),
			RedisURL:       v.GetString("REDIS_URL"),
			RedisHost:      v.GetString("REDIS_HOST"),
			RedisPort:      v.GetString("REDIS_PORT"),
			RedisPassword:  v.GetString("REDIS_PASSWORD"),
			RedisDB:        v.GetInt("REDIS_DB"),
			LockTTLSeconds: v.GetInt("RUN_LOCK_TTL_SECONDS"),
		},
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("EXPORT_CONTAINER", "SpaceApps_SAR")
	v.SetDefault("STAGING_DIR", "outputs/gee")
	v.SetDefault("PROCESSED_OUTPUT_DIRS", []string{"outputs/plots"})
	v.SetDefault("ARCHIVE_ROOT", "outputs/processed")
	v.SetDefault("POLL_INTERVAL_SECONDS", 300)
	v.SetDefault("MAX_WAIT_SECONDS", 7200)
	v.SetDefault("SUMMARY_TITLE", "Export Pipeline - Pipeline Run")
	v.SetDefault("EXPORT_COMMAND", "python scripts/01_export_s1_gee.py")
	v.SetDefault("PROCESS_COMMAND", "python scripts/02_process_s1_local.py")
	v.SetDefault("TASK_WORK_DIR", "")
	v.SetDefault("REMOTE_PROVIDER", ProviderDrive)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("DOWNLOAD_RATE_LIMIT", 0)
	v.SetDefault("RUN_HISTORY_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "exportflow")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RUN_LOCK_TTL_SECONDS", 4*3600)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "release")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

// Validate reports the first setting that would make a pipeline run impossible.
func (c *Config) Validate() error {
	p := c.Pipeline
	switch {
	case strings.TrimSpace(p.ContainerName) == "":
		return fmt.Errorf("EXPORT_CONTAINER must be provided")
	case p.StagingDir == "":
		return fmt.Errorf("STAGING_DIR must be provided")
	case p.ArchiveRoot == "":
		return fmt.Errorf("ARCHIVE_ROOT must be provided")
	case p.PollIntervalSeconds <= 0:
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive, got %d", p.PollIntervalSeconds)
	case p.MaxWaitSeconds <= 0:
		return fmt.Errorf("MAX_WAIT_SECONDS must be positive, got %d", p.MaxWaitSeconds)
	case p.MaxWaitSeconds < p.PollIntervalSeconds:
		return fmt.Errorf("MAX_WAIT_SECONDS (%d) must not be shorter than POLL_INTERVAL_SECONDS (%d)", p.MaxWaitSeconds, p.PollIntervalSeconds)
	case c.Remote.DownloadRateLimit < 0:
		return fmt.Errorf("DOWNLOAD_RATE_LIMIT must not be negative")
	}

	switch c.Remote.Provider {
	case ProviderDrive:
		if c.Remote.DriveCredentialsJSON == "" && c.Remote.DriveCredentialsFile == "" {
			return fmt.Errorf("drive provider needs GOOGLE_DRIVE_CREDENTIALS_JSON or GOOGLE_DRIVE_CREDENTIALS_FILE")
		}
	case ProviderS3:
	case ProviderMinio:
		if c.Remote.S3.Endpoint == "" {
			return fmt.Errorf("minio provider needs S3_ENDPOINT")
		}
		if c.Remote.S3.AccessKey == "" || c.Remote.S3.SecretKey == "" {
			return fmt.Errorf("minio provider needs S3_ACCESS_KEY and S3_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unknown REMOTE_PROVIDER %q", c.Remote.Provider)
	}

	return nil
}

// splitList flattens comma-separated values so both "a,b" and repeated entries work.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
