package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	StorageCloudinary = "cloudinary"
	StorageSupabase   = "supabase"
	StorageMinIO      = "minio"
)

// Timeline stores.
const (
	TimelinePostgres = "postgres"
	TimelineMongo    = "mongo"
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseURL string

	StorageDriver string
	Cloudinary    CloudinaryConfig
	Supabase      SupabaseConfig
	MinIO         MinIOConfig

	TimelineStore string
	MongoURI      string
	MongoDatabase string

	// ReconcileSchedule is a cron spec. Empty disables the reconciler.
	ReconcileSchedule string

	// Admin is created at startup when Email is set.
	Admin AdminConfig
}

type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type CloudinaryConfig struct {
	CloudName string `yaml:"cloud_name"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Folder    string `yaml:"folder"`
}

type SupabaseConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
	Bucket     string `yaml:"bucket"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type configFile struct {
	App struct {
		Env      string `yaml:"env"`
		Port     string `yaml:"port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Storage struct {
		Driver     string           `yaml:"driver"`
		Cloudinary CloudinaryConfig `yaml:"cloudinary"`
		Supabase   SupabaseConfig   `yaml:"supabase"`
		MinIO      MinIOConfig      `yaml:"minio"`
	} `yaml:"storage"`
	Timeline struct {
		Store         string `yaml:"store"`
		MongoURI      string `yaml:"mongo_uri"`
		MongoDatabase string `yaml:"mongo_database"`
	} `yaml:"timeline"`
	Reconcile struct {
		Schedule *string `yaml:"schedule"`
	} `yaml:"reconcile"`
	Admin AdminConfig `yaml:"admin"`
}

// Load reads .env (if present), then the YAML file at path (if present),
// then environment variables, later sources winning.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:               "production",
		Port:              "3000",
		LogLevel:          "info",
		StorageDriver:     StorageCloudinary,
		TimelineStore:     TimelinePostgres,
		MongoDatabase:     "lawmatch",
		ReconcileSchedule: "@every 5m",
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := applyFile(&cfg, raw); err != nil {
				return Config{}, err
			}
		}
	}

	cfg.Env = envOrDefault("APP_ENV", cfg.Env)
	cfg.Port = envOrDefault("PORT", cfg.Port)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)

	cfg.StorageDriver = strings.ToLower(envOrDefault("STORAGE_DRIVER", cfg.StorageDriver))
	cfg.Cloudinary.CloudName = envOrDefault("CLOUDINARY_CLOUD_NAME", cfg.Cloudinary.CloudName)
	cfg.Cloudinary.APIKey = envOrDefault("CLOUDINARY_API_KEY", cfg.Cloudinary.APIKey)
	cfg.Cloudinary.APISecret = envOrDefault("CLOUDINARY_API_SECRET", cfg.Cloudinary.APISecret)
	cfg.Cloudinary.Folder = envOrDefault("CLOUDINARY_FOLDER", cfg.Cloudinary.Folder)
	cfg.Supabase.URL = envOrDefault("SUPABASE_URL", cfg.Supabase.URL)
	cfg.Supabase.ServiceKey = envOrDefault("SUPABASE_SERVICE_KEY", cfg.Supabase.ServiceKey)
	cfg.Supabase.Bucket = envOrDefault("SUPABASE_BUCKET", cfg.Supabase.Bucket)
	cfg.MinIO.Endpoint = envOrDefault("MINIO_ENDPOINT", cfg.MinIO.Endpoint)
	cfg.MinIO.AccessKey = envOrDefault("MINIO_ACCESS_KEY", cfg.MinIO.AccessKey)
	cfg.MinIO.SecretKey = envOrDefault("MINIO_SECRET_KEY", cfg.MinIO.SecretKey)
	cfg.MinIO.Bucket = envOrDefault("MINIO_BUCKET", cfg.MinIO.Bucket)
	cfg.MinIO.UseSSL = envBool("MINIO_USE_SSL", cfg.MinIO.UseSSL)

	cfg.TimelineStore = strings.ToLower(envOrDefault("TIMELINE_STORE", cfg.TimelineStore))
	cfg.MongoURI = envOrDefault("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = envOrDefault("MONGO_DATABASE", cfg.MongoDatabase)

	// An explicitly empty RECONCILE_SCHEDULE turns the job off.
	if v, ok := os.LookupEnv("RECONCILE_SCHEDULE"); ok {
		cfg.ReconcileSchedule = strings.TrimSpace(v)
	}

	cfg.Admin.Email = strings.ToLower(envOrDefault("ADMIN_EMAIL", cfg.Admin.Email))
	cfg.Admin.Password = envOrDefault("ADMIN_PASSWORD", cfg.Admin.Password)
	cfg.Admin.Name = envOrDefault("ADMIN_NAME", cfg.Admin.Name)
	if cfg.Admin.Email != "" && cfg.Admin.Name == "" {
		cfg.Admin.Name = "Administrator"
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.App.Env != "" {
		cfg.Env = f.App.Env
	}
	if f.App.Port != "" {
		cfg.Port = f.App.Port
	}
	if f.App.LogLevel != "" {
		cfg.LogLevel = f.App.LogLevel
	}
	if f.Database.URL != "" {
		cfg.DatabaseURL = f.Database.URL
	}
	if f.Storage.Driver != "" {
		cfg.StorageDriver = f.Storage.Driver
	}
	cfg.Cloudinary = f.Storage.Cloudinary
	cfg.Supabase = f.Storage.Supabase
	cfg.MinIO = f.Storage.MinIO
	if f.Timeline.Store != "" {
		cfg.TimelineStore = f.Timeline.Store
	}
	if f.Timeline.MongoURI != "" {
		cfg.MongoURI = f.Timeline.MongoURI
	}
	if f.Timeline.MongoDatabase != "" {
		cfg.MongoDatabase = f.Timeline.MongoDatabase
	}
	if f.Reconcile.Schedule != nil {
		cfg.ReconcileSchedule = strings.TrimSpace(*f.Reconcile.Schedule)
	}
	cfg.Admin = f.Admin
	return nil
}

func (c Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("missing DATABASE_URL")
	}
	switch c.StorageDriver {
	case StorageCloudinary, StorageSupabase, StorageMinIO:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.TimelineStore {
	case TimelinePostgres:
	case TimelineMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("missing MONGO_URI for TIMELINE_STORE=mongo")
		}
	default:
		return fmt.Errorf("unknown TIMELINE_STORE %q", c.TimelineStore)
	}
	if c.Admin.Email != "" && len(c.Admin.Password) < 8 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 8 characters when ADMIN_EMAIL is set")
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "development" }

func envOrDefault(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
