package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendPostgres      = "postgres"
	BackendElasticsearch = "elasticsearch"

	SourcePostgres = "postgres"
	SourceMongo    = "mongo"
	SourceFile     = "file"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // per-environment file is optional

	return finish(v)
}

func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.Geocoding.Keyed.APIKey == "" {
		if val := os.Getenv("GEOCODING_API_KEY"); val != "" {
			cfg.Geocoding.Keyed.APIKey = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}

	if cfg.Database.Mongo.URI == "" {
		if val := os.Getenv("MONGO_URI"); val != "" {
			cfg.Database.Mongo.URI = val
		}
	}

	if cfg.Notifications.AWS.Region == "" {
		if val := os.Getenv("AWS_REGION"); val != "" {
			cfg.Notifications.AWS.Region = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront-services"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if len(cfg.Database.Elasticsearch.Addresses) == 0 && cfg.Database.Elasticsearch.URL != "" {
		cfg.Database.Elasticsearch.Addresses = []string{cfg.Database.Elasticsearch.URL}
	}
	if cfg.Database.Mongo.Database == "" {
		cfg.Database.Mongo.Database = "cms"
	}
	if cfg.Database.Mongo.Collection == "" {
		cfg.Database.Mongo.Collection = "stores"
	}
	if cfg.Database.Mongo.Timeout == 0 {
		cfg.Database.Mongo.Timeout = 5000
	}

	if cfg.Catalog.Backend == "" {
		cfg.Catalog.Backend = BackendPostgres
	}
	if cfg.Catalog.Index == "" {
		cfg.Catalog.Index = "products"
	}
	if cfg.Catalog.PageSize == 0 {
		cfg.Catalog.PageSize = 12
	}
	if cfg.Catalog.QueryTimeout == 0 {
		cfg.Catalog.QueryTimeout = 5000
	}

	if cfg.Locator.Source == "" {
		cfg.Locator.Source = SourcePostgres
	}
	if cfg.Locator.EarthRadiusMi == 0 {
		cfg.Locator.EarthRadiusMi = 3959
	}

	if cfg.Geocoding.RequestDelay == 0 {
		cfg.Geocoding.RequestDelay = 1100
	}
	if cfg.Geocoding.Timeout == 0 {
		cfg.Geocoding.Timeout = 10000
	}
	if cfg.Geocoding.CacheTTL == 0 {
		cfg.Geocoding.CacheTTL = int((30 * 24 * time.Hour).Milliseconds())
	}
	if cfg.Geocoding.MissTTL == 0 {
		cfg.Geocoding.MissTTL = int((24 * time.Hour).Milliseconds())
	}
	if cfg.Geocoding.Keyed.BaseURL == "" {
		cfg.Geocoding.Keyed.BaseURL = "https://maps.googleapis.com/maps/api/geocode/json"
	}
	if cfg.Geocoding.Open.BaseURL == "" {
		cfg.Geocoding.Open.BaseURL = "https://nominatim.openstreetmap.org"
	}

	if cfg.Forms.RegistryPath == "" {
		cfg.Forms.RegistryPath = "configs/forms.json"
	}
	if cfg.Notifications.Timeout == 0 {
		cfg.Notifications.Timeout = 10000
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Catalog.Backend {
	case BackendPostgres:
	case BackendElasticsearch:
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return fmt.Errorf("database.elasticsearch.addresses or url is required for the elasticsearch catalog backend")
		}
	default:
		return fmt.Errorf("catalog.backend must be %q or %q, got %q", BackendPostgres, BackendElasticsearch, cfg.Catalog.Backend)
	}

	switch cfg.Locator.Source {
	case SourcePostgres:
	case SourceMongo:
		if cfg.Database.Mongo.URI == "" {
			return fmt.Errorf("database.mongo.uri is required for the mongo store source")
		}
	case SourceFile:
		if cfg.Locator.File == "" {
			return fmt.Errorf("locator.file is required for the file store source")
		}
	default:
		return fmt.Errorf("locator.source must be one of postgres, mongo, file, got %q", cfg.Locator.Source)
	}

	if cfg.Catalog.Backend == BackendPostgres || cfg.Locator.Source == SourcePostgres {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if cfg.Geocoding.Open.UserAgent == "" {
		return fmt.Errorf("geocoding.open.user_agent is required")
	}

	if cfg.Catalog.PageSize < 1 {
		return fmt.Errorf("catalog.page_size must be positive")
	}

	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
