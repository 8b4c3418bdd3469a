package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"gitlab.com/manasline/api/wa-helpline-bot/internal/validator"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment" validate:"oneof=development production"`
	LogLevel    string `mapstructure:"logLevel" validate:"oneof=debug info warn error"`
	Server      struct {
		Port int `mapstructure:"port" validate:"gte=1,lte=65535"`
	} `mapstructure:"server"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN" validate:"required"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	WhatsApp struct {
		APIBaseURL    string        `mapstructure:"apiBaseURL"`
		PhoneNumberID string        `mapstructure:"phoneNumberID" validate:"required"`
		Token         string        `mapstructure:"token" validate:"required"`
		VerifyToken   string        `mapstructure:"verifyToken" validate:"required"`
		SendTimeout   time.Duration `mapstructure:"sendTimeout"`
	} `mapstructure:"whatsapp"`
	NATS struct {
		Enabled       bool   `mapstructure:"enabled"`
		URL           string `mapstructure:"url"`
		SubjectPrefix string `mapstructure:"subjectPrefix"`
	} `mapstructure:"nats"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	WorkerPools struct {
		Inbound WorkerPoolConfig `mapstructure:"inbound"`
	} `mapstructure:"workerPools"`
	Aggregation struct {
		DailyRunHourUTC int `mapstructure:"dailyRunHourUTC" validate:"gte=0,lte=23"`
	} `mapstructure:"aggregation"`
}

// WorkerPoolConfig holds configuration for an ants worker pool
type WorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	QueueSize  int           `mapstructure:"queueSize"`  // Max submitters blocked waiting for a worker
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	// Create new viper instance
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.postgresAutoMigrate", true)
	v.SetDefault("whatsapp.sendTimeout", 10*time.Second)
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.subjectPrefix", "helpline.events")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("aggregation.dailyRunHourUTC", 0)

	// WorkerPools Defaults
	v.SetDefault("workerPools.inbound.poolSize", 10)
	v.SetDefault("workerPools.inbound.queueSize", 10000)
	v.SetDefault("workerPools.inbound.expiryTime", time.Minute)

	// Config file settings
	v.SetConfigName("default") // name of config file (without extension)
	v.SetConfigType("yaml")    // REQUIRED if the config file does not have the extension in the name

	// Add lookup paths
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("/etc/wa-helpline-bot")

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map environment variables to config fields
	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
		v.Set("nats.enabled", true)
	}
	if token := os.Getenv("WHATSAPP_TOKEN"); token != "" {
		v.Set("whatsapp.token", token)
	}
	if verify := os.Getenv("WHATSAPP_VERIFY_TOKEN"); verify != "" {
		v.Set("whatsapp.verifyToken", verify)
	}
	if phoneID := os.Getenv("WHATSAPP_PHONE_NUMBER_ID"); phoneID != "" {
		v.Set("whatsapp.phoneNumberID", phoneID)
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := validator.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		// Get the field tag value (mapstructure)
		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		// Build the env var path
		path := append(parts, tag)
		key := strings.Join(path, ".")

		// If it's a struct, recursively bind its fields
		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		// Bind the env var
		_ = v.BindEnv(key)
	}
}
