package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// ReadConfig loads the configuration file from the working directory or
// /etc/kepler, with environment variables (prefix KEPLER_) taking precedence.
func ReadConfig() (Configuration, error) {
	v := viper.New()
	v.SetConfigName("kepler")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/kepler")
	v.SetEnvPrefix("kepler")
	v.AutomaticEnv()

	v.SetDefault("name", "kepler")
	v.SetDefault("domain", "localhost")
	v.SetDefault("port", 8080)
	v.SetDefault("debug", false)
	v.SetDefault("insecure_federation", false)
	v.SetDefault("rsa_key_size", 2048)
	v.SetDefault("db_url", "kepler.db")
	v.SetDefault("migrations_folder", "migrations")
	v.SetDefault("fetch_ceiling", "300s")
	v.SetDefault("max_job_failures", 5)
	v.SetDefault("queue.backend", BackendMemory)
	v.SetDefault("queue.amqp_queue", "kepler-jobs")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, the defaults plus environment carry a dev
		// setup; anything else is a real error.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Configuration{}, fmt.Errorf("failed to read configuration: %w", err)
		}
	}

	ceiling, err := time.ParseDuration(v.GetString("fetch_ceiling"))
	if err != nil {
		return Configuration{}, fmt.Errorf("invalid fetch_ceiling: %w", err)
	}

	cfg := Configuration{
		Name:               v.GetString("name"),
		Domain:             v.GetString("domain"),
		Port:               uint16(v.GetUint32("port")),
		Debug:              v.GetBool("debug"),
		InsecureFederation: v.GetBool("insecure_federation"),
		RsaKeySize:         v.GetInt("rsa_key_size"),
		DbUrl:              v.GetString("db_url"),
		MigrationsFolder:   v.GetString("migrations_folder"),
		FetchCeiling:       ceiling,
		MaxJobFailures:     v.GetInt("max_job_failures"),
		Queue: QueueConfiguration{
			Backend:     v.GetString("queue.backend"),
			AmqpUrl:     v.GetString("queue.amqp_url"),
			AmqpQueue:   v.GetString("queue.amqp_queue"),
			SqsQueueUrl: v.GetString("queue.sqs_queue_url"),
			SqsRegion:   v.GetString("queue.sqs_region"),
		},
	}

	// Debug runs surface broken jobs quickly instead of grinding through
	// every retry.
	if cfg.Debug && !v.IsSet("max_job_failures") {
		cfg.MaxJobFailures = 1
	}

	scheme := "https"
	if cfg.Debug {
		scheme = "http"
	}
	cfg.Url, err = url.Parse(fmt.Sprintf("%s://%s", scheme, cfg.Domain))
	if err != nil {
		return Configuration{}, fmt.Errorf("invalid domain %q: %w", cfg.Domain, err)
	}

	return cfg, nil
}
