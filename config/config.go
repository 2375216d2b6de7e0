/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT     = "5005"
	DEFAULT_TIMEZONE = "UTC"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"CASHBOOK_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"CASHBOOK_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"CASHBOOK_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"CASHBOOK_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"CASHBOOK_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"CASHBOOK_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns             string        `json:"dns" envconfig:"CASHBOOK_DATA_SOURCE_DNS"`
	MaxOpenConns    int           `json:"max_open_conns" envconfig:"CASHBOOK_DATA_SOURCE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" envconfig:"CASHBOOK_DATA_SOURCE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" envconfig:"CASHBOOK_DATA_SOURCE_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" envconfig:"CASHBOOK_DATA_SOURCE_CONN_MAX_IDLE_TIME"`
}

func (d *DataSourceConfig) addDefaults() {
	if d.MaxOpenConns <= 0 {
		d.MaxOpenConns = 25
	}
	if d.MaxIdleConns <= 0 {
		d.MaxIdleConns = 10
	}
	if d.ConnMaxLifetime <= 0 {
		d.ConnMaxLifetime = 30 * time.Minute
	}
	if d.ConnMaxIdleTime <= 0 {
		d.ConnMaxIdleTime = 5 * time.Minute
	}
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"CASHBOOK_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"CASHBOOK_REDIS_SKIP_TLS_VERIFY"`
}

// ReconciliationConfig holds the knobs of the reconciliation engine.
// Timezone is the single zone reporting days are computed in.
type ReconciliationConfig struct {
	Timezone        string `json:"timezone" envconfig:"CASHBOOK_RECONCILIATION_TIMEZONE"`
	FetchTimeoutSec int    `json:"fetch_timeout_sec" envconfig:"CASHBOOK_RECONCILIATION_FETCH_TIMEOUT_SEC"`
	WriteTimeoutSec int    `json:"write_timeout_sec" envconfig:"CASHBOOK_RECONCILIATION_WRITE_TIMEOUT_SEC"`
	LockTimeoutSec  int    `json:"lock_timeout_sec" envconfig:"CASHBOOK_RECONCILIATION_LOCK_TIMEOUT_SEC"`
	FetchRetries    int    `json:"fetch_retries" envconfig:"CASHBOOK_RECONCILIATION_FETCH_RETRIES"`
	ActorNameTTLSec int    `json:"actor_name_ttl_sec" envconfig:"CASHBOOK_RECONCILIATION_ACTOR_NAME_TTL_SEC"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"CASHBOOK_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"CASHBOOK_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"CASHBOOK_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"CASHBOOK_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName     string               `json:"project_name" envconfig:"CASHBOOK_PROJECT_NAME"`
	EnableTelemetry bool                 `json:"enable_telemetry" envconfig:"CASHBOOK_ENABLE_TELEMETRY"`
	Server          ServerConfig         `json:"server"`
	DataSource      DataSourceConfig     `json:"data_source"`
	Redis           RedisConfig          `json:"redis"`
	Reconciliation  ReconciliationConfig `json:"reconciliation"`
	Notification    Notification         `json:"notification"`
	RateLimit       RateLimitConfig      `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("cashbook", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called cashbook.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Cashbook"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Reconciliation.Timezone = strings.TrimSpace(cnf.Reconciliation.Timezone)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	cnf.DataSource.addDefaults()

	if err := cnf.Reconciliation.addDefaults(); err != nil {
		return err
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (r *ReconciliationConfig) addDefaults() error {
	if r.Timezone == "" {
		r.Timezone = DEFAULT_TIMEZONE
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return fmt.Errorf("invalid reconciliation timezone %q: %w", r.Timezone, err)
	}
	if r.FetchTimeoutSec <= 0 {
		r.FetchTimeoutSec = 15
	}
	if r.WriteTimeoutSec <= 0 {
		r.WriteTimeoutSec = 10
	}
	if r.LockTimeoutSec <= 0 {
		r.LockTimeoutSec = 5
	}
	if r.FetchRetries < 0 {
		r.FetchRetries = 0
	}
	if r.ActorNameTTLSec <= 0 {
		r.ActorNameTTLSec = 600
	}
	return nil
}

// Location returns the reporting zone. Call it after defaults were added.
func (r ReconciliationConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func secondsOr(sec, fallback int) time.Duration {
	if sec <= 0 {
		sec = fallback
	}
	return time.Duration(sec) * time.Second
}

func (r ReconciliationConfig) FetchTimeout() time.Duration {
	return secondsOr(r.FetchTimeoutSec, 15)
}

func (r ReconciliationConfig) WriteTimeout() time.Duration {
	return secondsOr(r.WriteTimeoutSec, 10)
}

func (r ReconciliationConfig) LockTimeout() time.Duration {
	return secondsOr(r.LockTimeoutSec, 5)
}

func (r ReconciliationConfig) ActorNameTTL() time.Duration {
	return secondsOr(r.ActorNameTTLSec, 600)
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	mockConfig.DataSource.addDefaults()
	_ = mockConfig.Reconciliation.addDefaults()
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(logger.Writer())
}
