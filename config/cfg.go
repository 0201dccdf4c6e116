package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/jekabolt/grbpwr-insights/internal/analytics/ga4"
	httpapi "github.com/jekabolt/grbpwr-insights/internal/api/http"
	"github.com/jekabolt/grbpwr-insights/internal/cache"
	"github.com/jekabolt/grbpwr-insights/internal/coupon"
	"github.com/jekabolt/grbpwr-insights/internal/ingest"
	"github.com/jekabolt/grbpwr-insights/internal/insight"
	"github.com/jekabolt/grbpwr-insights/internal/metrics"
	"github.com/jekabolt/grbpwr-insights/internal/ordersource"
	"github.com/jekabolt/grbpwr-insights/internal/period"
	"github.com/jekabolt/grbpwr-insights/internal/shipping"
	"github.com/jekabolt/grbpwr-insights/internal/store"
	"github.com/jekabolt/grbpwr-insights/log"
	"github.com/spf13/viper"
)

// Config represents the global configuration for the service.
type Config struct {
	DB          store.Config       `mapstructure:"mysql"`
	Logger      log.Config         `mapstructure:"logger"`
	HTTP        httpapi.Config     `mapstructure:"http"`
	Cache       cache.Config       `mapstructure:"cache"`
	OrderSource ordersource.Config `mapstructure:"order_source"`
	Ingest      ingest.Config      `mapstructure:"ingest"`
	Period      period.Config      `mapstructure:"period"`
	Metrics     metrics.Config     `mapstructure:"metrics"`
	Coupon      coupon.Config      `mapstructure:"coupon"`
	Shipping    shipping.Config    `mapstructure:"shipping"`
	GA4         ga4.Config         `mapstructure:"ga4"`
	Vendors     []insight.Config   `mapstructure:"vendors"`
}

// LoadConfig loads the configuration from a file and/or environment variables.
// Environment variables take precedence over config file values.
// Nested config keys use double underscore, e.g., MYSQL__DSN for mysql.dsn
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "__"))

	bindEnvVars(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			// If config file doesn't exist, continue with env vars only
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %v", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/config/grbpwr-insights")
		v.AddConfigPath("/etc/grbpwr-insights")
		_ = v.ReadInConfig()
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config into struct: %v", err)
	}

	// Handle MySQL DSN construction from individual env vars if DSN is not set
	if config.DB.DSN == "" {
		mysqlHost := os.Getenv("MYSQL_HOST")
		mysqlPort := os.Getenv("MYSQL_PORT")
		mysqlUser := os.Getenv("MYSQL_USER")
		mysqlPassword := os.Getenv("MYSQL_PASSWORD")
		mysqlDatabase := os.Getenv("MYSQL_DATABASE")

		if mysqlHost != "" {
			if mysqlPort == "" {
				mysqlPort = "3306"
			}
			if mysqlUser != "" && mysqlPassword != "" && mysqlDatabase != "" {
				config.DB.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8&parseTime=true&tls=custom",
					mysqlUser, mysqlPassword, mysqlHost, mysqlPort, mysqlDatabase)
			}
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks the settings no component can repair on its own.
func (c *Config) Validate() error {
	var errs []error

	for _, email := range c.Metrics.DistributorEmails {
		if !govalidator.IsEmail(strings.TrimSpace(email)) {
			errs = append(errs, fmt.Errorf("metrics.distributor_emails: %q is not an email", email))
		}
	}
	for _, code := range c.Coupon.FreeShippingCodes {
		if strings.TrimSpace(code) == "" {
			errs = append(errs, errors.New("coupon.free_shipping_codes: empty code"))
		}
	}
	if c.OrderSource.BaseURL != "" && !govalidator.IsURL(c.OrderSource.BaseURL) {
		errs = append(errs, fmt.Errorf("order_source.base_url: %q is not a url", c.OrderSource.BaseURL))
	}
	if c.Period.Timezone != "" {
		if _, err := time.LoadLocation(c.Period.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("period.timezone: %w", err))
		}
	}
	if c.Ingest.PageSize < 0 || c.Ingest.PageSize > 100 {
		errs = append(errs, fmt.Errorf("ingest.page_size: %d is out of range [1, 100]", c.Ingest.PageSize))
	}
	if c.Ingest.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("ingest.max_pages: %d is negative", c.Ingest.MaxPages))
	}
	for i, vc := range c.Vendors {
		if vc.Name == "" {
			errs = append(errs, fmt.Errorf("vendors[%d].name: required", i))
		}
		if !govalidator.IsURL(vc.BaseURL) {
			errs = append(errs, fmt.Errorf("vendors[%d].base_url: %q is not a url", i, vc.BaseURL))
		}
	}

	return errors.Join(errs...)
}

// bindEnvVars binds environment variables to config keys
// This allows using both nested keys (MYSQL__DSN) and flat keys (MYSQL_DSN)
func bindEnvVars(v *viper.Viper) {
	// MySQL
	v.BindEnv("mysql.dsn", "MYSQL_DSN")
	v.BindEnv("mysql.automigrate", "MYSQL_AUTOMIGRATE")
	v.BindEnv("mysql.max_open_connections", "MYSQL_MAX_OPEN_CONNECTIONS")
	v.BindEnv("mysql.max_idle_connections", "MYSQL_MAX_IDLE_CONNECTIONS")
	v.BindEnv("mysql.tls_ca_path", "MYSQL_TLS_CA_PATH")

	// Logger
	v.BindEnv("logger.level", "LOG_LEVEL")
	v.BindEnv("logger.add_source", "LOG_ADD_SOURCE")

	// HTTP
	v.BindEnv("http.port", "HTTP_PORT")
	v.BindEnv("http.address", "HTTP_ADDRESS")
	v.BindEnv("http.allowed_origins", "HTTP_ALLOWED_ORIGINS")
	v.BindEnv("http.read_timeout", "HTTP_READ_TIMEOUT")
	v.BindEnv("http.write_timeout", "HTTP_WRITE_TIMEOUT")

	// Order page cache
	v.BindEnv("cache.backend", "CACHE_BACKEND")
	v.BindEnv("cache.ttl", "CACHE_TTL")
	v.BindEnv("cache.redis.addr", "REDIS_ADDR")
	v.BindEnv("cache.redis.password", "REDIS_PASSWORD")
	v.BindEnv("cache.redis.db", "REDIS_DB")

	// Upstream order source
	v.BindEnv("order_source.base_url", "ORDER_SOURCE_BASE_URL")
	v.BindEnv("order_source.consumer_key", "ORDER_SOURCE_CONSUMER_KEY")
	v.BindEnv("order_source.consumer_secret", "ORDER_SOURCE_CONSUMER_SECRET")
	v.BindEnv("order_source.timeout", "ORDER_SOURCE_TIMEOUT")

	// Ingestion
	v.BindEnv("ingest.page_size", "INGEST_PAGE_SIZE")
	v.BindEnv("ingest.max_pages", "INGEST_MAX_PAGES")

	// Period
	v.BindEnv("period.timezone", "PERIOD_TIMEZONE")
	v.BindEnv("period.default_period", "PERIOD_DEFAULT_PERIOD")
	v.BindEnv("period.historical_start", "PERIOD_HISTORICAL_START")

	// Metrics
	v.BindEnv("metrics.distributor_emails", "METRICS_DISTRIBUTOR_EMAILS")
	v.BindEnv("metrics.fallback_payment_method", "METRICS_FALLBACK_PAYMENT_METHOD")
	v.BindEnv("metrics.top_orders", "METRICS_TOP_ORDERS")

	// Coupons
	v.BindEnv("coupon.free_shipping_codes", "COUPON_FREE_SHIPPING_CODES")

	// Shipping
	v.BindEnv("shipping.max_single_lookups", "SHIPPING_MAX_SINGLE_LOOKUPS")
	v.BindEnv("shipping.lookup_interval", "SHIPPING_LOOKUP_INTERVAL")
	v.BindEnv("shipping.mapping_file", "SHIPPING_MAPPING_FILE")

	// GA4
	v.BindEnv("ga4.enabled", "GA4_ENABLED")
	v.BindEnv("ga4.property_id", "GA4_PROPERTY_ID")
	v.BindEnv("ga4.credentials_json", "GA4_CREDENTIALS_JSON")
}
