package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	Shippo   ShippoConfig
	Shipping ShippingConfig
	Promo    PromoConfig
	Eventing EventingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"SHOPFLOW_APP_ENV" required:"true"`
	Port         string   `envconfig:"SHOPFLOW_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"SHOPFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"SHOPFLOW_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"SHOPFLOW_CORS_ORIGINS" default:"http://localhost:3000"`
	AutoMigrate  bool     `envconfig:"SHOPFLOW_APP_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPFLOW_DB_DSN"`
	Driver string `envconfig:"SHOPFLOW_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SHOPFLOW_DB_HOST"`
	Port     int    `envconfig:"SHOPFLOW_DB_PORT" default:"5432"`
	User     string `envconfig:"SHOPFLOW_DB_USER"`
	Password string `envconfig:"SHOPFLOW_DB_PASSWORD"`
	Name     string `envconfig:"SHOPFLOW_DB_NAME"`
	SSLMode  string `envconfig:"SHOPFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either SHOPFLOW_DB_DSN or host/user/name must be set")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"SHOPFLOW_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"SHOPFLOW_JWT_ISSUER" default:"shopflow"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"SHOPFLOW_STRIPE_API_KEY" required:"true"`
	WebhookSecret string `envconfig:"SHOPFLOW_STRIPE_WEBHOOK_SECRET"`
	SuccessURL    string `envconfig:"SHOPFLOW_STRIPE_SUCCESS_URL" required:"true"`
	CancelURL     string `envconfig:"SHOPFLOW_STRIPE_CANCEL_URL" required:"true"`
	Env           string `envconfig:"SHOPFLOW_STRIPE_ENV" default:"test"`
}

type ShippoConfig struct {
	APIToken string        `envconfig:"SHOPFLOW_SHIPPO_API_TOKEN" required:"true"`
	BaseURL  string        `envconfig:"SHOPFLOW_SHIPPO_BASE_URL" default:"https://api.goshippo.com"`
	Timeout  time.Duration `envconfig:"SHOPFLOW_SHIPPO_TIMEOUT" default:"15s"`
}

// ShippingConfig carries the ship-from address and parcel defaults.
type ShippingConfig struct {
	FromName    string `envconfig:"SHOPFLOW_SHIP_FROM_NAME" default:"ShopFlow Fulfillment"`
	FromStreet1 string `envconfig:"SHOPFLOW_SHIP_FROM_STREET1" required:"true"`
	FromCity    string `envconfig:"SHOPFLOW_SHIP_FROM_CITY" required:"true"`
	FromState   string `envconfig:"SHOPFLOW_SHIP_FROM_STATE" required:"true"`
	FromZip     string `envconfig:"SHOPFLOW_SHIP_FROM_ZIP" required:"true"`
	FromCountry string `envconfig:"SHOPFLOW_SHIP_FROM_COUNTRY" default:"US"`
	FromPhone   string `envconfig:"SHOPFLOW_SHIP_FROM_PHONE"`
	FromEmail   string `envconfig:"SHOPFLOW_SHIP_FROM_EMAIL"`

	HandlingFeeCents    int64   `envconfig:"SHOPFLOW_SHIPPING_HANDLING_FEE_CENTS" default:"200"`
	DefaultItemWeightOz float64 `envconfig:"SHOPFLOW_SHIPPING_DEFAULT_ITEM_WEIGHT_OZ" default:"4"`
	PackagingTareOz     float64 `envconfig:"SHOPFLOW_SHIPPING_PACKAGING_TARE_OZ" default:"8"`
	MinBillableOz       float64 `envconfig:"SHOPFLOW_SHIPPING_MIN_BILLABLE_OZ" default:"8"`
	ServiceFloorOz      float64 `envconfig:"SHOPFLOW_SHIPPING_SERVICE_FLOOR_OZ" default:"32"`
}

type PromoConfig struct {
	PointsThreshold int    `envconfig:"SHOPFLOW_PROMO_POINTS_THRESHOLD" default:"100"`
	PercentOff      int    `envconfig:"SHOPFLOW_PROMO_PERCENT_OFF" default:"10"`
	CodePrefix      string `envconfig:"SHOPFLOW_PROMO_CODE_PREFIX" default:"LOYAL"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"SHOPFLOW_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}
