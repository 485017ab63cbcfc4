package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "TRACKSHOP"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Admin    AdminConfig
	Checkout CheckoutConfig
	DLocalGo DLocalGoConfig
	PayPal   PayPalConfig
	Sendgrid SendgridConfig
}

// Load parses the full configuration from the environment. Missing required
// provider credentials fail here, at startup, never per-request.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.DLocalGo.validate(); err != nil {
		return nil, err
	}
	if err := cfg.PayPal.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRACKSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"TRACKSHOP_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"TRACKSHOP_APP_PUBLIC_URL" required:"true"`
	LogLevel     string `envconfig:"TRACKSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRACKSHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TRACKSHOP_DB_DSN"`
	Driver string `envconfig:"TRACKSHOP_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TRACKSHOP_DB_HOST"`
	Port     int    `envconfig:"TRACKSHOP_DB_PORT" default:"5432"`
	User     string `envconfig:"TRACKSHOP_DB_USER"`
	Password string `envconfig:"TRACKSHOP_DB_PASSWORD"`
	Name     string `envconfig:"TRACKSHOP_DB_NAME"`
	SSLMode  string `envconfig:"TRACKSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRACKSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRACKSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRACKSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRACKSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRACKSHOP_REDIS_URL"`
	Address      string        `envconfig:"TRACKSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"TRACKSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRACKSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRACKSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRACKSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRACKSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRACKSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRACKSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type AdminConfig struct {
	APIKey string `envconfig:"TRACKSHOP_ADMIN_API_KEY" required:"true"`
}

type CheckoutConfig struct {
	SuccessPath string `envconfig:"TRACKSHOP_CHECKOUT_SUCCESS_PATH" default:"/comprar/success"`
	CancelPath  string `envconfig:"TRACKSHOP_CHECKOUT_CANCEL_PATH" default:"/comprar/cancel"`
}

// DLocalGoConfig holds the redirect-gateway credentials. All three values are
// required for the integration to work at all, so absence is fatal at boot.
type DLocalGoConfig struct {
	APIKey    string `envconfig:"TRACKSHOP_DLOCALGO_API_KEY" required:"true"`
	SecretKey string `envconfig:"TRACKSHOP_DLOCALGO_SECRET_KEY" required:"true"`
	BaseURL   string `envconfig:"TRACKSHOP_DLOCALGO_BASE_URL" required:"true"`
}

type PayPalConfig struct {
	ClientID string `envconfig:"TRACKSHOP_PAYPAL_CLIENT_ID" required:"true"`
	Secret   string `envconfig:"TRACKSHOP_PAYPAL_SECRET" required:"true"`
	BaseURL  string `envconfig:"TRACKSHOP_PAYPAL_BASE_URL" required:"true"`
	IPNURL   string `envconfig:"TRACKSHOP_PAYPAL_IPN_URL" default:"https://ipnpb.paypal.com/cgi-bin/webscr"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"TRACKSHOP_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"TRACKSHOP_SENDGRID_FROM_EMAIL"`
	OperatorTo  string `envconfig:"TRACKSHOP_SENDGRID_OPERATOR_EMAIL"`
}

func (c DLocalGoConfig) validate() error {
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid dlocalgo base url %q: %w", c.BaseURL, err)
	}
	return nil
}

func (c PayPalConfig) validate() error {
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid paypal base url %q: %w", c.BaseURL, err)
	}
	return nil
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		"TRACKSHOP_DB_HOST": db.Host,
		"TRACKSHOP_DB_USER": db.User,
		"TRACKSHOP_DB_NAME": db.Name,
	}
	for _, key := range []string{"TRACKSHOP_DB_HOST", "TRACKSHOP_DB_USER", "TRACKSHOP_DB_NAME"} {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either TRACKSHOP_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
