// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища.
const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config: корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	S3        S3Config        `yaml:"s3"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Links     LinksConfig     `yaml:"links"`
	Phone     PhoneConfig     `yaml:"phone"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Janitor   JanitorConfig   `yaml:"janitor"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// HTTPConfig: сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/v1"`

	// TrustProxy: брать IP клиента из X-Forwarded-For/X-Real-IP (сервис за балансировщиком).
	TrustProxy bool `yaml:"trust_proxy" env:"HTTP_TRUST_PROXY" env-default:"false"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
// Время жизни задаётся для каждого типа токена отдельно.
type AuthConfig struct {
	JWTSecret             string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Issuer                string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"access-service"`
	Audience              []string      `yaml:"audience" env:"JWT_AUDIENCE" env-default:"access-api"`
	AccessTokenTTL        time.Duration `yaml:"access_token_ttl" env:"JWT_ACCESS_TTL" env-default:"60m"`
	RefreshTokenTTL       time.Duration `yaml:"refresh_token_ttl" env:"JWT_REFRESH_TTL" env-default:"720h"`
	RegistrationTokenTTL  time.Duration `yaml:"registration_token_ttl" env:"JWT_REGISTRATION_TTL" env-default:"1440m"`
	ResetPasswordTokenTTL time.Duration `yaml:"reset_password_token_ttl" env:"JWT_RESET_PASSWORD_TTL" env-default:"30m"`
	VerifyEmailTokenTTL   time.Duration `yaml:"verify_email_token_ttl" env:"JWT_VERIFY_EMAIL_TTL" env-default:"30m"`
	VerifyPhoneTokenTTL   time.Duration `yaml:"verify_phone_token_ttl" env:"JWT_VERIFY_PHONE_TTL" env-default:"10m"`
	DeleteProfileTokenTTL time.Duration `yaml:"delete_profile_token_ttl" env:"JWT_DELETE_PROFILE_TTL" env-default:"30m"`
	BcryptCost            int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

// StorageConfig: выбор и параметры хранилища.
type StorageConfig struct {
	Driver      string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo"`
	MongoURL    string `yaml:"mongo_url" env:"MONGO_URL"`
	PostgresURL string `yaml:"postgres_url" env:"DATABASE_URL"`
}

// RedisConfig: необязательный Redis для распределённого rate limiting.
// Пустой URL означает лимитер в памяти процесса.
type RedisConfig struct {
	URL    string `yaml:"url" env:"REDIS_URL"`
	Prefix string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"access:rl"`
}

// SMTPConfig: параметры отправки почты.
// Пустой Host включает логирующий отправитель (local/dev).
type SMTPConfig struct {
	Host     string        `yaml:"host" env:"SMTP_HOST"`
	Port     int           `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string        `yaml:"username" env:"SMTP_USERNAME"`
	Password string        `yaml:"password" env:"SMTP_PASSWORD"`
	From     string        `yaml:"from" env:"SMTP_FROM" env-default:"no-reply@localhost"`
	TLS      bool          `yaml:"tls" env:"SMTP_TLS" env-default:"true"`
	Timeout  time.Duration `yaml:"timeout" env:"SMTP_TIMEOUT" env-default:"10s"`
}

// S3Config: объектное хранилище для загрузок.
// Пустой Endpoint отключает загрузки.
type S3Config struct {
	Endpoint      string `yaml:"endpoint" env:"S3_ENDPOINT"`
	RootUser      string `yaml:"root_user" env:"S3_ROOT_USER"`
	RootPassword  string `yaml:"root_password" env:"S3_ROOT_PASSWORD"`
	Bucket        string `yaml:"bucket" env:"S3_BUCKET" env-default:"uploads"`
	PublicBaseURL string `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
	MaxSizeBytes  int64  `yaml:"max_size_bytes" env:"S3_MAX_SIZE_BYTES" env-default:"5242880"`
}

// BootstrapConfig: данные системного супер-администратора.
type BootstrapConfig struct {
	SuperAdminEmail     string `yaml:"super_admin_email" env:"SUPER_ADMIN_EMAIL" env-required:"true"`
	SuperAdminPhone     string `yaml:"super_admin_phone" env:"SUPER_ADMIN_PHONE" env-required:"true"`
	SuperAdminFirstName string `yaml:"super_admin_first_name" env:"SUPER_ADMIN_FIRST_NAME" env-default:"Super"`
	SuperAdminLastName  string `yaml:"super_admin_last_name" env:"SUPER_ADMIN_LAST_NAME" env-default:"Admin"`
}

// LinksConfig: базовые адреса для ссылок в письмах.
type LinksConfig struct {
	WebURL string `yaml:"web_url" env:"WEB_URL" env-default:"http://localhost:3000"`
}

// PhoneConfig: регион по умолчанию для разбора номеров без кода страны.
type PhoneConfig struct {
	DefaultRegion string `yaml:"default_region" env:"PHONE_DEFAULT_REGION" env-default:"KE"`
}

// RateLimitConfig: лимиты запросов на клиента.
type RateLimitConfig struct {
	AuthRequests   int           `yaml:"auth_requests" env:"RL_AUTH_REQUESTS" env-default:"15"`
	AuthWindow     time.Duration `yaml:"auth_window" env:"RL_AUTH_WINDOW" env-default:"5m"`
	UploadRequests int           `yaml:"upload_requests" env:"RL_UPLOAD_REQUESTS" env-default:"100"`
	UploadWindow   time.Duration `yaml:"upload_window" env:"RL_UPLOAD_WINDOW" env-default:"10m"`
	CommonRequests int           `yaml:"common_requests" env:"RL_COMMON_REQUESTS" env-default:"300"`
	CommonWindow   time.Duration `yaml:"common_window" env:"RL_COMMON_WINDOW" env-default:"15m"`
}

// JanitorConfig: расписание очистки просроченных токенов (формат robfig/cron).
type JanitorConfig struct {
	Schedule string `yaml:"schedule" env:"JANITOR_SCHEDULE" env-default:"@every 30m"`
}

// TimeoutConfig: таймауты сервиса.
type TimeoutConfig struct {
	Request  time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"10s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// MustLoad: обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	var (
		c   *Config
		err error
	)

	switch {
	case path != "":
		c, err = tryRead(path)
	case os.Getenv("CONFIG_PATH") != "":
		c, err = tryRead(os.Getenv("CONFIG_PATH"))
	default:
		if _, statErr := os.Stat("local.yaml"); statErr == nil {
			c, err = tryRead("local.yaml")
		} else {
			if err := cleanenv.ReadEnv(&cfg); err != nil {
				return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
			}
			c = &cfg
		}
	}

	if err != nil {
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// validate проверяет согласованность значений, которые cleanenv не покрывает.
func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageMongo:
		if c.Storage.MongoURL == "" {
			return fmt.Errorf("config: storage.mongo_url is required for driver %q", c.Storage.Driver)
		}
	case StoragePostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("config: storage.postgres_url is required for driver %q", c.Storage.Driver)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("config: token ttl must be positive")
	}

	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		return fmt.Errorf("config: refresh_token_ttl must exceed access_token_ttl")
	}

	return nil
}
