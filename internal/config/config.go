package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"restaurant-fulfillment/internal/domain"
)

type Config struct {
	Database DatabaseConfig  `yaml:"database"`
	RabbitMQ RabbitMQConfig  `yaml:"rabbitmq"`
	Redis    RedisConfig     `yaml:"redis"`
	Kafka    KafkaConfig     `yaml:"kafka"`
	AWS      AWSConfig       `yaml:"aws"`
	SMTP     SMTPConfig      `yaml:"smtp"`
	HTTP     HTTPConfig      `yaml:"http"`
	Notifier NotifierConfig  `yaml:"notifier"`
	Loyalty  LoyaltyDefaults `yaml:"loyalty_defaults"`
	Settings SettingsConfig  `yaml:"settings"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

func (c DatabaseConfig) DSN() string {
	ssl := c.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, ssl)
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	UseTLS   bool   `yaml:"use_tls"`
}

// URL is the amqp(s) URL. An empty or "/" vhost selects the default vhost.
func (c RabbitMQConfig) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + strings.TrimPrefix(c.VHost, "/"),
	}
	if c.UseTLS {
		u.Scheme = "amqps"
	}
	return u.String()
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type AWSConfig struct {
	Region      string `yaml:"region"`
	SMSSenderID string `yaml:"sms_sender_id"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type HTTPConfig struct {
	// RateLimit uses the limiter format, e.g. "20-S".
	RateLimit string `yaml:"rate_limit"`
}

// NotifierConfig selects the display event backends: redis, rabbitmq, kafka.
type NotifierConfig struct {
	Backends []string      `yaml:"backends"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LoyaltyDefaults struct {
	Enabled     bool   `yaml:"enabled"`
	EarnRate    string `yaml:"earn_rate"`
	ExpiryDays  int    `yaml:"expiry_days"`
	RedeemValue string `yaml:"redeem_value"`
	Currency    string `yaml:"currency"`
	Feedback    bool   `yaml:"feedback_enabled"`
}

// Settings converts the YAML defaults into the fallback snapshot used when a
// restaurant has no stored override.
func (l LoyaltyDefaults) Settings() (domain.Settings, error) {
	return domain.ApplyValues(domain.DefaultSettings(), map[string]string{
		domain.SettingLoyaltyEnabled:  strconv.FormatBool(l.Enabled),
		domain.SettingEarnRate:        l.EarnRate,
		domain.SettingExpiryDays:      strconv.Itoa(l.ExpiryDays),
		domain.SettingRedeemValue:     l.RedeemValue,
		domain.SettingCurrency:        l.Currency,
		domain.SettingFeedbackEnabled: strconv.FormatBool(l.Feedback),
	})
}

type SettingsConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "restaurant", Password: "restaurant", Database: "restaurant", MaxConns: 20},
		RabbitMQ: RabbitMQConfig{Host: "localhost", Port: 5672, User: "guest", Password: "guest", VHost: "/"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Kafka:    KafkaConfig{Topic: "order-events"},
		AWS:      AWSConfig{Region: "us-east-1"},
		SMTP:     SMTPConfig{Host: "localhost", Port: 25, From: "no-reply@restaurant.local"},
		HTTP:     HTTPConfig{RateLimit: "20-S"},
		Notifier: NotifierConfig{Backends: []string{"redis"}, Timeout: 2 * time.Second},
		Loyalty:  LoyaltyDefaults{EarnRate: "0.1", ExpiryDays: 365, RedeemValue: "0.01", Currency: "USD"},
		Settings: SettingsConfig{CacheTTL: time.Minute},
	}
}

// Load reads the YAML file at path (a missing file keeps the defaults),
// then applies environment overrides. A .env file is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Database, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")
	setString(&cfg.RabbitMQ.Host, "RABBITMQ_HOST")
	setString(&cfg.RabbitMQ.User, "RABBITMQ_USER")
	setString(&cfg.RabbitMQ.Password, "RABBITMQ_PASSWORD")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Kafka.Topic, "KAFKA_TOPIC")
	setString(&cfg.AWS.Region, "AWS_REGION")
	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setString(&cfg.SMTP.Username, "SMTP_USERNAME")
	setString(&cfg.SMTP.Password, "SMTP_PASSWORD")
	setString(&cfg.SMTP.From, "SMTP_FROM")
	setString(&cfg.HTTP.RateLimit, "HTTP_RATE_LIMIT")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("NOTIFIER_BACKENDS"); v != "" {
		cfg.Notifier.Backends = splitList(v)
	}

	for _, p := range []struct {
		dst *int
		key string
	}{
		{&cfg.Database.Port, "DB_PORT"},
		{&cfg.RabbitMQ.Port, "RABBITMQ_PORT"},
		{&cfg.Redis.DB, "REDIS_DB"},
		{&cfg.SMTP.Port, "SMTP_PORT"},
	} {
		v := os.Getenv(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", p.key, err)
		}
		*p.dst = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
