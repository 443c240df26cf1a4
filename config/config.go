package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "STOREFRONT_CONFIG_FILE"
	envPrefix         = "STOREFRONT"
)

type topics struct {
	SearchEvents string `mapstructure:"search_events"`
	OrderEvents  string `mapstructure:"order_events"`
}

type groups struct {
	SearchPopularity string `mapstructure:"search_popularity"`
	OrderMailer      string `mapstructure:"order_mailer"`
}

type brokerTLS struct {
	CAFile   string `mapstructure:"ca_file"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// Enabled reports whether the broker connection uses TLS.
func (t brokerTLS) Enabled() bool {
	return t.CAFile != ""
}

type brokerSASL struct {
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
}

type broker struct {
	SeedBrokers        []string   `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string   `mapstructure:"schema_registry_urls"`
	Topics             topics     `mapstructure:"topics"`
	Groups             groups     `mapstructure:"groups"`
	TLS                brokerTLS  `mapstructure:"tls"`
	SASL               brokerSASL `mapstructure:"sasl"`
}

// Enabled reports whether events and popularity are served.
func (b broker) Enabled() bool {
	return len(b.SeedBrokers) != 0
}

type objectStorage struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Bucket        string `mapstructure:"bucket"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type auth struct {
	TokenSecret    string        `mapstructure:"token_secret"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	VerifyTTL      time.Duration `mapstructure:"verify_ttl"`
	VerifyLinkBase string        `mapstructure:"verify_link_base"`
}

type mailer struct {
	APIURL string `mapstructure:"api_url"`
	APIKey string `mapstructure:"api_key"`
	From   string `mapstructure:"from"`
}

type catalog struct {
	PageSize    int `mapstructure:"page_size"`
	MaxPageSize int `mapstructure:"max_page_size"`
}

type cache struct {
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type rateLimit struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type shopper struct {
	APIURL         string        `mapstructure:"api_url"`
	HistoryPath    string        `mapstructure:"history_path"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`
}

type Config struct {
	LogLevel       slog.Level    `mapstructure:"log_level"`
	HTTPServerAddr string        `mapstructure:"http_server_addr"`
	SQLDB          string        `mapstructure:"sql_db"`
	Broker         broker        `mapstructure:"broker"`
	ObjectStorage  objectStorage `mapstructure:"object_storage"`
	Auth           auth          `mapstructure:"auth"`
	Mailer         mailer        `mapstructure:"mailer"`
	Catalog        catalog       `mapstructure:"catalog"`
	Cache          cache         `mapstructure:"cache"`
	RateLimit      rateLimit     `mapstructure:"rate_limit"`
	Shopper        shopper       `mapstructure:"shopper"`
}

func Load() Config {
	cfg, err := LoadFile(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

// LoadFile reads path over the defaults. Any key may be overridden from the
// environment, e.g. STOREFRONT_AUTH_TOKEN_SECRET.
func LoadFile(path string) (Config, error) {
	const op = "config.LoadFile"

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	var cfg Config
	err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", op, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http_server_addr", ":8080")
	v.SetDefault("sql_db", "")

	v.SetDefault("broker.seed_brokers", []string{})
	v.SetDefault("broker.schema_registry_urls", []string{})
	v.SetDefault("broker.topics.search_events", "search-events")
	v.SetDefault("broker.topics.order_events", "order-events")
	v.SetDefault("broker.groups.search_popularity", "search-popularity")
	v.SetDefault("broker.groups.order_mailer", "order-mailer")
	v.SetDefault("broker.tls.ca_file", "")
	v.SetDefault("broker.tls.cert_file", "")
	v.SetDefault("broker.tls.key_file", "")
	v.SetDefault("broker.sasl.user", "")
	v.SetDefault("broker.sasl.pass", "")

	v.SetDefault("object_storage.endpoint", "")
	v.SetDefault("object_storage.access_key", "")
	v.SetDefault("object_storage.secret_key", "")
	v.SetDefault("object_storage.bucket", "product-images")
	v.SetDefault("object_storage.use_ssl", false)
	v.SetDefault("object_storage.public_base_url", "")

	v.SetDefault("auth.token_secret", "")
	v.SetDefault("auth.session_ttl", 30*24*time.Hour)
	v.SetDefault("auth.verify_ttl", 24*time.Hour)
	v.SetDefault("auth.verify_link_base", "http://localhost:8080/v1/auth/verify")

	v.SetDefault("mailer.api_url", "https://api.resend.com/emails")
	v.SetDefault("mailer.api_key", "")
	v.SetDefault("mailer.from", "Storefront <no-reply@storefront.local>")

	v.SetDefault("catalog.page_size", 20)
	v.SetDefault("catalog.max_page_size", 100)

	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", time.Minute)

	v.SetDefault("rate_limit.rps", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("shopper.api_url", "http://localhost:8080")
	v.SetDefault("shopper.history_path", "")
	v.SetDefault("shopper.request_timeout", 10*time.Second)
	v.SetDefault("shopper.refresh_timeout", 10*time.Second)
}

func (c Config) validate() error {
	switch {
	case c.Catalog.PageSize <= 0:
		return fmt.Errorf("catalog.page_size must be positive, got %d", c.Catalog.PageSize)
	case c.Catalog.MaxPageSize < c.Catalog.PageSize:
		return fmt.Errorf(
			"catalog.max_page_size %d is less than page_size %d",
			c.Catalog.MaxPageSize, c.Catalog.PageSize,
		)
	case c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0:
		return fmt.Errorf("rate_limit must be positive")
	case c.Broker.Enabled() && len(c.Broker.SchemaRegistryURLs) == 0:
		return fmt.Errorf("broker.schema_registry_urls is required with seed_brokers")
	case c.Broker.SASL.User != "" && c.Broker.SASL.Pass == "":
		return fmt.Errorf("broker.sasl.pass is required with sasl.user")
	case (c.Broker.TLS.CertFile == "") != (c.Broker.TLS.KeyFile == ""):
		return fmt.Errorf("broker.tls.cert_file and key_file go together")
	}
	return nil
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	SQLDB=%q

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	Topics:
		SearchEvents=%q
		OrderEvents=%q
	Groups:
		SearchPopularity=%q
		OrderMailer=%q
	TLS:
		CAFile=%q
		CertFile=%q
		KeyFile=%q
	SASL:
		User=%q

	ObjectStorage:
	Endpoint=%q
	Bucket=%q
	PublicBaseURL=%q

	Auth:
	SessionTTL=%s
	VerifyTTL=%s
	VerifyLinkBase=%q

	Mailer:
	APIURL=%q
	From=%q

	Catalog:
	PageSize=%d
	MaxPageSize=%d

	Cache:
	RedisURL=%q
	TTL=%s

	RateLimit:
	RPS=%v
	Burst=%d

	Shopper:
	APIURL=%q
	HistoryPath=%q
	RequestTimeout=%s
	RefreshTimeout=%s

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		redactDSN(c.SQLDB),
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.Topics.SearchEvents,
		c.Broker.Topics.OrderEvents,
		c.Broker.Groups.SearchPopularity,
		c.Broker.Groups.OrderMailer,
		c.Broker.TLS.CAFile,
		c.Broker.TLS.CertFile,
		c.Broker.TLS.KeyFile,
		c.Broker.SASL.User,
		c.ObjectStorage.Endpoint,
		c.ObjectStorage.Bucket,
		c.ObjectStorage.PublicBaseURL,
		c.Auth.SessionTTL,
		c.Auth.VerifyTTL,
		c.Auth.VerifyLinkBase,
		c.Mailer.APIURL,
		c.Mailer.From,
		c.Catalog.PageSize,
		c.Catalog.MaxPageSize,
		c.Cache.RedisURL,
		c.Cache.TTL,
		c.RateLimit.RPS,
		c.RateLimit.Burst,
		c.Shopper.APIURL,
		c.Shopper.HistoryPath,
		c.Shopper.RequestTimeout,
		c.Shopper.RefreshTimeout,
	)
}

// redactDSN hides the password part of a postgres URL.
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPass := strings.Cut(creds, ":")
	if !hasPass {
		return dsn
	}
	return scheme + "://" + user + ":***@" + host
}
