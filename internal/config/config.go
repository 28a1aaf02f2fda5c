// Package config loads cqlbridge configuration from an optional YAML file
// and CQLBRIDGE_* environment variables. Environment values win.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/koba/cqlbridge/internal/auth"
	"github.com/koba/cqlbridge/internal/database"
	"github.com/koba/cqlbridge/internal/translate"
)

// Authority types
const (
	AuthorityNone = "none"
	AuthorityHTTP = "http"
	AuthoritySQL  = "sql"
)

// Config is the complete runtime configuration
type Config struct {
	Cassandra   Cassandra   `yaml:"cassandra"`
	Authority   Authority   `yaml:"authority"`
	Cache       Cache       `yaml:"cache"`
	Replication Replication `yaml:"replication"`
	Translate   Translate   `yaml:"translate"`
	Log         Log         `yaml:"log"`
}

// Cassandra holds store connection settings
type Cassandra struct {
	Hosts          []string      `yaml:"hosts"`
	Keyspace       string        `yaml:"keyspace"`
	Consistency    string        `yaml:"consistency"`
	Timeout        time.Duration `yaml:"timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
}

// Authority selects and configures the permission authority
type Authority struct {
	Type     string          `yaml:"type"`
	URL      string          `yaml:"url"`
	Timeout  time.Duration   `yaml:"timeout"`
	Database database.Config `yaml:"database"`
	// AllowUnannotated lets requests without a declared operation through
	// the guard.
	AllowUnannotated bool `yaml:"allow_unannotated"`
}

// Cache configures the permission cache
type Cache struct {
	TTL  time.Duration `yaml:"ttl"`
	Size int           `yaml:"size"`
}

// Replication is the clause synthesized for new keyspaces
type Replication struct {
	Class      string `yaml:"class"`
	Factor     int    `yaml:"factor"`
	DataCenter string `yaml:"datacenter"`
}

// Translate holds translation defaults
type Translate struct {
	DefaultLimit int64 `yaml:"default_limit"`
}

// Log configures the logger
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Cassandra: Cassandra{
			Hosts:       []string{"127.0.0.1"},
			Consistency: "QUORUM",
		},
		Authority: Authority{Type: AuthorityNone},
		Cache:     Cache{TTL: auth.DefaultTTL, Size: auth.DefaultSize},
		Replication: Replication{
			Class:  translate.DefaultReplication.Class,
			Factor: translate.DefaultReplication.Factor,
		},
		Translate: Translate{DefaultLimit: translate.DefaultLimit},
		Log:       Log{Level: "info"},
	}
}

// Load reads the file at path, when given, then applies environment
// overrides and validates the result
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no component accepts
func (c Config) Validate() error {
	switch c.Authority.Type {
	case AuthorityNone:
	case AuthorityHTTP:
		if c.Authority.URL == "" {
			return errors.New("authority.url is required for the http authority")
		}
	case AuthoritySQL:
		if _, err := database.NormalizeType(c.Authority.Database.Type); err != nil {
			return errors.Wrap(err, "authority.database")
		}
	default:
		return errors.Newf("unknown authority type %q", c.Authority.Type)
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl must not be negative")
	}
	if c.Replication.Factor < 1 {
		return errors.New("replication.factor must be at least 1")
	}
	if c.Translate.DefaultLimit < 1 {
		return errors.New("translate.default_limit must be at least 1")
	}
	return nil
}

// applyEnv overrides cfg with CQLBRIDGE_* variables. The sql authority
// also reads the DB_* variables.
func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "invalid %s", name))
				return
			}
			*dst = d
		}
	}
	integer := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "invalid %s", name))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "invalid %s", name))
				return
			}
			*dst = b
		}
	}

	if v := os.Getenv("CQLBRIDGE_CASSANDRA_HOSTS"); v != "" {
		var hosts []string
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				hosts = append(hosts, h)
			}
		}
		cfg.Cassandra.Hosts = hosts
	}
	str("CQLBRIDGE_CASSANDRA_KEYSPACE", &cfg.Cassandra.Keyspace)
	str("CQLBRIDGE_CASSANDRA_CONSISTENCY", &cfg.Cassandra.Consistency)
	dur("CQLBRIDGE_CASSANDRA_TIMEOUT", &cfg.Cassandra.Timeout)
	dur("CQLBRIDGE_CASSANDRA_CONNECT_TIMEOUT", &cfg.Cassandra.ConnectTimeout)
	str("CQLBRIDGE_CASSANDRA_USERNAME", &cfg.Cassandra.Username)
	str("CQLBRIDGE_CASSANDRA_PASSWORD", &cfg.Cassandra.Password)

	str("CQLBRIDGE_AUTHORITY_TYPE", &cfg.Authority.Type)
	str("CQLBRIDGE_AUTHORITY_URL", &cfg.Authority.URL)
	dur("CQLBRIDGE_AUTHORITY_TIMEOUT", &cfg.Authority.Timeout)
	boolean("CQLBRIDGE_AUTH_ALLOW_UNANNOTATED", &cfg.Authority.AllowUnannotated)

	dur("CQLBRIDGE_CACHE_TTL", &cfg.Cache.TTL)
	integer("CQLBRIDGE_CACHE_SIZE", &cfg.Cache.Size)

	str("CQLBRIDGE_REPLICATION_CLASS", &cfg.Replication.Class)
	integer("CQLBRIDGE_REPLICATION_FACTOR", &cfg.Replication.Factor)
	str("CQLBRIDGE_REPLICATION_DATACENTER", &cfg.Replication.DataCenter)

	if v := os.Getenv("CQLBRIDGE_DEFAULT_LIMIT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, errors.Wrap(err, "invalid CQLBRIDGE_DEFAULT_LIMIT"))
		} else {
			cfg.Translate.DefaultLimit = n
		}
	}

	str("CQLBRIDGE_LOG_LEVEL", &cfg.Log.Level)
	boolean("CQLBRIDGE_LOG_DEVELOPMENT", &cfg.Log.Development)

	cfg.Authority.Type = strings.ToLower(cfg.Authority.Type)
	if cfg.Authority.Type == AuthoritySQL && os.Getenv("DB_TYPE") != "" {
		db, err := database.LoadConfigFromEnv()
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.Authority.Database = db
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
