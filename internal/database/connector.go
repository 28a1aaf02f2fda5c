package database

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/koba/cqlbridge/internal/schema"
)

// Supported database types
const (
	TypeMySQL    = "mysql"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// Config holds database connection configuration
type Config struct {
	Type     string `yaml:"type"` // "mysql", "postgres" or "sqlite"
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// Path is the database file for sqlite; ":memory:" opens a private
	// in-memory database.
	Path string `yaml:"path"`
}

// Introspector reads table definitions from a relational catalog
type Introspector interface {
	Tables(ctx context.Context) ([]string, error)
	TableSchema(ctx context.Context, table string) (*schema.TableSchema, error)
}

// DB is an open connection pool together with the dialect it speaks
type DB struct {
	*sql.DB
	config Config
}

// NormalizeType returns the canonical database type name
func NormalizeType(t string) (string, error) {
	switch strings.ToLower(t) {
	case "mysql", "mariadb":
		return TypeMySQL, nil
	case "postgres", "postgresql", "pg":
		return TypePostgres, nil
	case "sqlite", "sqlite3":
		return TypeSQLite, nil
	default:
		return "", errors.Newf("unsupported database type: %s", t)
	}
}

// Open connects to the database described by config
func Open(ctx context.Context, config Config) (*DB, error) {
	dbType, err := NormalizeType(config.Type)
	if err != nil {
		return nil, err
	}
	config.Type = dbType

	var driver, dsn string
	switch dbType {
	case TypeMySQL:
		driver, dsn = "mysql", mysqlDSN(config)
	case TypePostgres:
		driver, dsn = "postgres", postgresDSN(config)
	case TypeSQLite:
		driver, dsn = "sqlite", sqliteDSN(config)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s connection", dbType)
	}
	if dbType == TypeSQLite {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to ping %s", dbType)
	}
	return &DB{DB: db, config: config}, nil
}

// Type returns the canonical database type
func (d *DB) Type() string {
	return d.config.Type
}

// Rebind rewrites ? placeholders into the dialect's placeholder syntax
func (d *DB) Rebind(query string) string {
	if d.config.Type != TypePostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Introspector returns the catalog reader for the database's dialect
func (d *DB) Introspector() Introspector {
	switch d.config.Type {
	case TypeMySQL:
		return &MySQL{db: d.DB, database: d.config.Database}
	case TypePostgres:
		return &Postgres{db: d.DB}
	default:
		return &SQLite{db: d.DB}
	}
}

// LoadConfigFromEnv loads database configuration from environment variables
func LoadConfigFromEnv() (Config, error) {
	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		return Config{}, errors.New("DB_TYPE environment variable is required")
	}
	normalized, err := NormalizeType(dbType)
	if err != nil {
		return Config{}, err
	}

	if normalized == TypeSQLite {
		path := os.Getenv("DB_PATH")
		if path == "" {
			return Config{}, errors.New("DB_PATH environment variable is required for sqlite")
		}
		return Config{Type: normalized, Path: path}, nil
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "localhost"
	}

	database := os.Getenv("DB_NAME")
	if database == "" {
		return Config{}, errors.New("DB_NAME environment variable is required")
	}

	port := os.Getenv("DB_PORT")
	if port == "" {
		port = DefaultPort(normalized)
	}

	return Config{
		Type:     normalized,
		Host:     host,
		Port:     port,
		Database: database,
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
	}, nil
}

// DefaultPort returns the conventional port of a database type
func DefaultPort(dbType string) string {
	switch dbType {
	case TypeMySQL:
		return "3306"
	case TypePostgres:
		return "5432"
	}
	return ""
}
