package config

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifeTime int // минут
}

// LoadDBConfig читает конфиг БД из окружения (DB_*).
func LoadDBConfig() (*DBConfig, error) {
	v := newViper()
	v.SetDefault("db_driver", DriverPostgres)
	v.SetDefault("db_host", "postgres")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "scheduler")
	v.SetDefault("db_password", "scheduler")
	v.SetDefault("db_name", "scheduler_db")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_timezone", "UTC")
	v.SetDefault("db_sqlite_path", "scheduler.db")
	v.SetDefault("db_max_open_conns", 10)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime_min", 30)

	cfg := &DBConfig{
		Driver:          v.GetString("db_driver"),
		Host:            v.GetString("db_host"),
		Port:            v.GetInt("db_port"),
		User:            v.GetString("db_user"),
		Password:        v.GetString("db_password"),
		Name:            v.GetString("db_name"),
		SSLMode:         v.GetString("db_sslmode"),
		TimeZone:        v.GetString("db_timezone"),
		SQLitePath:      v.GetString("db_sqlite_path"),
		MaxOpenConns:    v.GetInt("db_max_open_conns"),
		MaxIdleConns:    v.GetInt("db_max_idle_conns"),
		ConnMaxLifeTime: v.GetInt("db_conn_max_lifetime_min"),
	}

	switch cfg.Driver {
	case DriverPostgres:
		if cfg.Host == "" || cfg.User == "" || cfg.Name == "" {
			return nil, fmt.Errorf("invalid DB config: host/user/name must not be empty")
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("invalid DB config: sqlite path must not be empty")
		}
	default:
		return nil, fmt.Errorf("invalid DB config: unknown driver %q", cfg.Driver)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}
