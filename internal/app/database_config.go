package app

import "github.com/charlesng35/phonegate/internal/database"

// Connection converts DatabaseConfig into the options consumed by database.Open.
func (c DatabaseConfig) Connection() database.Config {
	cfg := database.Config{
		Driver: c.Driver,
		Path:   c.Path,
		DSN:    c.DSN,
	}

	switch {
	case c.Postgres.Enabled:
		cfg.Driver = "postgres"
		cfg.Host = c.Postgres.Host
		cfg.Port = c.Postgres.Port
		cfg.Name = c.Postgres.Database
		cfg.User = c.Postgres.Username
		cfg.Password = c.Postgres.Password
	case c.MySQL.Enabled:
		cfg.Driver = "mysql"
		cfg.Host = c.MySQL.Host
		cfg.Port = c.MySQL.Port
		cfg.Name = c.MySQL.Database
		cfg.User = c.MySQL.Username
		cfg.Password = c.MySQL.Password
	}

	return cfg
}
