package database

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/donia1222/remix-crypto-sub000/internal/config"
)

// ApplicationName is reported to PostgreSQL for every connection.
const ApplicationName = "pricesync"

// BuildConnString builds a PostgreSQL connection URL from config.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Redacted returns the connection URL with the password masked, for logs.
func Redacted(cfg config.DBConfig) string {
	u, err := url.Parse(BuildConnString(cfg))
	if err != nil {
		return fmt.Sprintf("postgres://%s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.Name)
	}
	return u.Redacted()
}
