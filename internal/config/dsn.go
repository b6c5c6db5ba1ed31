package config

import (
	"net"
	neturl "net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DSNValue returns the connection string for the configured driver.
// An explicit DSN or URL wins over the structured fields.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.URL != "" {
		return c.URL
	}
	if c.Driver == DriverPostgres {
		return c.postgresDSN()
	}
	return c.mysqlDSN()
}

func (c DatabaseRuntimeConfig) mysqlDSN() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	mc.DBName = c.Name
	mc.ParseTime = c.ParseTime
	if loc, err := time.LoadLocation(c.Loc); err == nil {
		mc.Loc = loc
	}
	mc.Params = map[string]string{"charset": c.Charset}
	for k, v := range c.Params {
		mc.Params[k] = v
	}
	return mc.FormatDSN()
}

// postgresDSN builds a libpq keyword/value string.
func (c DatabaseRuntimeConfig) postgresDSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = defaultPGSSLMode
	}
	parts := []string{
		"host=" + c.Host,
		"port=" + strconv.Itoa(c.Port),
		"user=" + c.User,
		"password=" + c.Password,
		"dbname=" + c.Name,
		"sslmode=" + sslmode,
	}
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+c.Params[k])
	}
	return strings.Join(parts, " ")
}

// URLValue returns the redis:// (or rediss://) URL for the cache probe.
func (c RedisRuntimeConfig) URLValue() string {
	if c.URL != "" {
		return c.URL
	}
	u := &neturl.URL{
		Scheme: c.Scheme,
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + strconv.Itoa(c.DB),
	}
	switch {
	case c.Username != "":
		u.User = neturl.UserPassword(c.Username, c.Password)
		if c.Password == "" {
			u.User = neturl.User(c.Username)
		}
	case c.Password != "":
		u.User = neturl.UserPassword("", c.Password)
	}
	if len(c.Params) > 0 {
		q := neturl.Values{}
		for k, v := range c.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// isPostgresURL reports whether raw is a postgres:// or postgresql:// URL.
func isPostgresURL(raw string) bool {
	lower := strings.ToLower(strings.TrimSpace(raw))
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}
