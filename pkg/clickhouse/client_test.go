package clickhouse

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:        "ch.local",
		Port:        9000,
		Database:    "pricelens",
		User:        "default",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
		ReadTimeout: 30 * time.Second,
		MaxExecTime: time.Minute,
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", u.Scheme)
	assert.Equal(t, "ch.local:9000", u.Host)
	assert.Equal(t, "/pricelens", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)
	assert.Equal(t, "5s", u.Query().Get("dial_timeout"))
	assert.Equal(t, "60", u.Query().Get("max_execution_time"))
}

func TestBuildDSN_HTTP(t *testing.T) {
	dsn := buildDSN(ClientConfig{Host: "h", Port: 8123, Database: "d", User: "u", UseHTTP: true})
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Empty(t, u.Query().Get("max_execution_time"))
}

func TestClientOptions(t *testing.T) {
	cfg := DefaultClientConfig()
	for _, opt := range []ClientOption{
		WithHost("ch"),
		WithDatabase("pricelens"),
		WithTimeouts(0, time.Minute),
		WithMaxConnections(10, 5),
	} {
		opt(&cfg)
	}
	assert.Equal(t, "ch", cfg.Host)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout, "zero keeps the default")
	assert.Equal(t, time.Minute, cfg.ReadTimeout)
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 9000, cfg.Port)
}

func TestNewClient_RequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
