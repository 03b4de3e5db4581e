package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "swanpulse",
		User:        "default",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
		AsyncInsert: true,
	})
	assert.Equal(t, "clickhouse://default:p%40ss@ch:9000/swanpulse?async_insert=1&dial_timeout=5s&wait_for_async_insert=0", dsn)

	http := BuildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "db", User: "u", UseHTTP: true})
	assert.Equal(t, "http://u:@ch:8123/db", http)
}

func TestNewClient_RequiresHost(t *testing.T) {
	_, err := NewClient(context.Background())
	assert.Error(t, err)
}
