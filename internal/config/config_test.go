package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker = "localhost:9092"
	testAPIURL    = "http://data-api.test/graphql"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_API_URL", testAPIURL)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testAPIURL, cfg.DataAPIURL)
	assert.Equal(t, 5*time.Second, cfg.DataAPITimeout)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 6, cfg.InitialZoom)
	assert.Equal(t, 100, cfg.MaxQueryCells)
	assert.Equal(t, 256, cfg.WeatherCacheSize)
	assert.Equal(t, 20*time.Minute, cfg.MetadataTTL)
	assert.Equal(t, 30*time.Minute, cfg.MetadataRefreshInterval)
	assert.Empty(t, cfg.BinCatalogPath)
	assert.True(t, cfg.SuppressCalm)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "area-summaries", cfg.KafkaSummaryTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATA_API_URL", "https://api.example.com/graphql")
	t.Setenv("DATA_API_TIMEOUT", "2s")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("INITIAL_ZOOM", "8")
	t.Setenv("MAX_QUERY_CELLS", "64")
	t.Setenv("WEATHER_CACHE_SIZE", "0")
	t.Setenv("METADATA_TTL", "5m")
	t.Setenv("METADATA_REFRESH_INTERVAL", "10m")
	t.Setenv("BIN_CATALOG_PATH", "/etc/prevailing-winds/bins.yaml")
	t.Setenv("SUPPRESS_CALM", "false")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SUMMARY_TOPIC", "custom-summaries")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/graphql", cfg.DataAPIURL)
	assert.Equal(t, 2*time.Second, cfg.DataAPITimeout)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 8, cfg.InitialZoom)
	assert.Equal(t, 64, cfg.MaxQueryCells)
	assert.Equal(t, 0, cfg.WeatherCacheSize)
	assert.Equal(t, 5*time.Minute, cfg.MetadataTTL)
	assert.Equal(t, 10*time.Minute, cfg.MetadataRefreshInterval)
	assert.Equal(t, "/etc/prevailing-winds/bins.yaml", cfg.BinCatalogPath)
	assert.False(t, cfg.SuppressCalm)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-summaries", cfg.KafkaSummaryTopic)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing data api url", map[string]string{"DATA_API_URL": ""}, "DATA_API_URL"},
		{"relative data api url", map[string]string{"DATA_API_URL": "/graphql"}, "DATA_API_URL"},
		{"invalid shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "not-a-duration"}, "SHUTDOWN_TIMEOUT"},
		{"negative shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "-1s"}, "SHUTDOWN_TIMEOUT"},
		{"invalid api timeout", map[string]string{"DATA_API_TIMEOUT": "bad"}, "DATA_API_TIMEOUT"},
		{"zero metadata ttl", map[string]string{"METADATA_TTL": "0s"}, "METADATA_TTL"},
		{"refresh too frequent", map[string]string{"METADATA_REFRESH_INTERVAL": "10s"}, "METADATA_REFRESH_INTERVAL"},
		{"ttl outlives refresh", map[string]string{"METADATA_TTL": "1h"}, "METADATA_TTL must be shorter"},
		{"ttl equals refresh", map[string]string{"METADATA_TTL": "30m"}, "METADATA_TTL must be shorter"},
		{"zoom out of range", map[string]string{"INITIAL_ZOOM": "30"}, "INITIAL_ZOOM"},
		{"zero max cells", map[string]string{"MAX_QUERY_CELLS": "0"}, "MAX_QUERY_CELLS"},
		{"non numeric cache size", map[string]string{"WEATHER_CACHE_SIZE": "lots"}, "WEATHER_CACHE_SIZE"},
		{"invalid suppress calm", map[string]string{"SUPPRESS_CALM": "sometimes"}, "SUPPRESS_CALM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATA_API_URL", testAPIURL)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
