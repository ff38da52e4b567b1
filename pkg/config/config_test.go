package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 3003, cfg.RelayPort)
	assert.Equal(t, "/api/canvas", cfg.Relay.Prefix)
	assert.Equal(t, "Canvas-Assignment-Manager/1.0", cfg.Relay.UserAgent)
	assert.Equal(t, CanvasModeRelay, cfg.Canvas.Mode)
	assert.Equal(t, 100, cfg.Canvas.PerPage)
	assert.Equal(t, 2*time.Minute, cfg.Canvas.FetchTimeout)
	assert.Equal(t, StoreBackendFile, cfg.Store.Backend)
	assert.Equal(t, 1, cfg.Refresh.Workers)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("CANVAS_MODE", "DIRECT")
	v.Set("CANVAS_RELAY_URL", "http://relay.local:3003/")
	v.Set("RELAY_PREFIX", "/proxy/")
	v.Set("FETCH_TIMEOUT", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	v.Set("REFRESH_WORKERS", 0)

	cfg := fromViper(v)
	assert.Equal(t, CanvasModeDirect, cfg.Canvas.Mode)
	assert.Equal(t, "http://relay.local:3003", cfg.Canvas.RelayURL)
	assert.Equal(t, "/proxy", cfg.Relay.Prefix)
	assert.Equal(t, 2*time.Minute, cfg.Canvas.FetchTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 1, cfg.Refresh.Workers)
}

func TestUnknownCanvasModeFallsBackToRelay(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("CANVAS_MODE", "carrier-pigeon")

	assert.Equal(t, CanvasModeRelay, fromViper(v).Canvas.Mode)
}
