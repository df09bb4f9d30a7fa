package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseConfiguration(t *testing.T) {
	assert := assert.New(t)

	path := writeConfig(t, `{
		"Port": 9000,
		"DatabasePath": "/tmp/test.db",
		"HorizonUrl": "https://horizon.stellar.org",
		"PollInterval": "2s",
		"SessionExpiry": "30m",
		"WebhookTimeout": "5s",
		"WebhookRetryLimit": 5,
		"AmountTolerance": "0.05"
	}`)

	cfg, err := ParseConfiguration(path)
	assert.NoError(err)
	assert.Equal(9000, cfg.Port)
	assert.Equal("/tmp/test.db", cfg.DatabasePath)
	assert.Equal("https://horizon.stellar.org", cfg.Ledger.HorizonUrl)
	assert.Equal(2*time.Second, cfg.Ledger.PollInterval)
	assert.Equal(30*time.Minute, cfg.Reconciler.SessionExpiry)
	assert.Equal("0.05", cfg.Reconciler.AmountTolerance)
	assert.Equal(5*time.Second, cfg.Webhook.Timeout)
	assert.Equal(5, cfg.Webhook.RetryLimit)
}

func TestParseConfigurationFillsDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg, err := ParseConfiguration(writeConfig(t, `{}`))
	assert.NoError(err)

	def := DefaultCfg()
	assert.Equal(def.Port, cfg.Port)
	assert.Equal(def.Ledger.SettlementAssetCode, cfg.Ledger.SettlementAssetCode)
	assert.Equal(def.Ledger.SettlementAssetIssuer, cfg.Ledger.SettlementAssetIssuer)
	assert.Equal(def.Ledger.StartCursor, cfg.Ledger.StartCursor)
	assert.Equal(def.Reconciler.AmountTolerance, cfg.Reconciler.AmountTolerance)
	assert.Equal(def.Reconciler.NativeAssetRate, cfg.Reconciler.NativeAssetRate)
	assert.Equal(def.Webhook.RetryLimit, cfg.Webhook.RetryLimit)
	assert.Nil(cfg.JaegerConfig)
}

func TestParseConfigurationMissingFile(t *testing.T) {
	_, err := ParseConfiguration(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestDurationUnmarshal(t *testing.T) {
	assert := assert.New(t)

	var d Duration
	assert.NoError(d.UnmarshalJSON([]byte(`"90s"`)))
	assert.Equal(90*time.Second, d.Duration)

	assert.NoError(d.UnmarshalJSON([]byte(`1000000000`)))
	assert.Equal(time.Second, d.Duration)

	assert.Error(d.UnmarshalJSON([]byte(`true`)))
}
