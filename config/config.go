package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/go-errors/errors"
	"github.com/tkanos/gonfig"

	"chainpe.com/payment-gateway/log"
)

const defaultHorizonUrl = "https://horizon-testnet.stellar.org"
const defaultSettlementAssetCode = "USDC"
const defaultSettlementAssetIssuer = "GBBD47IF6LWK7P7MDEVSCWR7DPUWV3NY3DTQEVFL4NAT4AQH3ZLLFLA5"

type jsonConfiguration struct {
	Port                  int
	DatabasePath          string
	HorizonUrl            string
	SettlementAssetCode   string
	SettlementAssetIssuer string
	AddressRefreshPeriod  Duration
	PollInterval          Duration
	ErrorBackoff          Duration
	PageLimit             int
	StartCursor           string
	AmountTolerance       string
	NativeAssetRate       string
	SessionExpiry         Duration
	WebhookTimeout        Duration
	WebhookRetryLimit     int
	JaegerUrl             string
	JaegerServiceName     string
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return errors.New("invalid duration")
	}
}

type LedgerConfig struct {
	HorizonUrl            string
	SettlementAssetCode   string
	SettlementAssetIssuer string
	PollInterval          time.Duration
	ErrorBackoff          time.Duration
	PageLimit             int
	StartCursor           string
	AddressRefreshPeriod  time.Duration
}

type ReconcilerConfig struct {
	AmountTolerance string
	NativeAssetRate string
	SessionExpiry   time.Duration
}

type WebhookConfig struct {
	Timeout    time.Duration
	RetryLimit int
}

type JaegerConfig struct {
	Url         string
	ServiceName string
}

type Configuration struct {
	Port         int
	DatabasePath string
	Ledger       LedgerConfig
	Reconciler   ReconcilerConfig
	Webhook      WebhookConfig
	JaegerConfig *JaegerConfig
}

func DefaultCfg() *Configuration {
	return &Configuration{
		Port:         8600,
		DatabasePath: "./payment_gateway.db",
		Ledger: LedgerConfig{
			HorizonUrl:            defaultHorizonUrl,
			SettlementAssetCode:   defaultSettlementAssetCode,
			SettlementAssetIssuer: defaultSettlementAssetIssuer,
			PollInterval:          5 * time.Second,
			ErrorBackoff:          2 * time.Second,
			PageLimit:             100,
			StartCursor:           "now",
			AddressRefreshPeriod:  time.Minute,
		},
		Reconciler: ReconcilerConfig{
			AmountTolerance: "0.01",
			NativeAssetRate: "10",
			SessionExpiry:   15 * time.Minute,
		},
		Webhook: WebhookConfig{
			Timeout:    10 * time.Second,
			RetryLimit: 3,
		},
	}
}

func ParseConfiguration(configFile string) (*Configuration, error) {
	rawConfig := jsonConfiguration{}

	err := gonfig.GetConf(configFile, &rawConfig)
	if err != nil {
		log.Error("Read json config error: ", err)
		return nil, err
	}

	instance := &Configuration{
		Port:         rawConfig.Port,
		DatabasePath: rawConfig.DatabasePath,
		Ledger: LedgerConfig{
			HorizonUrl:            rawConfig.HorizonUrl,
			SettlementAssetCode:   rawConfig.SettlementAssetCode,
			SettlementAssetIssuer: rawConfig.SettlementAssetIssuer,
			PollInterval:          rawConfig.PollInterval.Duration,
			ErrorBackoff:          rawConfig.ErrorBackoff.Duration,
			PageLimit:             rawConfig.PageLimit,
			StartCursor:           rawConfig.StartCursor,
			AddressRefreshPeriod:  rawConfig.AddressRefreshPeriod.Duration,
		},
		Reconciler: ReconcilerConfig{
			AmountTolerance: rawConfig.AmountTolerance,
			NativeAssetRate: rawConfig.NativeAssetRate,
			SessionExpiry:   rawConfig.SessionExpiry.Duration,
		},
		Webhook: WebhookConfig{
			Timeout:    rawConfig.WebhookTimeout.Duration,
			RetryLimit: rawConfig.WebhookRetryLimit,
		},
	}

	if rawConfig.JaegerUrl != "" {
		instance.JaegerConfig = &JaegerConfig{
			Url:         rawConfig.JaegerUrl,
			ServiceName: rawConfig.JaegerServiceName,
		}
	}

	defCfg := DefaultCfg()
	if instance.Port == 0 {
		instance.Port = defCfg.Port
	}
	if instance.DatabasePath == "" {
		instance.DatabasePath = defCfg.DatabasePath
	}
	if instance.Ledger.HorizonUrl == "" {
		instance.Ledger.HorizonUrl = defCfg.Ledger.HorizonUrl
	}
	if instance.Ledger.SettlementAssetCode == "" {
		instance.Ledger.SettlementAssetCode = defCfg.Ledger.SettlementAssetCode
	}
	if instance.Ledger.SettlementAssetIssuer == "" {
		instance.Ledger.SettlementAssetIssuer = defCfg.Ledger.SettlementAssetIssuer
	}
	if instance.Ledger.PollInterval == 0 {
		instance.Ledger.PollInterval = defCfg.Ledger.PollInterval
	}
	if instance.Ledger.ErrorBackoff == 0 {
		instance.Ledger.ErrorBackoff = defCfg.Ledger.ErrorBackoff
	}
	if instance.Ledger.PageLimit == 0 {
		instance.Ledger.PageLimit = defCfg.Ledger.PageLimit
	}
	if instance.Ledger.StartCursor == "" {
		instance.Ledger.StartCursor = defCfg.Ledger.StartCursor
	}
	if instance.Ledger.AddressRefreshPeriod == 0 {
		instance.Ledger.AddressRefreshPeriod = defCfg.Ledger.AddressRefreshPeriod
	}
	if instance.Reconciler.AmountTolerance == "" {
		instance.Reconciler.AmountTolerance = defCfg.Reconciler.AmountTolerance
	}
	if instance.Reconciler.NativeAssetRate == "" {
		instance.Reconciler.NativeAssetRate = defCfg.Reconciler.NativeAssetRate
	}
	if instance.Reconciler.SessionExpiry == 0 {
		instance.Reconciler.SessionExpiry = defCfg.Reconciler.SessionExpiry
	}
	if instance.Webhook.Timeout == 0 {
		instance.Webhook.Timeout = defCfg.Webhook.Timeout
	}
	if instance.Webhook.RetryLimit == 0 {
		instance.Webhook.RetryLimit = defCfg.Webhook.RetryLimit
	}

	return instance, nil
}

func ParseConfig() (*Configuration, error) {
	configPath := "config.json"
	if len(os.Args) == 2 {
		configPath = os.Args[1]
	}
	config, err := ParseConfiguration(configPath)
	if err != nil {
		log.Warnf("Error reading configuration file (%s), using defaults: %v", configPath, err)
		return DefaultCfg(), nil
	}
	return config, nil
}
