package commands

import (
	"fmt"
	"time"

	"partwatch/internal/catalog"
	"partwatch/internal/components/telemetry"
	"partwatch/internal/notify"
	"partwatch/internal/pipeline"
	"partwatch/internal/scheduler"
	"partwatch/internal/store"
	"partwatch/pkg/configutil"
)

const ENV_PREFIX = "PARTWATCH"

type HttpConfig struct {
	Port int `json:"port"`
}

type Config struct {
	BaseUrl           string               `json:"base_url"`
	Categories        []catalog.Category   `json:"categories"`
	Credentials       pipeline.Credentials `json:"credentials"`
	Store             store.Config         `json:"store"`
	RunTimeoutSeconds int                  `json:"run_timeout_seconds"`
	Schedule          string               `json:"schedule"`
	Http              HttpConfig           `json:"http"`
	Email             notify.SmtpConfig    `json:"email"`
	Telemetry         telemetry.Config     `json:"telemetry"`
}

// Secrets are the values that may come from the environment instead of the config
// file. FIXCON_ID and FIXCON_PW are read both with and without the PARTWATCH_ prefix.
type Secrets struct {
	Id             string `envconfig:"FIXCON_ID"`
	Secret         string `envconfig:"FIXCON_PW"`
	StoreAuthToken string `envconfig:"STORE_AUTH_TOKEN"`
}

func (c Config) RunTimeout() time.Duration {
	if c.RunTimeoutSeconds <= 0 {
		return pipeline.DEFAULT_TIMEOUT
	}
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

func (c Config) withDefaults() Config {
	if c.Schedule == "" {
		c.Schedule = scheduler.DEFAULT_SPEC
	}
	if c.Http.Port == 0 {
		c.Http.Port = 8000
	}
	if c.Store.File == "" && c.Store.Url == "" {
		c.Store.File = "partwatch.db"
	}
	if len(c.Categories) == 0 {
		c.Categories = catalog.DefaultCategories
	}
	return c
}

func readConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if cfg.BaseUrl == "" {
		return Config{}, fmt.Errorf("read config: base_url is required")
	}

	secrets := Secrets{
		Id:             cfg.Credentials.Id,
		Secret:         cfg.Credentials.Secret,
		StoreAuthToken: cfg.Store.AuthToken,
	}
	err = configutil.OverlayEnv(ENV_PREFIX, &secrets)
	if err != nil {
		return Config{}, err
	}
	cfg.Credentials = pipeline.Credentials{Id: secrets.Id, Secret: secrets.Secret}
	cfg.Store.AuthToken = secrets.StoreAuthToken

	return cfg.withDefaults(), nil
}
