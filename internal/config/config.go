package config

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	koanf "github.com/knadh/koanf/v2"

	"github.com/meili-operator/meilisearch-operator/pkg/consts"
)

type Meili struct {
	// Image used for Servers that don't set spec.image
	DefaultImage string `koanf:"defaultImage"`
	// Request timeout for calls against the Meilisearch HTTP API
	ClientTimeoutSeconds int `koanf:"clientTimeoutSeconds"`
}

type Config struct {
	// Namespace holding the mirrored master key Secrets
	OperatorNamespace string `koanf:"operatorNamespace"`
	Meili             *Meili `koanf:"meili"`

	// Requeue interval while waiting for a Server to become healthy
	HealthRequeueSeconds int `koanf:"healthRequeueSeconds"`
	// Resync interval for objects in steady state
	ReadyRequeueSeconds int `koanf:"readyRequeueSeconds"`

	ValidationWebhookTimeoutSeconds int `koanf:"validationWebhookTimeoutSeconds"`
}

var (
	DefaultConfig = Config{
		OperatorNamespace: "meilisearch-operator",
		Meili: &Meili{
			DefaultImage:         consts.DefaultImage,
			ClientTimeoutSeconds: 5,
		},
		HealthRequeueSeconds:            10,
		ReadyRequeueSeconds:             300,
		ValidationWebhookTimeoutSeconds: 5,
	}
)

func GetConfig(configPath string) (*Config, error) {
	k := koanf.New(".")
	parser := yaml.Parser()
	cfg := &Config{}

	if err := k.Load(structs.Provider(DefaultConfig, "koanf"), nil); err != nil {
		return nil, err
	}

	if err := k.Load(file.Provider(configPath), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
