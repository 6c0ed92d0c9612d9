package emb

import (
	"os"

	"github.com/pkg/errors"
	"github.com/txix-open/emb/topology"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log          LogConfig           `yaml:"log"`
	Listen       string              `yaml:"listen"`
	VirtualHosts []VirtualHostConfig `yaml:"virtualHosts"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type VirtualHostConfig struct {
	Name                  string `yaml:"name"`
	topology.Declarations `yaml:",inline"`
}

func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
		Listen: "127.0.0.1:5673",
	}
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WithMessagef(err, "read config %s", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.WithMessagef(err, "config %s", path)
	}
	return cfg, nil
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return Config{}, errors.WithMessage(err, "unmarshal yaml")
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, errors.WithMessage(err, "validate")
	}
	return cfg, nil
}

// Validate checks what can be checked before the topology is declared.
func (c Config) Validate() error {
	seen := make(map[string]bool)
	for _, vh := range c.VirtualHosts {
		if vh.Name == "" {
			return errors.New("virtual host name is empty")
		}
		if seen[vh.Name] {
			return errors.WithMessagef(ErrVirtualHostExists, "virtual host '%s'", vh.Name)
		}
		seen[vh.Name] = true

		for _, exchange := range vh.Exchanges {
			if exchange.Name == topology.DefaultExchangeName {
				return errors.WithMessagef(ErrReservedExchangeName, "virtual host '%s'", vh.Name)
			}
			if !topology.IsSupportedKind(exchange.Type) {
				return errors.Errorf("virtual host '%s': exchange '%s' has unsupported type '%s'", vh.Name, exchange.Name, exchange.Type)
			}
		}
		for _, queue := range vh.Queues {
			if queue.Name == "" {
				return errors.Errorf("virtual host '%s': queue name is empty", vh.Name)
			}
			if queue.RetryPolicy != nil {
				err := queue.RetryPolicy.Validate()
				if err != nil {
					return errors.WithMessagef(err, "virtual host '%s': queue '%s'", vh.Name, queue.Name)
				}
			}
		}
	}
	return nil
}

// Options returns broker options declaring every configured virtual host.
func (c Config) Options() []BrokerOption {
	options := make([]BrokerOption, 0, len(c.VirtualHosts))
	for _, vh := range c.VirtualHosts {
		options = append(options, WithDeclarations(vh.Name, vh.Declarations))
	}
	return options
}
