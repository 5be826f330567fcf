package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "POLLING"
	ConfigName = "application"
)

type Application struct {
	Log     Log     `mapstructure:"log"`
	Metrics Metrics `mapstructure:"metrics"`
	Source  Source  `mapstructure:"source"`
	Poller  Poller  `mapstructure:"poller"`
	Output  Output  `mapstructure:"output"`
}

type Log struct {
	Level   string `mapstructure:"level"`
	Encoder string `mapstructure:"encoder"`
}

// Metrics serves the tally scope as prometheus metrics on Address,
// disabled when empty.
type Metrics struct {
	Address  string        `mapstructure:"address"`
	Interval time.Duration `mapstructure:"interval"`
}

type Source struct {
	Name string `mapstructure:"name"`
	// Descriptor is the path of the yaml logic descriptor.
	Descriptor string   `mapstructure:"descriptor"`
	Libraries  []string `mapstructure:"libraries"`
	Mapping    string   `mapstructure:"mapping"`
}

type Poller struct {
	Period       time.Duration `mapstructure:"period"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Iterations   int           `mapstructure:"iterations"`
	Mode         string        `mapstructure:"mode"`
	ErrorPolicy  string        `mapstructure:"error_policy"`
}

type Output struct {
	Kind   string `mapstructure:"kind"`
	Kafka  Kafka  `mapstructure:"kafka"`
	NutsDB NutsDB `mapstructure:"nutsdb"`
}

type Kafka struct {
	Addresses []string `mapstructure:"addresses"`
	Topic     string   `mapstructure:"topic"`
	Key       string   `mapstructure:"key"`
}

type NutsDB struct {
	Dir    string `mapstructure:"dir"`
	Bucket string `mapstructure:"bucket"`
}

// every key needs a default, env vars are only bound to keys viper knows.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoder", "console")
	v.SetDefault("metrics.address", "")
	v.SetDefault("metrics.interval", time.Second)
	v.SetDefault("source.name", "")
	v.SetDefault("source.descriptor", "")
	v.SetDefault("source.libraries", []string{})
	v.SetDefault("source.mapping", "string")
	v.SetDefault("poller.period", time.Second)
	v.SetDefault("poller.initial_delay", time.Duration(0))
	v.SetDefault("poller.iterations", 0)
	v.SetDefault("poller.mode", "fixed-delay")
	v.SetDefault("poller.error_policy", "continue")
	v.SetDefault("output.kind", "logger")
	v.SetDefault("output.kafka.addresses", []string{})
	v.SetDefault("output.kafka.topic", "")
	v.SetDefault("output.kafka.key", "")
	v.SetDefault("output.nutsdb.dir", "./data")
	v.SetDefault("output.nutsdb.bucket", "")
}

// Load reads the yaml file at path, or application.yml from . and ./config/
// when path is empty. Every key can be overridden by a POLLING_ env var,
// e.g. POLLING_POLLER_PERIOD.
func Load(path string) (Application, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
		v.AddConfigPath("./config/")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Application{}, errors.WithMessage(err, "failed to read config")
		}
	}
	application := Application{}
	if err := v.Unmarshal(&application); err != nil {
		return Application{}, errors.WithMessage(err, "failed to unmarshal config")
	}
	if err := application.Validate(); err != nil {
		return Application{}, err
	}
	return application, nil
}

func (a Application) Validate() error {
	if a.Source.Descriptor == "" {
		return errors.New("source.descriptor can't be empty")
	}
	if a.Poller.Period <= 0 && a.Poller.Iterations == 0 {
		return errors.New("poller.period must be positive when iterations are unbounded")
	}
	switch a.Output.Kind {
	case "logger":
	case "kafka":
		if len(a.Output.Kafka.Addresses) == 0 || a.Output.Kafka.Topic == "" {
			return errors.New("output.kafka needs addresses and topic")
		}
	case "nutsdb":
		if a.Output.NutsDB.Dir == "" {
			return errors.New("output.nutsdb.dir can't be empty")
		}
	default:
		return errors.Errorf("unknown output kind %q", a.Output.Kind)
	}
	return nil
}
