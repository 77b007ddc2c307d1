package config

import (
	"encoding/hex"
	"runtime"
	"strings"

	"github.com/chararch/twig/file"
	"github.com/chararch/twig/internal/logs"
	"github.com/chararch/twig/util"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//EnvPrefix environment variables overriding the configuration file, TWIG_INPUT_DIR overrides input.dir
const EnvPrefix = "TWIG"

//storage types
const (
	StorageLocal = "local"
	StorageFTP   = "ftp"
)

//log formats
const (
	LogText = "text"
	LogJSON = "json"
)

//Config settings of the twig CLI
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	//LogFormat text or json
	LogFormat string `mapstructure:"log_format"`
	Workers   int    `mapstructure:"workers"`
	//Threshold accumulated size that triggers a checkpoint
	Threshold int `mapstructure:"threshold"`
	//MinAvailableMemory dispatch suspends while the available system memory ratio is below it, 0 disables
	MinAvailableMemory float64 `mapstructure:"min_available_memory"`
	//HeapLimit dispatch suspends while the Go heap in use reaches it, 0 disables
	HeapLimit uint64 `mapstructure:"heap_limit"`
	//Salt hex encoded anonymization salt, a random one is generated when empty
	Salt     string        `mapstructure:"salt"`
	MySQLDSN string        `mapstructure:"mysql_dsn"`
	Input    InputConfig   `mapstructure:"input"`
	Output   OutputConfig  `mapstructure:"output"`
	Storage  StorageConfig `mapstructure:"storage"`
}

type InputConfig struct {
	Dir     string `mapstructure:"dir"`
	Pattern string `mapstructure:"pattern"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
	//Pattern file name of a checkpoint without extension, {index} is the rotation index, {name} the run name, {date} the run start, {run} a unique run key
	Pattern      string `mapstructure:"pattern"`
	Checksum     string `mapstructure:"checksum"`
	SkipExisting bool   `mapstructure:"skip_existing"`
}

type StorageConfig struct {
	Type     string `mapstructure:"type"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	//Timeout FTP dial timeout in seconds
	Timeout int `mapstructure:"timeout"`
}

var defaults = map[string]interface{}{
	"log_level":            "info",
	"log_format":           LogText,
	"workers":              runtime.NumCPU(),
	"threshold":            1000000,
	"min_available_memory": 0.1,
	"heap_limit":           0,
	"salt":                 "",
	"mysql_dsn":            "",
	"input.dir":            ".",
	"input.pattern":        "*",
	"output.dir":           "out",
	"output.pattern":       "{name}_{index}",
	"output.checksum":      "",
	"output.skip_existing": true,
	"storage.type":         StorageLocal,
	"storage.host":         "",
	"storage.port":         21,
	"storage.user":         "",
	"storage.password":     "",
	"storage.timeout":      30,
}

//Load reads the YAML file at path, an empty path means defaults plus environment only
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %v", path)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	cfg.Output.Checksum = strings.ToUpper(cfg.Output.Checksum)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//Validate checks the configuration
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Threshold <= 0 {
		return errors.Errorf("threshold must be positive, got %d", c.Threshold)
	}
	if c.MinAvailableMemory < 0 || c.MinAvailableMemory >= 1 {
		return errors.Errorf("min_available_memory must be in [0, 1), got %v", c.MinAvailableMemory)
	}
	if c.Salt != "" {
		if _, err := hex.DecodeString(c.Salt); err != nil {
			return errors.Wrap(err, "salt must be hex encoded")
		}
	}
	if _, err := logs.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !util.Contains([]string{LogText, LogJSON}, c.LogFormat) {
		return errors.Errorf("unsupported log_format: %v", c.LogFormat)
	}
	if !util.Contains([]string{StorageLocal, StorageFTP}, c.Storage.Type) {
		return errors.Errorf("unsupported storage type: %v", c.Storage.Type)
	}
	if c.Storage.Type == StorageFTP && c.Storage.Host == "" {
		return errors.New("storage.host is required for ftp storage")
	}
	if c.Output.Pattern == "" || !strings.Contains(c.Output.Pattern, "{index") {
		return errors.Errorf("output.pattern must contain {index}, got %q", c.Output.Pattern)
	}
	if c.Output.Checksum != "" && file.GetChecksumer(c.Output.Checksum) == nil {
		return errors.Errorf("unknown output.checksum: %v", c.Output.Checksum)
	}
	return nil
}
