package config

import (
	"encoding/base64"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Options controls where a Viper config reads from.
type Options struct {
	// Path is an optional config file. Empty means environment and defaults only.
	Path string
	// EnvFiles are dotenv files loaded into the process environment before
	// anything else. Missing files are ignored; existing variables win.
	EnvFiles []string
	// Defaults are applied with the lowest priority.
	Defaults map[string]any
	// EnvAliases binds a key to one or more explicit environment variable names,
	// first match wins. Keys are also bound automatically as
	// upper-cased names with "." replaced by "_".
	EnvAliases map[string][]string
}

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

// NewViper loads configuration from dotenv files, the environment and an
// optional config file, and returns a Viper-backed Config.
//
// The config file type is inferred by Viper from the filename extension.
func NewViper(opts Options) (*Viper, error) {
	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return nil, err
	}

	v := viper.New()

	for key, value := range opts.Defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range opts.EnvAliases {
		input := append([]string{key}, names...)
		if err := v.BindEnv(input...); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(opts.Path) != "" {
		filename := path.Base(opts.Path)
		configName := filename[:len(filename)-len(path.Ext(filename))]

		v.AddConfigPath(path.Dir(opts.Path))
		v.SetConfigName(configName)

		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		slog.Debug("config file loaded", "path", v.ConfigFileUsed())
	}

	return &Viper{v: v}, nil
}

func loadEnvFiles(files []string) error {
	existing := lo.Filter(files, func(file string, _ int) bool {
		_, err := os.Stat(file)
		return err == nil
	})
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// IsSet reports whether key has a value.
func (vc *Viper) IsSet(key string) bool {
	return vc.v.IsSet(key)
}

// GetInt returns the value for key as int.
func (vc *Viper) GetInt(key string) int {
	return vc.v.GetInt(key)
}

// GetInt32 returns the value for key as int32.
func (vc *Viper) GetInt32(key string) int32 {
	return vc.v.GetInt32(key)
}

// GetUint returns the value for key as uint.
func (vc *Viper) GetUint(key string) uint {
	return vc.v.GetUint(key)
}

// GetBool returns the value for key as bool.
func (vc *Viper) GetBool(key string) bool {
	return vc.v.GetBool(key)
}

// GetFloat64 returns the value for key as float64.
func (vc *Viper) GetFloat64(key string) float64 {
	return vc.v.GetFloat64(key)
}

// GetMillisecond returns the value for key as milliseconds.
func (vc *Viper) GetMillisecond(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Millisecond
}

// GetSecond returns the value for key as seconds.
func (vc *Viper) GetSecond(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Second
}

// GetMinute returns the value for key as minutes.
func (vc *Viper) GetMinute(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Minute
}

// GetString returns the value for key as string.
func (vc *Viper) GetString(key string) string {
	return vc.v.GetString(key)
}

// GetBinary returns the value for key decoded from base64.
func (vc *Viper) GetBinary(key string) []byte {
	data, err := base64.StdEncoding.DecodeString(vc.v.GetString(key))
	if err != nil {
		return nil
	}

	return data
}

// GetArray returns the value for key, either a YAML list or a comma separated
// string. Empty elements are dropped.
func (vc *Viper) GetArray(key string) []string {
	var raw []string
	if list, ok := vc.v.Get(key).([]any); ok {
		raw = lo.Map(list, func(item any, _ int) string {
			s, _ := item.(string)
			return s
		})
	} else {
		raw = strings.Split(vc.v.GetString(key), ",")
	}

	return lo.Compact(lo.Map(raw, func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}

// UnmarshalKey decodes the subtree at key into out.
func (vc *Viper) UnmarshalKey(key string, out any) error {
	return vc.v.UnmarshalKey(key, out)
}

// Close implements io.Closer for interface compatibility.
func (vc *Viper) Close() error {
	// No resources to close for ViperConfig; this is just for interface completeness.
	return nil
}
