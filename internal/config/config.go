// Package config loads ampm's runtime configuration: the remote
// repository endpoint, transport tuning, and the local cache root.
// It is a deliberately small viper-backed loader — unlike the
// teacher's server-oriented pkg/config (database/telemetry/admin
// bootstrap), a CLI only ever needs a handful of values, read from
// AMPM_* environment variables (which take precedence) and an optional
// ~/.ampmrc file. Command-line flags are not read here: cmd/ampm's
// cmdutil.OpenGroup overlays explicitly set flags on the loaded Config.
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/Wazzaps/ampm/internal/bytesize"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// DefaultChunkSize is used when AMPM_CHUNK_SIZE is unset.
	DefaultChunkSize = 32 * bytesize.KiB
	// MaxChunkSize clamps AMPM_CHUNK_SIZE to a sane upper bound.
	MaxChunkSize = 1 * bytesize.GiB
	// DefaultLocalRoot is used when AMPM_LOCAL_ROOT is unset.
	DefaultLocalRoot = "/var/ampm"
)

// Config is ampm's full runtime configuration.
type Config struct {
	// Server is the remote repository URI, e.g. "nfs://host/mount#repo".
	// Empty when only the local cache is usable (or --offline is set).
	Server string `mapstructure:"server"`

	// ChunkSize is the NFS read/write chunk size used by the transport's
	// adaptive retry policy.
	ChunkSize bytesize.ByteSize `mapstructure:"chunk_size"`

	// LocalRoot is the local artifact cache directory.
	LocalRoot string `mapstructure:"local_root"`

	// Offline disables all remote repository access.
	Offline bool `mapstructure:"offline"`
}

// Load builds a *viper.Viper bound to AMPM_* environment variables and
// (if present) ~/.ampmrc, then unmarshals it into a Config seeded with
// defaults. v is returned so callers can watch ~/.ampmrc for changes
// (search --watch passes it to WatchRcFile).
func Load() (*Config, *viper.Viper, error) {
	v := viper.New()
	setupViper(v)

	cfg := defaultConfig()
	if err := readRcFile(v); err != nil {
		return nil, nil, err
	}
	if err := v.Unmarshal(cfg, viper.DecodeHook(chunkSizeDecodeHook())); err != nil {
		return nil, nil, err
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkSize > MaxChunkSize {
		cfg.ChunkSize = MaxChunkSize
	}
	if cfg.LocalRoot == "" {
		cfg.LocalRoot = DefaultLocalRoot
	}
	return cfg, v, nil
}

func defaultConfig() *Config {
	return &Config{
		ChunkSize: DefaultChunkSize,
		LocalRoot: DefaultLocalRoot,
	}
}

func setupViper(v *viper.Viper) {
	v.SetEnvPrefix("AMPM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows about; binding each
	// key makes AMPM_* values that exist only in the environment count.
	for _, key := range []string{"server", "chunk_size", "local_root", "offline"} {
		_ = v.BindEnv(key)
	}

	v.SetConfigName(".ampmrc")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")
}

func readRcFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

// WatchRcFile invokes onChange whenever ~/.ampmrc is edited, letting a
// long-lived process (the search command's HTML-index regeneration
// loop) pick up a new AMPM_SERVER/AMPM_CHUNK_SIZE without restarting,
// mirroring viper's own fsnotify-backed WatchConfig.
func WatchRcFile(v *viper.Viper, onChange func(fsnotify.Event)) {
	v.OnConfigChange(onChange)
	v.WatchConfig()
}

// chunkSizeDecodeHook lets "32KiB"-style strings bind directly into a
// bytesize.ByteSize field via mapstructure, same convention as the
// teacher's own byteSizeDecodeHook/durationDecodeHook pair.
func chunkSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch val := data.(type) {
		case string:
			return bytesize.ParseByteSize(val)
		case int:
			return bytesize.ByteSize(val), nil
		case int64:
			return bytesize.ByteSize(val), nil
		case uint64:
			return bytesize.ByteSize(val), nil
		case float64:
			return bytesize.ByteSize(val), nil
		default:
			return data, nil
		}
	}
}

// rcFilePath returns the default ~/.ampmrc path, exposed for `ampm config`-
// style diagnostics and for tests that want to stage a real file on disk.
func rcFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ampmrc"
	}
	return filepath.Join(home, ".ampmrc")
}
