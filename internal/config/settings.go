package config

import (
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings are the persisted options read from sevsync.yml. They back the
// environment: a value set here is used only when the corresponding
// environment variable is empty.
type Settings struct {
	APIKey                  string `mapstructure:"apiKey"`
	FallbackContactPersonID int64  `mapstructure:"fallbackContactPersonId"`
}

// SettingsHolder keeps the current persisted settings and resolves the
// effective sevdesk credential. The file is watched, so an API key added at
// runtime enables the integration without a restart.
type SettingsHolder struct {
	cfg     Config
	current atomic.Value // holds Settings
}

func NewSettingsHolder(cfg Config) (*SettingsHolder, error) {
	v := viper.New()

	v.SetConfigName("sevsync")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/sevsync/config")
	v.AddConfigPath("/etc/sevsync")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SEVSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &SettingsHolder{cfg: cfg}
	holder.current.Store(Settings{})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// no settings file: environment remains the only source
		return holder, nil
	}

	var settings Settings
	if err := v.UnmarshalKey("sevdesk", &settings); err != nil {
		return nil, err
	}
	holder.current.Store(settings)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Settings
		if err := v.UnmarshalKey("sevdesk", &updated); err != nil {
			log.Printf("[sevsync-config] reload failed: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[sevsync-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *SettingsHolder) Get() Settings {
	return h.current.Load().(Settings)
}

// APIKey resolves the sevdesk credential: environment first, persisted
// setting second. Empty means the integration is disabled.
func (h *SettingsHolder) APIKey() string {
	if h.cfg.Sevdesk.APIKey != "" {
		return h.cfg.Sevdesk.APIKey
	}
	return strings.TrimSpace(h.Get().APIKey)
}

// FallbackContactPersonID resolves the account-specific default SevUser,
// environment first, persisted setting second. Zero means unconfigured.
func (h *SettingsHolder) FallbackContactPersonID() int64 {
	if h.cfg.Sevdesk.FallbackContactPersonID != 0 {
		return h.cfg.Sevdesk.FallbackContactPersonID
	}
	return h.Get().FallbackContactPersonID
}
