package ops

import (
	"encoding/json"
	"os"
	"time"

	"github.com/SlimmithJimmith/Aibodes-sub001/internal/engine"
	"github.com/SlimmithJimmith/Aibodes-sub001/pkg/conn"
	"github.com/yanun0323/errors"
)

// FileConfig mirrors the JSON config layout. Secrets may name an
// environment variable instead of carrying the value inline.
type FileConfig struct {
	Sync    SyncConfig     `json:"sync"`
	Push    PushConfig     `json:"push"`
	Sources []SourceConfig `json:"sources"`
	Archive ArchiveConfig  `json:"archive"`
	Profile ProfileConfig  `json:"profiling"`
}

// SyncConfig tunes the periodic pull path.
type SyncConfig struct {
	IntervalSeconds      int `json:"intervalSeconds"`
	SourceTimeoutSeconds int `json:"sourceTimeoutSeconds"`
	EventBuffer          int `json:"eventBuffer"`
}

// PushConfig describes the websocket push channel. An empty URL disables it.
type PushConfig struct {
	URL                   string `json:"url"`
	Token                 string `json:"token"`
	TokenEnv              string `json:"tokenEnv"`
	UserID                string `json:"userId"`
	MaxRetries            int    `json:"maxRetries"`
	BaseRetryDelaySeconds int    `json:"baseRetryDelaySeconds"`
}

// SourceConfig describes one pull provider feed.
type SourceConfig struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	APIKey    string `json:"apiKey"`
	APIKeyEnv string `json:"apiKeyEnv"`
}

// ArchiveConfig describes the optional PostgreSQL archive sink.
type ArchiveConfig struct {
	Enabled     bool   `json:"enabled"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	User        string `json:"user"`
	Password    string `json:"password"`
	PasswordEnv string `json:"passwordEnv"`
	Database    string `json:"database"`
	SSLMode     string `json:"sslMode"`
}

// ProfileConfig enables continuous profiling.
type ProfileConfig struct {
	Enabled       bool   `json:"enabled"`
	ServerAddress string `json:"serverAddress"`
	Application   string `json:"application"`
}

// SourceSpec is a resolved provider feed definition.
type SourceSpec struct {
	Name   string
	URL    string
	APIKey string
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Engine         engine.Config
	Sources        []SourceSpec
	ArchiveEnabled bool
	Archive        conn.Option
	Profile        ProfileConfig
}

// Load reads a JSON config file and resolves it. Env-referenced secrets
// are read at load time, so call godotenv before this.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config file")
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "parse config file")
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	if len(cfg.Sources) == 0 {
		return Loaded{}, errors.New("config declares no sources")
	}

	sources := make([]SourceSpec, 0, len(cfg.Sources))
	seen := make(map[string]struct{}, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		if sc.Name == "" || sc.URL == "" {
			return Loaded{}, errors.Errorf("source %q needs name and url", sc.Name)
		}
		if _, dup := seen[sc.Name]; dup {
			return Loaded{}, errors.Errorf("duplicate source %q", sc.Name)
		}
		seen[sc.Name] = struct{}{}
		sources = append(sources, SourceSpec{
			Name:   sc.Name,
			URL:    sc.URL,
			APIKey: secret(sc.APIKey, sc.APIKeyEnv),
		})
	}

	loaded := Loaded{
		Engine: engine.Config{
			SyncInterval:   seconds(cfg.Sync.IntervalSeconds),
			SourceTimeout:  seconds(cfg.Sync.SourceTimeoutSeconds),
			EventBuffer:    cfg.Sync.EventBuffer,
			PushURL:        cfg.Push.URL,
			AuthToken:      secret(cfg.Push.Token, cfg.Push.TokenEnv),
			UserID:         cfg.Push.UserID,
			MaxRetries:     cfg.Push.MaxRetries,
			BaseRetryDelay: seconds(cfg.Push.BaseRetryDelaySeconds),
		},
		Sources: sources,
		Profile: cfg.Profile,
	}

	if cfg.Archive.Enabled {
		if cfg.Archive.Database == "" {
			return Loaded{}, errors.New("archive enabled without database")
		}
		loaded.ArchiveEnabled = true
		loaded.Archive = conn.Option{
			Host:     cfg.Archive.Host,
			Port:     cfg.Archive.Port,
			User:     cfg.Archive.User,
			Password: secret(cfg.Archive.Password, cfg.Archive.PasswordEnv),
			Database: cfg.Archive.Database,
			SSLMode:  cfg.Archive.SSLMode,
		}
	}

	if cfg.Profile.Enabled && cfg.Profile.ServerAddress == "" {
		return Loaded{}, errors.New("profiling enabled without server address")
	}

	return loaded, nil
}

// secret prefers the env-referenced value when the variable is set.
func secret(inline, envName string) string {
	if envName != "" {
		if v := os.Getenv(envName); v != "" {
			return v
		}
	}
	return inline
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
