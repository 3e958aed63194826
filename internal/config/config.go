package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Bot holds gateway-side settings.
type Bot struct {
	Token      string
	GuildID    string
	WrapperURL string
}

// Server holds wrapper-service settings.
type Server struct {
	Addr               string
	Mode               string
	DataDir            string
	WorkDir            string
	ExecutorCommand    string
	AllowedProjectDirs string
	JWTSecret          string
}

const (
	ModeLocal        = "local"
	ModeOrchestrator = "orchestrator"
)

// SetDefaults registers config defaults on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("wrapper-url", "http://localhost:8000")
	v.SetDefault("addr", "0.0.0.0:8000")
	v.SetDefault("mode", ModeLocal)
	v.SetDefault("data-dir", ".taskrelay")
	v.SetDefault("work-dir", "/tmp/taskrelay-tasks")
	v.SetDefault("executor", "claude")
}

// LoadBot reads bot settings.
func LoadBot(v *viper.Viper) (Bot, error) {
	cfg := Bot{
		Token:      v.GetString("token"),
		GuildID:    v.GetString("guild-id"),
		WrapperURL: v.GetString("wrapper-url"),
	}
	if cfg.Token == "" {
		return cfg, fmt.Errorf("bot token is required (set TASKRELAY_TOKEN or --token)")
	}
	return cfg, nil
}

// LoadServer reads wrapper-service settings.
func LoadServer(v *viper.Viper) (Server, error) {
	cfg := Server{
		Addr:               v.GetString("addr"),
		Mode:               v.GetString("mode"),
		DataDir:            v.GetString("data-dir"),
		WorkDir:            v.GetString("work-dir"),
		ExecutorCommand:    v.GetString("executor"),
		AllowedProjectDirs: v.GetString("allowed-project-dirs"),
		JWTSecret:          v.GetString("jwt-secret"),
	}
	if cfg.Mode != ModeLocal && cfg.Mode != ModeOrchestrator {
		return cfg, fmt.Errorf("mode must be %q or %q", ModeLocal, ModeOrchestrator)
	}
	return cfg, nil
}

// AllowedDirs parses the comma-separated project dir allowlist. Empty
// means no restriction.
func (s Server) AllowedDirs() []string {
	if strings.TrimSpace(s.AllowedProjectDirs) == "" {
		return nil
	}
	var dirs []string
	for _, d := range strings.Split(s.AllowedProjectDirs, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			continue
		}
		dirs = append(dirs, abs)
	}
	return dirs
}

// IsPathAllowed reports whether path falls under an allowed directory.
func (s Server) IsPathAllowed(path string) bool {
	dirs := s.AllowedDirs()
	if len(dirs) == 0 {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, abs)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}
