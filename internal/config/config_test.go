package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadBotRequiresToken(t *testing.T) {
	v := newViper()
	_, err := LoadBot(v)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bot token is required")

	v.Set("token", "abc")
	cfg, err := LoadBot(v)
	require.NoError(t, err)
	require.Equal(t, "abc", cfg.Token)
	require.Equal(t, "http://localhost:8000", cfg.WrapperURL)
}

func TestLoadServerValidatesMode(t *testing.T) {
	v := newViper()
	cfg, err := LoadServer(v)
	require.NoError(t, err)
	require.Equal(t, ModeLocal, cfg.Mode)
	require.Equal(t, "0.0.0.0:8000", cfg.Addr)
	require.Equal(t, "claude", cfg.ExecutorCommand)

	v.Set("mode", "hybrid")
	_, err = LoadServer(v)
	require.Error(t, err)

	v.Set("mode", ModeOrchestrator)
	cfg, err = LoadServer(v)
	require.NoError(t, err)
	require.Equal(t, ModeOrchestrator, cfg.Mode)
}

func TestAllowedDirs(t *testing.T) {
	s := Server{AllowedProjectDirs: ""}
	require.Nil(t, s.AllowedDirs())

	s.AllowedProjectDirs = "/srv/projects, /home/dev , "
	dirs := s.AllowedDirs()
	require.Len(t, dirs, 2)
	require.Equal(t, "/srv/projects", dirs[0])
	require.Equal(t, "/home/dev", dirs[1])
}

func TestIsPathAllowed(t *testing.T) {
	base := t.TempDir()
	s := Server{AllowedProjectDirs: base}

	require.True(t, s.IsPathAllowed(base))
	require.True(t, s.IsPathAllowed(filepath.Join(base, "svc")))
	require.False(t, s.IsPathAllowed(filepath.Dir(base)))
	require.False(t, s.IsPathAllowed("/etc"))

	// Sibling with a shared prefix must not match.
	require.False(t, s.IsPathAllowed(base+"-evil"))

	// No allowlist means everything passes.
	require.True(t, Server{}.IsPathAllowed("/anywhere"))
}
