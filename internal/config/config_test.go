package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	s := Load(v)

	if s.SchemaTTL != 300*time.Second {
		t.Errorf("SchemaTTL = %v, want 300s", s.SchemaTTL)
	}
	if s.QueryTimeout != 30*time.Second {
		t.Errorf("QueryTimeout = %v, want 30s", s.QueryTimeout)
	}
	if s.MaxChatHistory != 50 {
		t.Errorf("MaxChatHistory = %d, want 50", s.MaxChatHistory)
	}
	if s.MaxConversationHistory != 10 {
		t.Errorf("MaxConversationHistory = %d, want 10", s.MaxConversationHistory)
	}
	if s.SessionIdleTimeout != 60*time.Minute {
		t.Errorf("SessionIdleTimeout = %v, want 60m", s.SessionIdleTimeout)
	}
	if s.PoolSize != 5 || s.PoolOverflow != 10 {
		t.Errorf("pool settings = %d/%d, want 5/10", s.PoolSize, s.PoolOverflow)
	}
}

func TestOverride(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("server.port", 9999)
	v.Set("ai.model", "test-model")

	s := Load(v)
	if s.Port != 9999 {
		t.Errorf("Port = %d, want 9999", s.Port)
	}
	if s.AIModel != "test-model" {
		t.Errorf("AIModel = %q, want test-model", s.AIModel)
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "connections.yaml")
	content := `connections:
  staging:
    driver: mysql
    user: app
    password: secret
    host: db.staging.local
    port: 3306
    database: appdb
  local:
    driver: sqlite
    database: ":memory:"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}
	staging := profiles["staging"]
	if staging.Host != "db.staging.local" || staging.Database != "appdb" {
		t.Errorf("staging profile = %+v", staging)
	}
	if staging.Driver != "mysql" {
		t.Errorf("staging driver = %q, want mysql", staging.Driver)
	}
}

func TestLoadProfilesMissingFile(t *testing.T) {
	profiles, err := LoadProfiles(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadProfiles on missing file: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("got %d profiles, want 0", len(profiles))
	}
}
