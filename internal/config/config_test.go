package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mitchellh/go-homedir"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Practice.Profile != nil {
		t.Fatalf("expected unset profile")
	}
}

func TestLoadConfigDecodesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `[practice]
profile = "expert"
history = false
seed = 42

[log]
level = "debug"
max-backups = 7
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Practice.Profile == nil || *cfg.Practice.Profile != "expert" {
		t.Fatalf("unexpected profile: %v", cfg.Practice.Profile)
	}
	if cfg.Practice.History == nil || *cfg.Practice.History {
		t.Fatalf("expected history=false")
	}
	if cfg.Practice.Seed == nil || *cfg.Practice.Seed != 42 {
		t.Fatalf("unexpected seed: %v", cfg.Practice.Seed)
	}
	if cfg.Practice.WordList != nil {
		t.Fatalf("expected unset wordlist")
	}
	logCfg := cfg.Log.WithDefaults()
	if logCfg.Level != "debug" || logCfg.MaxBackups != 7 || logCfg.MaxSize != 5 {
		t.Fatalf("unexpected log config: %+v", logCfg)
	}
	if logCfg.File == "" {
		t.Fatalf("expected default log file")
	}
}

func TestLoadConfigRejectsEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestXDGPathsHonorEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	if got := DefaultConfigPath(); got != filepath.Join("/tmp/cfg", "keydrill", "config.toml") {
		t.Fatalf("unexpected config path: %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/tmp/data", "keydrill", "keydrill.db") {
		t.Fatalf("unexpected db path: %s", got)
	}
}

func TestLoadConfigFullTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `[practice]
profile = "intermediate"
wordlist = "~/words.txt"
history = true
seed = 7

[log]
level = "warn"
file = "/tmp/keydrill.log"
max-size = 1
max-backups = 2
max-age = 3
compress = true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	profile, wordlist, history, seed := "intermediate", "~/words.txt", true, int64(7)
	want := FileConfig{
		Practice: PracticeConfig{Profile: &profile, WordList: &wordlist, History: &history, Seed: &seed},
		Log: LogConfig{
			Level:      "warn",
			File:       "/tmp/keydrill.log",
			MaxSize:    1,
			MaxBackups: 2,
			MaxAge:     3,
			Compress:   true,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := homedir.Dir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := ExpandPath("~/words.txt")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != filepath.Join(home, "words.txt") {
		t.Fatalf("unexpected expansion: %s", got)
	}
	if got, err := ExpandPath("/abs/words.txt"); err != nil || got != "/abs/words.txt" {
		t.Fatalf("absolute path changed: %s, %v", got, err)
	}
	if _, err := ExpandPath("~other/words.txt"); err == nil {
		t.Fatalf("expected error for another user's home")
	}
}
