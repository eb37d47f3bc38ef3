package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/repotrack/pkg/config"
)

func TestConfigPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		name string
		flag string
		env  string
		xdg  string
		want string
	}{
		{"flag wins", "/etc/sources.yaml", "/env/sources.yaml", "/xdg", "/etc/sources.yaml"},
		{"environment", "", "/env/sources.yaml", "/xdg", "/env/sources.yaml"},
		{"xdg config home", "", "", "/xdg", filepath.Join("/xdg", appName, configFileName)},
		{"home default", "", "", "", filepath.Join(home, ".config", appName, configFileName)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(config.EnvVar, tt.env)
			t.Setenv("XDG_CONFIG_HOME", tt.xdg)

			c := &CLI{configFile: tt.flag}
			got, err := c.configPath()
			if err != nil {
				t.Fatalf("configPath() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("configPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigDirXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/custom-config")

	dir, err := configDir()
	if err != nil {
		t.Fatalf("configDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/custom-config", appName); dir != want {
		t.Errorf("configDir() = %q, want %q", dir, want)
	}
}

func TestReadOptions(t *testing.T) {
	file := filepath.Join(t.TempDir(), "opts.yaml")
	if err := os.WriteFile(file, []byte("allow_src: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		inline  string
		file    string
		want    string
		wantErr bool
	}{
		{"none", "", "", "", false},
		{"inline", "url: https://example.org", "", "url: https://example.org", false},
		{"file", "", file, "allow_src: false\n", false},
		{"missing file", "", filepath.Join(t.TempDir(), "nope.yaml"), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readOptions(tt.inline, tt.file)
			if (err != nil) != tt.wantErr {
				t.Fatalf("readOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("readOptions() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b"), make([]byte, 23), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := dirSize(dir)
	if err != nil {
		t.Fatalf("dirSize() error: %v", err)
	}
	if got != 123 {
		t.Errorf("dirSize() = %d, want 123", got)
	}
}
