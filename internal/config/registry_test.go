package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "klipprompt") {
		t.Errorf("GetConfigDir() = %v, should contain 'klipprompt'", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Printers == nil {
		t.Error("NewRegistry().Printers should not be nil")
	}
	if reg.Preferences == nil {
		t.Fatal("NewRegistry().Preferences should not be nil")
	}
	if !reg.Preferences.AutoDiscover {
		t.Error("NewRegistry().Preferences.AutoDiscover should be true by default")
	}
	if reg.Preferences.Presenter != PresenterTUI {
		t.Errorf("NewRegistry().Preferences.Presenter = %q, want %q", reg.Preferences.Presenter, PresenterTUI)
	}
}

func TestRegistryEnsurePrinter(t *testing.T) {
	reg := NewRegistry()

	p1 := reg.EnsurePrinter("voron")
	if p1 == nil {
		t.Fatal("EnsurePrinter() returned nil")
	}
	if p2 := reg.EnsurePrinter("voron"); p1 != p2 {
		t.Error("EnsurePrinter() should return same instance for same key")
	}
	if p3 := reg.EnsurePrinter("ender"); p1 == p3 {
		t.Error("EnsurePrinter() should create new instance for different key")
	}
}

func TestRegistryUpdatePrinterLastSeen(t *testing.T) {
	reg := NewRegistry()

	before := time.Now()
	reg.UpdatePrinterLastSeen("voron", "192.168.1.50", "ws://192.168.1.50:7125/websocket")
	after := time.Now()

	p := reg.GetPrinter("voron")
	if p == nil {
		t.Fatal("Printer should exist after UpdatePrinterLastSeen()")
	}
	if p.LastIP != "192.168.1.50" {
		t.Errorf("LastIP = %v, want 192.168.1.50", p.LastIP)
	}
	if p.MoonrakerURL != "ws://192.168.1.50:7125/websocket" {
		t.Errorf("MoonrakerURL = %v", p.MoonrakerURL)
	}
	if p.LastSeen.Before(before) || p.LastSeen.After(after) {
		t.Errorf("LastSeen = %v, should be between %v and %v", p.LastSeen, before, after)
	}

	// An empty URL keeps the known one
	reg.UpdatePrinterLastSeen("voron", "192.168.1.51", "")
	if p.MoonrakerURL == "" {
		t.Error("MoonrakerURL should be kept when the update carries none")
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	reg := NewRegistry()
	reg.SetPrinterNickname("voron-2-4", "Voron")
	reg.UpdatePrinterLastSeen("voron-2-4", "10.0.0.7", "ws://10.0.0.7:7125/websocket")
	reg.Preferences.Presenter = PresenterHTTP
	reg.Preferences.DefaultPrinter = "voron-2-4"

	if err := reg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	loaded, err := LoadRegistryFile(path)
	if err != nil {
		t.Fatalf("LoadRegistryFile() error = %v", err)
	}

	p := loaded.GetPrinter("voron-2-4")
	if p == nil {
		t.Fatal("Printer should exist in loaded registry")
	}
	if p.Nickname != "Voron" {
		t.Errorf("Loaded nickname = %v, want 'Voron'", p.Nickname)
	}
	if p.MoonrakerURL != "ws://10.0.0.7:7125/websocket" {
		t.Errorf("Loaded MoonrakerURL = %v", p.MoonrakerURL)
	}
	if loaded.Preferences.Presenter != PresenterHTTP {
		t.Errorf("Loaded presenter = %v, want http", loaded.Preferences.Presenter)
	}
	if loaded.Preferences.DefaultPrinter != "voron-2-4" {
		t.Errorf("Loaded default printer = %v", loaded.Preferences.DefaultPrinter)
	}
}

func TestLoadRegistryFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
		check   func(t *testing.T, reg *Registry)
	}{
		{
			name:    "missing preferences get defaults",
			content: "version: 1\nprinters:\n  ender:\n    moonraker_url: ws://ender.local/websocket\n",
			check: func(t *testing.T, reg *Registry) {
				if reg.Preferences == nil || reg.Preferences.Presenter != PresenterTUI {
					t.Errorf("Preferences = %+v, want defaults", reg.Preferences)
				}
				if reg.GetPrinter("ender") == nil {
					t.Error("printer ender should be loaded")
				}
			},
		},
		{
			name:    "empty presenter defaults to tui",
			content: "version: 1\npreferences:\n  auto_discover: false\n",
			check: func(t *testing.T, reg *Registry) {
				if reg.Preferences.Presenter != PresenterTUI {
					t.Errorf("Presenter = %q, want tui", reg.Preferences.Presenter)
				}
				if reg.Printers == nil {
					t.Error("Printers map should be initialized")
				}
			},
		},
		{
			name:    "unsupported version",
			content: "version: 2\n",
			wantErr: "unsupported config version",
		},
		{
			name:    "unknown presenter",
			content: "version: 1\npreferences:\n  presenter: gtk\n",
			wantErr: "unsupported presenter",
		},
		{
			name:    "invalid yaml",
			content: "version: [1\n",
			wantErr: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			reg, err := LoadRegistryFile(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("LoadRegistryFile() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadRegistryFile() error = %v", err)
			}
			tt.check(t, reg)
		})
	}
}

func TestLoadRegistryFileMissing(t *testing.T) {
	reg, err := LoadRegistryFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistryFile() error = %v", err)
	}
	if reg.Version != 1 {
		t.Errorf("Version = %d, want 1", reg.Version)
	}
}

func TestFindPrinter(t *testing.T) {
	reg := NewRegistry()
	reg.SetPrinterNickname("voron-2-4", "Voron Trident")
	reg.SetPrinterNickname("ender-3", "Workshop Ender")
	reg.SetPrinterNickname("prusa-mk4", "Office")

	tests := []struct {
		name          string
		query         string
		wantKey       string
		wantErr       error
		wantAmbiguous bool
	}{
		{name: "exact key", query: "ender-3", wantKey: "ender-3"},
		{name: "nickname ignoring case", query: "office", wantKey: "prusa-mk4"},
		{name: "fuzzy key", query: "vrn", wantKey: "voron-2-4"},
		{name: "fuzzy nickname", query: "workshop", wantKey: "ender-3"},
		{name: "no match", query: "bambu", wantErr: ErrNoPrinter},
		{name: "ambiguous", query: "r4", wantAmbiguous: true},
		{name: "empty without default", query: "", wantErr: ErrNoPrinter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, p, err := reg.FindPrinter(tt.query)
			switch {
			case tt.wantAmbiguous:
				var aerr *AmbiguousPrinterError
				if !errors.As(err, &aerr) {
					t.Fatalf("FindPrinter(%q) error = %v, want *AmbiguousPrinterError", tt.query, err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("FindPrinter(%q) error = %v, want %v", tt.query, err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("FindPrinter(%q) error = %v", tt.query, err)
				}
				if key != tt.wantKey || p != reg.GetPrinter(tt.wantKey) {
					t.Errorf("FindPrinter(%q) = %q, want %q", tt.query, key, tt.wantKey)
				}
			}
		})
	}
}

func TestFindPrinterDefault(t *testing.T) {
	reg := NewRegistry()
	reg.EnsurePrinter("only")

	if key, _, err := reg.FindPrinter(""); err != nil || key != "only" {
		t.Errorf("FindPrinter(\"\") = %q, %v; want the only printer", key, err)
	}

	reg.EnsurePrinter("second")
	reg.Preferences.DefaultPrinter = "second"
	if key, _, err := reg.FindPrinter(""); err != nil || key != "second" {
		t.Errorf("FindPrinter(\"\") = %q, %v; want the default printer", key, err)
	}

	reg.Preferences.DefaultPrinter = "gone"
	if _, _, err := reg.FindPrinter(""); !errors.Is(err, ErrNoPrinter) {
		t.Errorf("FindPrinter(\"\") error = %v, want ErrNoPrinter", err)
	}
}

func BenchmarkFindPrinter(b *testing.B) {
	reg := NewRegistry()
	for i := 0; i < 50; i++ {
		reg.SetPrinterNickname(fmt.Sprintf("printer-%d", i), "Printer")
	}
	reg.SetPrinterNickname("voron-2-4", "Voron Trident")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = reg.FindPrinter("trident")
	}
}
