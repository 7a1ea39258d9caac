package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func withLogger(t *testing.T, l *zap.Logger) {
	t.Helper()
	prev := logger
	SetLogger(l)
	t.Cleanup(func() { logger = prev })
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	withLogger(t, nil)

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error: %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger enabled without a level")
	}
}

func TestInitializeLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			withLogger(t, nil)
			path := filepath.Join(t.TempDir(), "klipprompt.log")
			if err := Initialize(tt.level, path); err != nil {
				t.Fatalf("Initialize() error: %v", err)
			}
			core := GetLogger().Core()
			if !core.Enabled(tt.want) {
				t.Errorf("level %s not enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && core.Enabled(tt.want-1) {
				t.Errorf("level below %s enabled", tt.want)
			}
		})
	}
}

func TestInitializeLogFileEnv(t *testing.T) {
	withLogger(t, nil)
	path := filepath.Join(t.TempDir(), "env.log")
	t.Setenv(LogLevelEnvVar, "info")
	t.Setenv(LogFileEnvVar, path)

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error: %v", err)
	}
	Info("hello from test")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file = %q", data)
	}
}

func TestGetLoggerFallback(t *testing.T) {
	withLogger(t, nil)
	if GetLogger() == nil {
		t.Fatal("GetLogger() returned nil")
	}
}

func TestDomainHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	withLogger(t, zap.New(core))

	LogConnection("ws://voron.local:7125/websocket", "connected")
	LogHTTPRequest("127.0.0.1:5000", "GET", "/prompt", 204, 3*time.Millisecond)
	LogRPCMessage("sent", "printer.gcode.script", 7, []byte(strings.Repeat("x", 600)))

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	if entries[0].ContextMap()["event"] != "connected" {
		t.Errorf("connection fields = %v", entries[0].ContextMap())
	}
	if entries[1].ContextMap()["status"] != int64(204) {
		t.Errorf("http fields = %v", entries[1].ContextMap())
	}

	rpc := entries[2].ContextMap()
	if rpc["id"] != int64(7) || rpc["length"] != int64(600) {
		t.Errorf("rpc fields = %v", rpc)
	}
	if payload, _ := rpc["payload"].(string); !strings.HasSuffix(payload, "...") || len(payload) != 515 {
		t.Errorf("payload not truncated: %d bytes", len(payload))
	}
}

func TestRPCPayloadOnlyAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	withLogger(t, zap.New(core))

	LogRPCMessage("received", "notify_gcode_response", 0, []byte("ok"))
	if logs.Len() != 0 {
		t.Errorf("debug RPC entry logged at info level")
	}
}
