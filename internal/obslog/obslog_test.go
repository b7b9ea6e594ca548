package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestInitFromEnvWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chess.log")
	t.Setenv("LOG_TO_CONSOLE", "")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", path)
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	restore := Replace(zap.NewNop())
	t.Cleanup(restore)

	if err := InitFromEnv(); err != nil { t.Fatalf("init: %v", err) }
	L().Debug("peer_join", zap.String("addr", "127.0.0.1:1"))
	Sync()

	raw, err := os.ReadFile(path)
	if err != nil { t.Fatalf("read log: %v", err) }
	if !strings.Contains(string(raw), `"msg":"peer_join"`) || !strings.Contains(string(raw), `"addr":"127.0.0.1:1"`) {
		t.Fatalf("unexpected log content: %s", raw)
	}
}

func TestInitWithoutSinksIsNop(t *testing.T) {
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "false")
	restore := Replace(zap.NewExample())
	t.Cleanup(restore)
	if err := InitFromEnv(); err != nil { t.Fatalf("init: %v", err) }
	if L().Core().Enabled(zap.ErrorLevel) { t.Fatalf("expected nop logger") }
}

func TestParseLevel(t *testing.T) {
	if parseLevel("WARNING") != zap.WarnLevel || parseLevel("bogus") != zap.InfoLevel || parseLevel(" debug ") != zap.DebugLevel {
		t.Fatalf("unexpected level mapping")
	}
}
