package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomtemps.log")

	logger, err := New("prod", Config{Level: "debug", Output: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Sugar().Debugw("reading stored", "room", "101")
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"room":"101"`) {
		t.Errorf("log file missing entry: %s", data)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New("dev", Config{Level: "loud"}); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
