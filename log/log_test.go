package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestModuleAttachesAttribute(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithHandler(slog.NewJSONHandler(&buf, nil))
	l.Module("cfg").Info("widened block", "block", "B0x4a")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output not valid JSON: %v (%s)", err, buf.String())
	}
	if entry["module"] != "cfg" {
		t.Errorf("module = %v, want cfg", entry["module"])
	}
	if entry["block"] != "B0x4a" {
		t.Errorf("block = %v, want B0x4a", entry["block"])
	}
}

func TestOrDefaultHandlesNil(t *testing.T) {
	if OrDefault(nil) != Default() {
		t.Error("OrDefault(nil) should return the package default")
	}
	custom := New(slog.LevelDebug)
	if OrDefault(custom) != custom {
		t.Error("OrDefault(x) should return x unchanged")
	}
}
