package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetupJSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(Options{Level: "warn", Format: "json", Output: &buf})
	t.Cleanup(func() { Setup(Options{}) })

	if l.GetLevel() != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %s", l.GetLevel())
	}
	L().Info("dropped")
	L().WithField("cid", "c1").Warn("kept")

	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "kept" || line["cid"] != "c1" {
		t.Fatalf("unexpected entry: %v", line)
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	l := Setup(Options{Level: "chatty", Output: &bytes.Buffer{}})
	t.Cleanup(func() { Setup(Options{}) })
	if l.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", l.GetLevel())
	}
}

func TestDebugfGated(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{Output: &buf})
	t.Cleanup(func() {
		SetDebug(false)
		Setup(Options{})
	})

	SetDebug(false)
	Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
	SetDebug(true)
	Debugf("shown %d", 2)
	if !bytes.Contains(buf.Bytes(), []byte("shown 2")) {
		t.Fatalf("expected debug line, got %q", buf.String())
	}
}
