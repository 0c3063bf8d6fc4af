package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/wippyai/objc-runtime/objc"
)

func newTestSession(t *testing.T) *session {
	t.Helper()
	ctx := context.Background()
	cfg := defaultConfig()
	cfg.Memory.InitialPages = 1
	s, err := newSession(ctx, cfg, "", zap.NewNop())
	if err != nil {
		t.Fatalf("newSession failed: %v", err)
	}
	t.Cleanup(func() { s.close(ctx) })
	return s
}

func TestSession_Demo(t *testing.T) {
	s := newTestSession(t)
	if err := s.runDemo(); err != nil {
		t.Fatalf("runDemo failed: %v", err)
	}

	// three classes with metaclasses, three surviving items
	if s.rt.Len() != 9 {
		t.Errorf("Len() = %d, want 9", s.rt.Len())
	}
	var items []row
	for _, r := range s.rows() {
		if r.Class == "DemoItem" && r.Lifetime == objc.LifetimeCounted {
			items = append(items, r)
		}
		if r.Class == "DemoOwner" && r.Lifetime != objc.LifetimeStatic {
			t.Errorf("owner instance survived: %+v", r)
		}
	}
	if len(items) != 3 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Refcount != 2 || items[1].Refcount != 1 || items[2].Refcount != 1 {
		t.Errorf("item refcounts = %d %d %d", items[0].Refcount, items[1].Refcount, items[2].Refcount)
	}

	var buf bytes.Buffer
	printObjects(&buf, s)
	if !strings.Contains(buf.String(), "Objects: 9") || !strings.Contains(buf.String(), "DemoItem") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestWriteSnapshot(t *testing.T) {
	s := newTestSession(t)
	path := filepath.Join(t.TempDir(), "snap.cbor")
	if err := writeSnapshot(path, s.rt); err != nil {
		t.Fatalf("writeSnapshot failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	infos, err := objc.UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot failed: %v", err)
	}
	if len(infos) != s.rt.Len() {
		t.Errorf("snapshot has %d entries, want %d", len(infos), s.rt.Len())
	}
}

func TestNewSession_MissingImage(t *testing.T) {
	_, err := newSession(context.Background(), defaultConfig(), filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	if err == nil {
		t.Fatal("expected error")
	}
}

func press(m *interactiveModel, keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m.Update(msg)
	}
}

func TestInteractiveModel(t *testing.T) {
	s := newTestSession(t)
	m := newInteractiveModel(s, "test")

	// the first row is the NSObject metaclass; n allocates an NSObject
	press(m, "n")
	if m.err != nil {
		t.Fatalf("new object: %v", m.err)
	}
	if s.rt.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.rt.Len())
	}

	// select the new instance and retain, release, release it
	obj := m.rows[len(m.rows)-1].Object
	for m.rows[m.selected].Object != obj {
		press(m, "down")
	}
	press(m, "r")
	if info, _ := s.rt.Lookup(obj); info.Refcount != 2 {
		t.Errorf("refcount = %d after retain", info.Refcount)
	}
	press(m, "x", "x")
	if _, ok := s.rt.Lookup(obj); ok {
		t.Error("object survived two releases")
	}
	if m.err != nil {
		t.Errorf("unexpected error: %v", m.err)
	}

	press(m, "/", "Z", "enter")
	if m.filter != "Z" || len(m.rows) != 0 {
		t.Errorf("filter = %q, rows = %d", m.filter, len(m.rows))
	}
	if !strings.Contains(m.View(), "(none)") {
		t.Error("empty filter result not shown")
	}
}
