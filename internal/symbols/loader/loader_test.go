package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/goleak"

	"github.com/rogercoll/eprofiler-tui/internal/eventbus"
	"github.com/rogercoll/eprofiler-tui/internal/libpf"
	"github.com/rogercoll/eprofiler-tui/internal/symbols/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestLoadSymbolsReportsErrorForMissingFile(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(dir, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	bus := eventbus.New(4)
	ld, err := New(st, bus, discardLogger(), 16)
	if err != nil {
		t.Fatal(err)
	}

	ld.LoadSymbols(filepath.Join(dir, "does-not-exist"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := bus.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	loaded, ok := ev.(eventbus.SymbolsLoaded)
	if !ok {
		t.Fatalf("event = %T, want SymbolsLoaded", ev)
	}
	if loaded.Err == nil {
		t.Fatal("Err = nil, want non-nil for a missing file")
	}
}

func TestLoadSymbolsSkipsWhileInflight(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(dir, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	bus := eventbus.New(4)
	ld, err := New(st, bus, discardLogger(), 16)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "not-elf")
	if err := os.WriteFile(path, []byte("not an object file"), 0o644); err != nil {
		t.Fatal(err)
	}

	ld.inflight.Add(path, true)
	ld.LoadSymbols(path, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := bus.Next(ctx); err == nil {
		t.Fatal("expected no event to be posted while the path is marked inflight")
	}
}

func TestRemoveSymbolsReportsSuccess(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(dir, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	bus := eventbus.New(4)
	ld, err := New(st, bus, discardLogger(), 16)
	if err != nil {
		t.Fatal(err)
	}

	ld.RemoveSymbols("app", libpf.FileId{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := bus.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	removed, ok := ev.(eventbus.SymbolsRemoved)
	if !ok {
		t.Fatalf("event = %T, want SymbolsRemoved", ev)
	}
	if removed.Err != nil {
		t.Fatalf("Err = %v, want nil", removed.Err)
	}
	if removed.Name != "app" {
		t.Fatalf("Name = %q, want app", removed.Name)
	}
}
