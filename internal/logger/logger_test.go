package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNew_WritesDailyFile(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Options{Dir: dir, Level: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Infow("hello", "k", "v")
	_ = log.Sync()

	name := filepath.Join(dir, time.Now().Format("2006-01-02")+".log")
	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(b) == 0 {
		t.Fatalf("log file empty")
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(Options{Dir: t.TempDir(), Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != zap.S() {
		t.Fatalf("fallback should be zap.S()")
	}
	l := zap.NewNop().Sugar()
	if FromContext(WithContext(context.Background(), l)) != l {
		t.Fatalf("stored logger not returned")
	}
}
