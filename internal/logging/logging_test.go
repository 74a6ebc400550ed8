package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	cases := map[string]zap.AtomicLevel{
		"debug":   zap.NewAtomicLevelAt(zap.DebugLevel),
		"WARN":    zap.NewAtomicLevelAt(zap.WarnLevel),
		"error":   zap.NewAtomicLevelAt(zap.ErrorLevel),
		"info":    zap.NewAtomicLevelAt(zap.InfoLevel),
		"verbose": zap.NewAtomicLevelAt(zap.InfoLevel),
	}
	for in, want := range cases {
		l := New(in)
		if !l.Core().Enabled(want.Level()) {
			t.Fatalf("New(%q) does not enable %v", in, want.Level())
		}
		if want.Level() > zap.DebugLevel && l.Core().Enabled(want.Level()-1) {
			t.Fatalf("New(%q) enables %v", in, want.Level()-1)
		}
	}
}
