package config

import (
	"strings"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	cfg := Config{
		Server: ServerConfig{Mode: "debug"},
		JWT:    JWTConfig{ExpireTime: 720},
		Exam: ExamConfig{
			DefaultQuestionCount: 30,
			MaxQuestionCount:     10,
			SessionTTL:           24,
			AbandonAfter:         48,
		},
	}
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	if cfg.JWT.ExpireTime != 720*time.Hour || cfg.Exam.SessionTTL != 24*time.Hour || cfg.Exam.AbandonAfter != 48*time.Hour {
		t.Fatalf("durations %v %v %v", cfg.JWT.ExpireTime, cfg.Exam.SessionTTL, cfg.Exam.AbandonAfter)
	}
	if cfg.Exam.MaxQuestionCount != 30 {
		t.Fatalf("max count %d, want raised to default", cfg.Exam.MaxQuestionCount)
	}
}

func TestNormalizeRejects(t *testing.T) {
	zero := Config{Exam: ExamConfig{DefaultQuestionCount: 0}}
	if err := zero.normalize(); err == nil {
		t.Fatal("zero default question count accepted")
	}

	weak := Config{
		Server: ServerConfig{Mode: "release"},
		JWT:    JWTConfig{Secret: "short"},
		Exam:   ExamConfig{DefaultQuestionCount: 5, SessionTTL: 24, AbandonAfter: 48},
	}
	if err := weak.normalize(); err == nil || !strings.Contains(err.Error(), "JWT secret") {
		t.Fatalf("short secret in release mode: got %v", err)
	}

	for _, abandon := range []time.Duration{12, 24} {
		cfg := Config{Exam: ExamConfig{DefaultQuestionCount: 5, SessionTTL: 24, AbandonAfter: abandon}}
		err := cfg.normalize()
		if err == nil || !strings.Contains(err.Error(), "abandon_after_hours") {
			t.Fatalf("abandon_after %dh with 24h sessions: got %v", abandon, err)
		}
	}
}
