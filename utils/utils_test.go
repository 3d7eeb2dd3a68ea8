package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestReferralCode(t *testing.T) {
	code := ReferralCode("refer", "johnny")
	if !strings.HasPrefix(code, "REFERJOH") {
		t.Errorf("unexpected prefix in %s", code)
	}
	if len(code) != len("REFERJOH")+3 {
		t.Errorf("unexpected length %d for %s", len(code), code)
	}

	short := ReferralCode("X", "al")
	if !strings.HasPrefix(short, "XAL") || len(short) != 6 {
		t.Errorf("unexpected code %s", short)
	}
}

func TestGenerateUUID(t *testing.T) {
	if _, err := uuid.Parse(GenerateUUID()); err != nil {
		t.Error("GenerateUUID returned invalid uuid:", err)
	}
}

func TestGetenvFallbacks(t *testing.T) {
	t.Setenv("REFERRAL_TEST_INT", "nope")
	t.Setenv("REFERRAL_TEST_DUR", "3s")

	if got := GetInt("REFERRAL_TEST_INT", 7); got != 7 {
		t.Errorf("expected fallback 7, got %d", got)
	}
	if got := GetDuration("REFERRAL_TEST_DUR", time.Second); got != 3*time.Second {
		t.Errorf("expected 3s, got %v", got)
	}
	if got := Getenv("REFERRAL_TEST_MISSING", "x"); got != "x" {
		t.Errorf("expected fallback x, got %s", got)
	}
}
