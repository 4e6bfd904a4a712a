package style

import (
	"errors"
	"strings"
	"testing"
)

func TestInit(t *testing.T) {
	Init(false)
	if Enabled {
		t.Error("expected Enabled=false after Init(false)")
	}
	Init(true)
	if !Enabled {
		t.Error("expected Enabled=true after Init(true)")
	}
}

func TestIcons_NoColor(t *testing.T) {
	Init(false)
	defer Init(true)

	tests := map[string]struct {
		got  string
		want string
	}{
		"success": {SuccessIcon(), "OK"},
		"error":   {ErrorIcon(), "ERROR"},
		"warning": {WarningIcon(), "WARN"},
	}
	for name, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s icon = %q, want %q", name, tt.got, tt.want)
		}
	}
}

func TestIcons_WithColor(t *testing.T) {
	Init(true)
	if !strings.Contains(SuccessIcon(), "✓") {
		t.Errorf("expected SuccessIcon to contain '✓', got %q", SuccessIcon())
	}
	if !strings.Contains(ErrorIcon(), "✗") {
		t.Errorf("expected ErrorIcon to contain '✗', got %q", ErrorIcon())
	}
}

func TestStatus(t *testing.T) {
	Init(false)
	defer Init(true)

	if got := Status(nil); got != "OK ok" {
		t.Errorf("Status(nil) = %q", got)
	}
	if got := Status(errors.New("disk gone")); got != "ERROR disk gone" {
		t.Errorf("Status(err) = %q", got)
	}
}

func TestDone_NoColor(t *testing.T) {
	Init(false)
	defer Init(true)

	if got := Done("Created storage main"); got != "Created storage main" {
		t.Errorf("Done = %q", got)
	}
}

func TestHint(t *testing.T) {
	Init(false)
	defer Init(true)

	h := Hint("run next command")
	if !strings.Contains(h, "run next command") || !strings.Contains(h, "→") {
		t.Errorf("unexpected hint %q", h)
	}
}

func TestBanner(t *testing.T) {
	if !strings.Contains(Banner(), "|_|") {
		t.Error("expected Banner to contain the ASCII art")
	}
}
