package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v1.2.3"
	if s := String(); !strings.Contains(s, "v1.2.3") || !strings.HasPrefix(s, "mtpc-reco ") {
		t.Errorf("unexpected banner %q", s)
	}
}
