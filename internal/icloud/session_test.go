package icloud

import (
	"testing"

	"github.com/wesm/aliasvault/internal/testutil"
)

func TestLoadSession(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"raw", "X-APPLE-WEBAUTH-TOKEN=abc; X-APPLE-DS-WEB-SESSION-TOKEN=def\n", "X-APPLE-WEBAUTH-TOKEN=abc; X-APPLE-DS-WEB-SESSION-TOKEN=def"},
		{"header prefix", "Cookie: a=1; b=2", "a=1; b=2"},
		{"comments and lines", "# exported from browser\n\na=1;\nb=2\n", "a=1; b=2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), "session", tc.content)
			s, err := LoadSession(path)
			testutil.MustNoErr(t, err, "LoadSession")
			if s.Cookie != tc.want {
				t.Errorf("Cookie = %q, want %q", s.Cookie, tc.want)
			}
		})
	}
}

func TestLoadSession_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadSession(dir + "/missing"); err == nil {
		t.Error("expected error for missing file")
	}
	empty := testutil.WriteFile(t, dir, "empty", "# nothing here\n")
	if _, err := LoadSession(empty); err == nil {
		t.Error("expected error for file without a cookie")
	}
}
