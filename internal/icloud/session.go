package icloud

import (
	"bufio"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Session holds the credentials of an already signed-in browser session.
// Obtaining them is outside this tool: the user exports the Cookie header
// of an icloud.com request into a file.
type Session struct {
	Cookie      string
	DSID        string
	ClientBuild string
}

// LoadSession reads a session file. Blank lines and lines starting with #
// are ignored; the remaining lines are joined into one Cookie header.
// A leading "Cookie:" prefix is accepted.
func LoadSession(path string) (Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return Session{}, eris.Wrapf(err, "open session file %s", path)
	}
	defer f.Close()

	var parts []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if name, rest, ok := strings.Cut(line, ":"); ok && strings.EqualFold(name, "cookie") {
			line = strings.TrimSpace(rest)
		}
		parts = append(parts, strings.TrimSuffix(line, ";"))
	}
	if err := sc.Err(); err != nil {
		return Session{}, eris.Wrapf(err, "read session file %s", path)
	}
	if len(parts) == 0 {
		return Session{}, eris.Errorf("session file %s has no cookie", path)
	}
	return Session{Cookie: strings.Join(parts, "; ")}, nil
}
