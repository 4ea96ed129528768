package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/wesm/aliasvault/internal/icloud"
)

// openAPI returns the alias service for this invocation: the --fixture
// mock when given, otherwise the HTTP client authenticated by the session
// file. The returned close function writes the fixture back when
// --fixture-write is set.
func openAPI() (icloud.API, func() error, error) {
	if fixturePath != "" {
		return openFixture(fixturePath, fixtureWrite)
	}
	if fixtureWrite {
		return nil, nil, errors.New("--fixture-write requires --fixture")
	}

	session, err := icloud.LoadSession(cfg.Service.SessionFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("no session file at %s.%s", cfg.Service.SessionFile, sessionHint())
		}
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	if cfg.Service.DSID != "" {
		session.DSID = cfg.Service.DSID
	}
	if cfg.Service.ClientBuild != "" {
		session.ClientBuild = cfg.Service.ClientBuild
	}

	opts := []icloud.ClientOption{
		icloud.WithLogger(logger),
		icloud.WithRateLimiter(icloud.NewRateLimiter(cfg.Service.RateLimitQPS)),
	}
	if cfg.Service.BaseURL != "" {
		opts = append(opts, icloud.WithBaseURL(cfg.Service.BaseURL))
	}
	client := icloud.NewClient(session, opts...)
	return client, client.Close, nil
}

func openFixture(path string, write bool) (icloud.API, func() error, error) {
	mock, err := icloud.LoadFixture(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load fixture: %w", err)
	}
	logger.Info("using fixture", "path", path, "total", len(mock.Aliases()), "write", write)

	closeFn := mock.Close
	if write {
		closeFn = func() error {
			if err := mock.SaveFixture(path); err != nil {
				return fmt.Errorf("save fixture: %w", err)
			}
			return mock.Close()
		}
	}
	return mock, closeFn, nil
}

// sessionHint explains how to provide a session, naming the configured
// paths so it is clear on all platforms.
func sessionHint() string {
	return fmt.Sprintf(`

To use aliasvault you need the Cookie header of a signed-in icloud.com session:
  1. Sign in at https://www.icloud.com/ in your browser
  2. Copy the Cookie request header of any icloud.com request from the
     browser's developer tools
  3. Save it to %s
     (or set [service] session_file in %s)`, cfg.Service.SessionFile, cfg.ConfigPath)
}
