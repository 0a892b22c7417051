package cookies

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Firefox reads cookies.sqlite out of a firefox profile.
type Firefox struct {
	// ProfileDir overrides profile discovery; empty means look for the
	// single default profile under ~/.mozilla/firefox.
	ProfileDir string
}

func (f Firefox) Name() string {
	return "firefox"
}

func (f Firefox) Cookies(ctx context.Context, host string) (map[string]string, error) {
	dir := f.ProfileDir
	if dir == "" {
		var err error
		dir, err = findFirefoxProfile()
		if err != nil {
			return nil, err
		}
	}

	dbPath := filepath.Join(dir, "cookies.sqlite")
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("%w: %s has no cookies.sqlite", ErrNoSession, dir)
	}

	db, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	// matches both exact-host and domain (".example.org") cookies
	rows, err := db.QueryContext(
		ctx,
		`SELECT name, value FROM moz_cookies WHERE host = ?1 OR ?1 LIKE '%' || host`,
		host,
	)
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, classifyStoreErr(err)
		}
		out[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, classifyStoreErr(err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s (firefox)", ErrNoSession, host)
	}
	return out, nil
}

func findFirefoxProfile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	matches, err := filepath.Glob(filepath.Join(home, ".mozilla", "firefox", "*.default*"))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: nothing under ~/.mozilla/firefox", ErrNoProfile)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("%w: %v", ErrAmbiguousProfile, matches)
}
