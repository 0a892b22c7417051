// Package cookies reads session cookies for a host out of a local browser's
// cookie store. Any failure here is fatal for the scrape and never retried
// within a run; the errors below classify the failure so the CLI can print a
// useful remediation hint (which browser, which host, which profile).
package cookies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

var (
	// ErrNoSession means the store was readable but held no cookies for the host.
	ErrNoSession = errors.New("no session cookies found for host")
	// ErrStoreLocked means the store could not be read, typically because the
	// browser is running and holds the database lock, or the values are
	// encrypted with a key we cannot reach.
	ErrStoreLocked = errors.New("cookie store is locked or inaccessible")
	// ErrNoProfile means no browser profile directory could be located.
	ErrNoProfile = errors.New("no browser profile found")
	// ErrAmbiguousProfile means several profile directories matched and one
	// must be named explicitly.
	ErrAmbiguousProfile = errors.New("multiple browser profiles found")
)

// Source is one supported browser/profile format. Adding a browser means
// adding a variant here, callers stay unchanged.
type Source interface {
	Name() string
	// Cookies returns the name->value cookie set valid for host.
	Cookies(ctx context.Context, host string) (map[string]string, error)
}

// FromName resolves a browser name from config/flags to its Source variant.
// profileDir may be empty, in which case the variant locates the default
// profile itself.
func FromName(browser, profileDir string) (Source, error) {
	switch browser {
	case "firefox":
		return Firefox{ProfileDir: profileDir}, nil
	case "chromium", "chrome":
		return Chromium{ProfileDir: profileDir, browser: browser}, nil
	}
	return nil, fmt.Errorf("unsupported browser %q", browser)
}

// openStore opens a browser cookie database read-only, classifying lock
// errors. The sqlite driver surfaces SQLITE_BUSY/SQLITE_LOCKED as text.
func openStore(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	return db, nil
}

func classifyStoreErr(err error) error {
	if err == nil {
		return nil
	}
	text := strings.ToLower(err.Error())
	if strings.Contains(text, "locked") || strings.Contains(text, "busy") {
		return fmt.Errorf("%w: %v", ErrStoreLocked, err)
	}
	return err
}
