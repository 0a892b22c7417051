package cookies

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Chromium reads the Cookies database out of a chromium/chrome profile.
// Values encrypted with the OS keyring cannot be recovered here; a store
// where every matching cookie is encrypted is reported as inaccessible.
type Chromium struct {
	// ProfileDir overrides profile discovery; empty means the Default
	// profile under the browser's config directory.
	ProfileDir string

	browser string
}

func (c Chromium) Name() string {
	if c.browser != "" {
		return c.browser
	}
	return "chromium"
}

func (c Chromium) Cookies(ctx context.Context, host string) (map[string]string, error) {
	dir := c.ProfileDir
	if dir == "" {
		var err error
		dir, err = c.findProfile()
		if err != nil {
			return nil, err
		}
	}

	dbPath := filepath.Join(dir, "Cookies")
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("%w: %s has no Cookies database", ErrNoSession, dir)
	}

	db, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(
		ctx,
		`SELECT name, value, length(encrypted_value) FROM cookies WHERE host_key = ?1 OR ?1 LIKE '%' || host_key`,
		host,
	)
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	defer rows.Close()

	out := map[string]string{}
	encryptedOnly := 0
	for rows.Next() {
		var name, value string
		var encryptedLen int
		if err := rows.Scan(&name, &value, &encryptedLen); err != nil {
			return nil, classifyStoreErr(err)
		}
		if value == "" && encryptedLen > 0 {
			encryptedOnly++
			continue
		}
		out[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, classifyStoreErr(err)
	}

	if len(out) == 0 {
		if encryptedOnly > 0 {
			return nil, fmt.Errorf(
				"%w: %d cookies for %s are keyring-encrypted",
				ErrStoreLocked, encryptedOnly, host,
			)
		}
		return nil, fmt.Errorf("%w: %s (%s)", ErrNoSession, host, c.Name())
	}
	return out, nil
}

func (c Chromium) findProfile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := "chromium"
	if c.browser == "chrome" {
		configDir = "google-chrome"
	}
	dir := filepath.Join(home, ".config", configDir, "Default")
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("%w: %s does not exist", ErrNoProfile, dir)
	}
	return dir, nil
}
