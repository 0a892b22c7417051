package testutil

import (
	"bugvault/lib/archive"
	"bugvault/lib/telemetry"
	"path/filepath"
	"testing"
)

// SetupArchive gives a test a scratch archive in a temp directory, with
// telemetry wired up if the environment configures it.
func SetupArchive(t testing.TB, name string) (*archive.Archive, func()) {
	cleanup := telemetry.SetupForTesting(t, name)

	arc, err := archive.Open(filepath.Join(t.TempDir(), "archive"))
	if err != nil {
		t.Fatal(err)
	}
	return arc, cleanup
}
