package testsupport

import (
	"testing"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/logging"
)

// MustOpenCatalog opens a catalog store rooted in the config's metadata
// directory and closes it when the test finishes.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg.MetadataDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("open catalog store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close catalog store: %v", err)
		}
	})
	return store
}
