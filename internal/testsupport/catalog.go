package testsupport

import (
	"testing"

	"audiosurvey/internal/catalog"
	"audiosurvey/internal/config"
)

// MustOpenCatalog opens the catalog database for cfg and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
