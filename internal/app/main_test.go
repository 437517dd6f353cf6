package app

import (
	"os"
	"testing"

	_ "github.com/odyssey-erp/management-dashboard/internal/testing/guard"
)

func TestMain(m *testing.M) {
	RefreshTestMode()
	os.Exit(m.Run())
}

func TestGuardEnablesTestMode(t *testing.T) {
	if !InTestMode() {
		t.Fatal("expected test mode under go test")
	}
}
