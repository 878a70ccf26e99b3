package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("FINTRACK_TEST_A=from-file\nFINTRACK_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FINTRACK_TEST_B", "from-env")
	os.Unsetenv("FINTRACK_TEST_A")
	t.Cleanup(func() { os.Unsetenv("FINTRACK_TEST_A") })

	LoadEnvFile(path, filepath.Join(t.TempDir(), "missing.env"))

	if got := os.Getenv("FINTRACK_TEST_A"); got != "from-file" {
		t.Fatalf("FINTRACK_TEST_A = %q", got)
	}
	if got := os.Getenv("FINTRACK_TEST_B"); got != "from-env" {
		t.Fatalf("existing variables must win, got %q", got)
	}
}
