package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingFatal struct {
	msg string
}

func (r *recordingFatal) Fatalf(format string, _ ...any) { r.msg = format }

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	src := "package sample\n\nimport (\n\t\"fmt\"\n\t\"kittycore/internal/core\"\n)\n\nvar _ = fmt.Sprint\nvar _ = core.NewService\n"
	if err := os.WriteFile(filepath.Join(dir, "sample.go"), []byte(src), 0o600); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	testSrc := "package sample\n\nimport \"kittycore/internal/infra/persistence/memory\"\n"
	if err := os.WriteFile(filepath.Join(dir, "sample_test.go"), []byte(testSrc), 0o600); err != nil {
		t.Fatalf("write sample test: %v", err)
	}
	viols, err := directImportViolations(dir, InternalImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || !strings.HasPrefix(viols[0], "kittycore/internal/core") {
		t.Fatalf("expected one violation from the non-test file, got %v", viols)
	}
	if InfraImportForbidden("kittycore/internal/core") {
		t.Fatalf("core is not an infra package")
	}
	if !InfraImportForbidden("kittycore/internal/infra/persistence/sqlite") {
		t.Fatalf("expected sqlite store to match infra predicate")
	}
}

func TestFailIfDirectViolations(t *testing.T) {
	rec := &recordingFatal{}
	failIfDirectViolations(rec, "reason", nil)
	if rec.msg != "" {
		t.Fatalf("no violations must not fail")
	}
	failIfDirectViolations(rec, "reason", []string{"x"})
	if rec.msg == "" {
		t.Fatalf("expected failure for violations")
	}
}
