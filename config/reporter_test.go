package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestReport(t *testing.T) (*Report, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "report.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create report file: %v", err)
	}
	return &Report{entries: make(map[string]entry), file: f}, path
}

func readReport(t *testing.T, path string) map[string]string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open report archive: %v", err)
	}
	defer zr.Close()

	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open report entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read report entry %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestReport(t *testing.T) {
	r, path := newTestReport(t)

	stored := filepath.Join(t.TempDir(), "result.idml")
	if err := os.WriteFile(stored, []byte("archive bytes"), 0644); err != nil {
		t.Fatalf("failed to write stored file: %v", err)
	}

	r.Store("result.idml", stored)
	r.StoreData("generated/designmap.xml", []byte("<Document/>"))
	r.Store("absent.log", filepath.Join(t.TempDir(), "never-created.log"))

	if err := r.Close(); err != nil {
		t.Fatalf("Report.Close() error = %v", err)
	}

	entries := readReport(t, path)

	if _, ok := entries["MANIFEST"]; !ok {
		t.Error("report misses MANIFEST entry")
	}
	if got := entries["result.idml"]; got != "archive bytes" {
		t.Errorf("stored file content = %q", got)
	}
	if got := entries["generated/designmap.xml"]; got != "<Document/>" {
		t.Errorf("stored data content = %q", got)
	}
	// absent files are ignored at finalize but still listed in the manifest
	if _, ok := entries["absent.log"]; ok {
		t.Error("absent file produced a report entry")
	}
	if !strings.Contains(entries["MANIFEST"], "absent.log") {
		t.Error("MANIFEST misses the absent entry record")
	}
}

func TestReport_NilSafe(t *testing.T) {
	var r *Report

	r.Store("a", "b")
	r.StoreData("c", []byte("d"))
	r.StoreDir("e", "f")
	if err := r.Close(); err != nil {
		t.Errorf("nil Report.Close() error = %v", err)
	}
	if r.Name() != "" {
		t.Errorf("nil Report.Name() = %q", r.Name())
	}
}

func TestReportStoreData_RejectsOverwrite(t *testing.T) {
	r, _ := newTestReport(t)
	defer r.Close()

	r.StoreData("same", []byte("one"))

	defer func() {
		if recover() == nil {
			t.Error("StoreData() overwrite did not panic")
		}
	}()
	r.StoreData("same", []byte("two"))
}
