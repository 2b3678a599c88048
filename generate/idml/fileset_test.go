package idml

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"idg/template"
)

func testFileSet(t *testing.T) *fileSet {
	t.Helper()
	return &fileSet{root: t.TempDir(), log: zaptest.NewLogger(t)}
}

func TestFileSetRoundTrip(t *testing.T) {
	fs := testFileSet(t)

	if err := fs.write("Spreads/Spread_gs1.xml", []byte("spread")); err != nil {
		t.Fatalf("write() error = %v", err)
	}
	data, err := fs.read("Spreads/Spread_gs1.xml")
	if err != nil {
		t.Fatalf("read() error = %v", err)
	}
	if string(data) != "spread" {
		t.Errorf("read back %q", data)
	}

	if err := fs.remove("Spreads/Spread_gs1.xml"); err != nil {
		t.Fatalf("remove() error = %v", err)
	}
	if _, err := fs.read("Spreads/Spread_gs1.xml"); err == nil {
		t.Error("read() after remove() succeeded")
	}
}

func TestFileSetList_NaturalOrder(t *testing.T) {
	fs := testFileSet(t)

	for _, name := range []string{
		"Spreads/Spread_gs10.xml",
		"Spreads/Spread_gs2.xml",
		"Spreads/Spread_gs1.xml",
		"Stories/Story_gt1.xml",
	} {
		if err := fs.write(name, []byte(name)); err != nil {
			t.Fatalf("write(%s) error = %v", name, err)
		}
	}

	names, err := fs.list("Spreads/")
	if err != nil {
		t.Fatalf("list() error = %v", err)
	}
	want := []string{"Spreads/Spread_gs1.xml", "Spreads/Spread_gs2.xml", "Spreads/Spread_gs10.xml"}
	if len(names) != len(want) {
		t.Fatalf("list() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("list()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestFileSetRepack(t *testing.T) {
	fs := testFileSet(t)

	for name, data := range map[string]string{
		template.MarkerName:      template.MarkerContent,
		template.ManifestName:    "<Document/>",
		"Stories/Story_gt1.xml":  "<idPkg:Story/>",
		"Spreads/Spread_gs1.xml": "<idPkg:Spread/>",
	} {
		if err := fs.write(name, []byte(data)); err != nil {
			t.Fatalf("write(%s) error = %v", name, err)
		}
	}

	out := filepath.Join(t.TempDir(), "out.idml")
	if err := fs.repack(out); err != nil {
		t.Fatalf("repack() error = %v", err)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("unable to open repacked archive: %v", err)
	}
	defer zr.Close()

	if len(zr.File) != 4 {
		t.Fatalf("repacked %d members, want 4", len(zr.File))
	}
	if zr.File[0].Name != template.MarkerName {
		t.Errorf("first member = %s, want %s", zr.File[0].Name, template.MarkerName)
	}
	if zr.File[0].Method != zip.Store {
		t.Error("marker member is compressed")
	}
	if zr.File[1].Name != template.ManifestName {
		t.Errorf("second member = %s, want %s", zr.File[1].Name, template.ManifestName)
	}
	for _, f := range zr.File[1:] {
		if f.Method != zip.Deflate {
			t.Errorf("member %s method = %d, want deflate", f.Name, f.Method)
		}
	}
}

func TestFileSetRepack_RequiresMarkerAndManifest(t *testing.T) {
	fs := testFileSet(t)
	if err := fs.write(template.ManifestName, []byte("<Document/>")); err != nil {
		t.Fatalf("write() error = %v", err)
	}
	if err := fs.repack(filepath.Join(t.TempDir(), "out.idml")); err == nil {
		t.Error("repack() without marker member succeeded")
	}

	fs = testFileSet(t)
	if err := fs.write(template.MarkerName, []byte(template.MarkerContent)); err != nil {
		t.Fatalf("write() error = %v", err)
	}
	if err := fs.repack(filepath.Join(t.TempDir(), "out.idml")); err == nil {
		t.Error("repack() without manifest member succeeded")
	}
}

func TestFileSetRelease(t *testing.T) {
	fs := &fileSet{root: filepath.Join(t.TempDir(), "work"), log: zaptest.NewLogger(t)}
	if err := fs.write("a.xml", []byte("x")); err != nil {
		t.Fatalf("write() error = %v", err)
	}
	fs.release()
	if _, err := os.Stat(fs.root); !os.IsNotExist(err) {
		t.Error("release() left working directory behind")
	}

	// nil receiver must be safe
	var nilFS *fileSet
	nilFS.release()
}
