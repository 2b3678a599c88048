package idml

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"idg/archive"
	"idg/template"
)

// fileSet is the addressable working copy of the template package: members
// are plain files under a per-run temporary root, member names are
// slash-separated archive paths. The template archive itself is never
// touched.
type fileSet struct {
	root string
	log  *zap.Logger
}

// unpackTemplate expands the template archive into root. The caller owns root
// and must release the file set on every exit path.
func unpackTemplate(archivePath, root string, log *zap.Logger) (*fileSet, error) {
	fs := &fileSet{root: root, log: log}

	err := archive.Walk(archivePath, "", func(_ string, f *zip.File) error {
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("unable to open member %s: %w", f.FileHeader.Name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("unable to read member %s: %w", f.FileHeader.Name, err)
		}
		return fs.write(f.FileHeader.Name, data)
	})
	if err != nil {
		return nil, err
	}

	log.Debug("Template unpacked", zap.String("workdir", root))
	return fs, nil
}

// release discards the working file set. Safe to call on a nil receiver and
// after a failed unpack.
func (fs *fileSet) release() {
	if fs == nil || len(fs.root) == 0 {
		return
	}
	if err := os.RemoveAll(fs.root); err != nil {
		fs.log.Warn("Unable to remove working directory", zap.String("workdir", fs.root), zap.Error(err))
	}
}

func (fs *fileSet) path(name string) string {
	return filepath.Join(fs.root, filepath.FromSlash(name))
}

func (fs *fileSet) read(name string) ([]byte, error) {
	data, err := os.ReadFile(fs.path(name))
	if err != nil {
		return nil, fmt.Errorf("unable to read member %s: %w", name, err)
	}
	return data, nil
}

func (fs *fileSet) write(name string, data []byte) error {
	p := fs.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("unable to create directory for member %s: %w", name, err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("unable to write member %s: %w", name, err)
	}
	return nil
}

func (fs *fileSet) remove(name string) error {
	if err := os.Remove(fs.path(name)); err != nil {
		return fmt.Errorf("unable to remove member %s: %w", name, err)
	}
	return nil
}

// list returns member names under the given slash-separated prefix in natural
// order. Empty prefix lists the whole set.
func (fs *fileSet) list(prefix string) ([]string, error) {
	var names []string
	err := filepath.Walk(fs.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(fs.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list members: %w", err)
	}
	slices.SortFunc(names, naturalCompare)
	return names, nil
}

func naturalCompare(a, b string) int {
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	default:
		return 0
	}
}

// repack writes the working file set into a new archive. The marker member
// goes first and stored, the manifest right after it, everything else in
// natural order with standard compression.
func (fs *fileSet) repack(outputPath string) error {
	names, err := fs.list("")
	if err != nil {
		return err
	}
	if !slices.Contains(names, template.MarkerName) {
		return fmt.Errorf("working file set has no %s member", template.MarkerName)
	}
	if !slices.Contains(names, template.ManifestName) {
		return fmt.Errorf("working file set has no %s member", template.ManifestName)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	if err := fs.writeEntry(zw, template.MarkerName, zip.Store); err != nil {
		return err
	}
	if err := fs.writeEntry(zw, template.ManifestName, zip.Deflate); err != nil {
		return err
	}
	for _, name := range names {
		if name == template.MarkerName || name == template.ManifestName {
			continue
		}
		if err := fs.writeEntry(zw, name, zip.Deflate); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to close output archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to finalize output file: %w", err)
	}
	return nil
}

func (fs *fileSet) writeEntry(zw *zip.Writer, name string, method uint16) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
	if err != nil {
		return fmt.Errorf("unable to create archive entry %s: %w", name, err)
	}
	data, err := fs.read(name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("unable to write archive entry %s: %w", name, err)
	}
	return nil
}
