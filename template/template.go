// Package template locates and loads the reference IDML package used as the
// structural base for generation. Instead of baking in constants observed in
// one sample file, everything generation depends on - page size, margins,
// identifiers already taken - is introspected from the loaded package.
package template

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"idg/archive"
)

const (
	// MarkerName is the container "type" member: always the first archive
	// entry, always stored without compression.
	MarkerName = "mimetype"
	// MarkerContent identifies the IDML container format.
	MarkerContent = "application/vnd.adobe.indesign-idml-package"
	// ManifestName is the central manifest enumerating all member references.
	ManifestName = "designmap.xml"

	preferencesName = "Resources/Preferences.xml"
)

var (
	ErrNotFound   = errors.New("template package not found")
	ErrUnreadable = errors.New("template package cannot be read")
	ErrMalformed  = errors.New("template package is malformed")
)

// probed in order when no explicit template path is configured
var conventionalPaths = []string{
	"template.idml",
	filepath.Join("templates", "template.idml"),
	filepath.Join("assets", "template.idml"),
}

// Find locates the template package. An explicit path short-circuits probing
// and must exist. Otherwise conventional locations are probed relative to the
// working directory and then relative to the executable. Candidates are
// accepted on zip magic, not extension.
func Find(explicit string) (string, error) {
	if len(explicit) != 0 {
		if ok, err := usable(explicit); err != nil {
			return "", err
		} else if !ok {
			return "", fmt.Errorf("%w: %s is not a zip archive", ErrNotFound, explicit)
		}
		return explicit, nil
	}

	dirs := []string{"."}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	for _, dir := range dirs {
		for _, rel := range conventionalPaths {
			candidate := filepath.Join(dir, rel)
			if ok, err := usable(candidate); err == nil && ok {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("%w: probed %s in working and executable directories",
		ErrNotFound, strings.Join(conventionalPaths, ", "))
}

func usable(path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !fi.Mode().IsRegular() {
		return false, nil
	}
	return archive.IsZipFile(path)
}

// Template is the loaded, introspected reference package. The underlying
// archive is read-only input, editing always happens on a working copy.
type Template struct {
	Path string

	PageWidth  float64
	PageHeight float64

	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64

	// Reserved holds every Self identifier used anywhere in the template, so
	// generated identifiers can be guaranteed not to collide with entities
	// that are carried through verbatim (fonts, styles, master pages).
	Reserved map[string]struct{}

	// SpreadMembers are the seed spread member paths shipped with the
	// template, fully replaced on every generation run.
	SpreadMembers []string
}

const (
	defaultPageWidth  = 612 // US Letter, points
	defaultPageHeight = 792
	defaultMargin     = 36
)

// Load opens and introspects the template package.
func Load(path string) (*Template, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	defer r.Close()

	t := &Template{
		Path:         path,
		PageWidth:    defaultPageWidth,
		PageHeight:   defaultPageHeight,
		MarginTop:    defaultMargin,
		MarginBottom: defaultMargin,
		MarginLeft:   defaultMargin,
		MarginRight:  defaultMargin,
		Reserved:     make(map[string]struct{}),
	}

	var haveMarker, haveManifest bool
	for _, f := range r.File {
		name := f.FileHeader.Name
		if !archive.IsSafePath(name) {
			return nil, fmt.Errorf("%w: unsafe member path %q", ErrMalformed, name)
		}
		switch {
		case name == MarkerName:
			haveMarker = true
			data, err := readMember(f)
			if err != nil {
				return nil, err
			}
			if string(data) != MarkerContent {
				return nil, fmt.Errorf("%w: unexpected marker content %q", ErrMalformed, string(data))
			}
			continue
		case name == ManifestName:
			haveManifest = true
		case strings.HasPrefix(name, "Spreads/") && !f.FileInfo().IsDir():
			t.SpreadMembers = append(t.SpreadMembers, name)
		}

		if f.FileInfo().IsDir() || !strings.HasSuffix(name, ".xml") {
			continue
		}
		data, err := readMember(f)
		if err != nil {
			return nil, err
		}
		if err := t.introspectMember(name, data); err != nil {
			return nil, err
		}
	}

	if !haveMarker {
		return nil, fmt.Errorf("%w: marker member %q is missing", ErrMalformed, MarkerName)
	}
	if !haveManifest {
		return nil, fmt.Errorf("%w: manifest member %q is missing", ErrMalformed, ManifestName)
	}
	return t, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: member %s: %v", ErrUnreadable, f.FileHeader.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: member %s: %v", ErrUnreadable, f.FileHeader.Name, err)
	}
	return data, nil
}

// introspectMember harvests reserved identifiers from any XML member and
// document geometry from the preferences member. Members which are not well
// formed XML make the whole template unusable - a partially introspected
// reserved set cannot guarantee identifier uniqueness.
func (t *Template) introspectMember(name string, data []byte) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return fmt.Errorf("%w: member %s: %v", ErrMalformed, name, err)
	}

	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if self := el.SelectAttrValue("Self", ""); len(self) != 0 {
			t.Reserved[self] = struct{}{}
		}
		switch el.Tag {
		case "DocumentPreference":
			t.PageWidth = floatAttr(el, "PageWidth", t.PageWidth)
			t.PageHeight = floatAttr(el, "PageHeight", t.PageHeight)
		case "MarginPreference":
			t.MarginTop = floatAttr(el, "Top", t.MarginTop)
			t.MarginBottom = floatAttr(el, "Bottom", t.MarginBottom)
			t.MarginLeft = floatAttr(el, "Left", t.MarginLeft)
			t.MarginRight = floatAttr(el, "Right", t.MarginRight)
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	if root := doc.Root(); root != nil {
		walk(root)
	}

	if name == preferencesName && (t.PageWidth <= 0 || t.PageHeight <= 0) {
		return fmt.Errorf("%w: non-positive page size %gx%g", ErrMalformed, t.PageWidth, t.PageHeight)
	}
	return nil
}

func floatAttr(el *etree.Element, key string, fallback float64) float64 {
	v := el.SelectAttrValue(key, "")
	if len(v) == 0 {
		return fallback
	}
	var f float64
	if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
		return fallback
	}
	return f
}

// IsReserved reports whether identifier is already taken by a template entity.
func (t *Template) IsReserved(id string) bool {
	_, ok := t.Reserved[id]
	return ok
}
