package idml

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/beevik/etree"
	"github.com/maruel/natural"
	"go.uber.org/multierr"

	"idg/template"
)

// Inspection is a structural report over an assembled package. It checks the
// container conventions a generated archive must satisfy and cross references
// the manifest against the members actually present.
type Inspection struct {
	Members []string

	MarkerFirst   bool
	MarkerStored  bool
	MarkerContent string

	SpreadRefs []string
	StoryRefs  []string

	MissingMembers []string
	OrphanMembers  []string

	Issues error
}

// Valid reports whether the package passed every structural check.
func (r *Inspection) Valid() bool {
	return r.Issues == nil
}

// Inspect opens an archive and verifies its package structure without
// modifying it.
func Inspect(archivePath string) (*Inspection, error) {

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("unable to open archive file (%s): %w", archivePath, err)
	}
	defer zr.Close()

	res := &Inspection{}

	present := make(map[string]struct{}, len(zr.File))
	var manifest []byte

	for i, f := range zr.File {
		res.Members = append(res.Members, f.Name)
		present[f.Name] = struct{}{}

		switch f.Name {
		case template.MarkerName:
			res.MarkerFirst = i == 0
			res.MarkerStored = f.Method == zip.Store
			data, err := readMember(f)
			if err != nil {
				return nil, err
			}
			res.MarkerContent = string(data)
		case template.ManifestName:
			if manifest, err = readMember(f); err != nil {
				return nil, err
			}
		}
	}
	sort.Sort(natural.StringSlice(res.Members))

	var issues error
	if res.MarkerContent == "" {
		issues = multierr.Append(issues, fmt.Errorf("package has no %s member", template.MarkerName))
	} else {
		if !res.MarkerFirst {
			issues = multierr.Append(issues, fmt.Errorf("%s is not the first archive member", template.MarkerName))
		}
		if !res.MarkerStored {
			issues = multierr.Append(issues, fmt.Errorf("%s member is compressed", template.MarkerName))
		}
		if res.MarkerContent != template.MarkerContent {
			issues = multierr.Append(issues, fmt.Errorf("%s member has unexpected content %q", template.MarkerName, res.MarkerContent))
		}
	}

	if manifest == nil {
		issues = multierr.Append(issues, fmt.Errorf("package has no %s member", template.ManifestName))
	} else {
		res.SpreadRefs, res.StoryRefs, err = manifestRefs(manifest)
		if err != nil {
			issues = multierr.Append(issues, err)
		}
	}

	referenced := make(map[string]struct{}, len(res.SpreadRefs)+len(res.StoryRefs))
	for _, refs := range [][]string{res.SpreadRefs, res.StoryRefs} {
		for _, ref := range refs {
			referenced[ref] = struct{}{}
			if _, ok := present[ref]; !ok {
				res.MissingMembers = append(res.MissingMembers, ref)
				issues = multierr.Append(issues, fmt.Errorf("manifest references missing member %s", ref))
			}
		}
	}

	for _, name := range res.Members {
		dir := path.Dir(name)
		if dir != spreadsDir && dir != storiesDir {
			continue
		}
		if _, ok := referenced[name]; !ok {
			res.OrphanMembers = append(res.OrphanMembers, name)
			issues = multierr.Append(issues, fmt.Errorf("member %s is not referenced by the manifest", name))
		}
	}

	res.Issues = issues
	return res, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("unable to read archive member (%s): %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("unable to read archive member (%s): %w", f.Name, err)
	}
	return data, nil
}

// manifestRefs extracts spread and story member references from the manifest
// in document order.
func manifestRefs(manifest []byte) (spreads, stories []string, err error) {

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(manifest); err != nil {
		return nil, nil, fmt.Errorf("unable to parse %s: %w", template.ManifestName, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("%s has no root element", template.ManifestName)
	}

	for _, el := range root.ChildElements() {
		if el.Space != "idPkg" {
			continue
		}
		src := el.SelectAttrValue("src", "")
		if src == "" {
			continue
		}
		switch el.Tag {
		case "Spread":
			spreads = append(spreads, src)
		case "Story":
			stories = append(stories, src)
		}
	}
	return spreads, stories, nil
}
