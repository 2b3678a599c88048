package idml

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrManifestMarker means the manifest's closing marker could not be
	// located. Continuing would leave the manifest out of sync with the
	// member set and corrupt the output invisibly, so this is always fatal.
	ErrManifestMarker = errors.New("manifest closing marker not found")

	// ErrSpreadMarker means a spread member misses its closing marker and
	// text frames cannot be spliced in.
	ErrSpreadMarker = errors.New("spread closing marker not found")
)

const (
	manifestCloseMarker = "</Document>"
	spreadCloseMarker   = "</Spread>"
)

// stale spread references, with trailing whitespace so removal does not leave
// blank lines behind
var spreadRefPattern = regexp.MustCompile(`[ \t]*<idPkg:Spread\s[^>]*/>[ \t]*\n?`)

// patchManifest removes stale spread member references and inserts fresh
// spread and story references before the manifest's closing marker. Story
// references shipped with the template are kept: their members are carried
// through verbatim.
func patchManifest(data []byte, spreadMembers, storyMembers []string) ([]byte, error) {
	doc := spreadRefPattern.ReplaceAllString(string(data), "")

	at := strings.LastIndex(doc, manifestCloseMarker)
	if at < 0 {
		return nil, ErrManifestMarker
	}

	var refs strings.Builder
	for _, name := range spreadMembers {
		fmt.Fprintf(&refs, "\t<idPkg:Spread src=%q />\n", name)
	}
	for _, name := range storyMembers {
		fmt.Fprintf(&refs, "\t<idPkg:Story src=%q />\n", name)
	}

	return []byte(doc[:at] + refs.String() + doc[at:]), nil
}

// spliceFrames inserts rendered text frame fragments immediately before the
// spread's closing marker.
func spliceFrames(data []byte, frames [][]byte) ([]byte, error) {
	if len(frames) == 0 {
		return data, nil
	}

	doc := string(data)
	at := strings.Index(doc, spreadCloseMarker)
	if at < 0 {
		return nil, ErrSpreadMarker
	}

	var sb strings.Builder
	sb.WriteString(doc[:at])
	for _, f := range frames {
		sb.Write(f)
		if len(f) != 0 && f[len(f)-1] != '\n' {
			sb.WriteByte('\n')
		}
	}
	sb.WriteString(doc[at:])
	return []byte(sb.String()), nil
}
