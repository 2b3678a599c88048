// Package content defines the content description model: an ordered list of
// pages, each holding an ordered list of titled sections, decoded from JSON
// and normalized into the flat sequence the assembly engine consumes.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNoPages is returned when content description has no pages to lay out.
var ErrNoPages = errors.New("content description contains no pages")

type (
	Section struct {
		Title string `json:"title,omitempty"`
		Text  string `json:"text,omitempty"`
	}

	Page struct {
		Sections []Section `json:"sections,omitempty"`
	}

	// Document is the root of the content description.
	Document struct {
		Pages []Page `json:"pages"`
	}
)

// Load decodes content description from JSON. Unknown fields are rejected so
// typos in hand-written descriptions do not silently drop content. Absence of
// pages is an input error.
func Load(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("unable to decode content description: %w", err)
	}
	if len(doc.Pages) == 0 {
		return nil, ErrNoPages
	}
	return &doc, nil
}

// Entry is a single normalized section: one entry produces one story and one
// text frame in the output package.
type Entry struct {
	PageNumber   int // 1-based, contiguous
	SectionIndex int // 0-based within its page, after empty sections are dropped
	Title        string
	Text         string
}

// Normalize flattens pages into the ordered sequence of entries. Sections with
// empty title and empty text are dropped and do not occupy a stacking slot.
func (d *Document) Normalize() []Entry {
	entries := make([]Entry, 0, len(d.Pages))
	for i, page := range d.Pages {
		idx := 0
		for _, s := range page.Sections {
			if len(s.Title) == 0 && len(s.Text) == 0 {
				continue
			}
			entries = append(entries, Entry{
				PageNumber:   i + 1,
				SectionIndex: idx,
				Title:        s.Title,
				Text:         s.Text,
			})
			idx++
		}
	}
	return entries
}

// PageCount reports how many pages the description defines, including pages
// with no renderable sections.
func (d *Document) PageCount() int {
	return len(d.Pages)
}
