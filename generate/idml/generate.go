// Package idml is the package assembly engine: it plans spreads and frame
// geometry for the requested pages, synthesizes spread, page, story and text
// frame markup, edits a working copy of the template member set and repacks
// the result into a valid IDML archive.
package idml

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"

	"idg/config"
	"idg/content"
	"idg/misc"
	"idg/state"
	"idg/template"
)

// Generate assembles the output package for the given content description on
// top of the loaded template and writes it to outputPath. The working copy of
// the template is always discarded, whether generation succeeds or not.
func Generate(ctx context.Context, doc *content.Document, tpl *template.Template, outputPath string, cfg *config.DocumentConfig, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	runID := uuid.NewString()
	log.Info("Generating package",
		zap.String("template", tpl.Path), zap.String("output", outputPath), zap.String("run_id", runID))

	entries := doc.Normalize()
	metrics := metricsFrom(tpl, cfg.Geometry)
	alloc := newAllocator(tpl.Reserved)

	spreads, stories := assemble(entries, doc.PageCount(), metrics, cfg.Geometry.PairedFirstSpread, alloc)
	log.Debug("Layout planned",
		zap.Int("pages", doc.PageCount()), zap.Int("spreads", len(spreads)), zap.Int("stories", len(stories)))

	workDir := filepath.Join(os.TempDir(), misc.GetAppName()+"-"+runID)
	if err := os.MkdirAll(workDir, 0700); err != nil {
		return fmt.Errorf("unable to create working directory: %w", err)
	}
	fs, err := unpackTemplate(tpl.Path, workDir, log)
	if err != nil {
		_ = os.RemoveAll(workDir)
		return fmt.Errorf("%w: %v", template.ErrUnreadable, err)
	}
	defer fs.release()

	if err := purgeSeedSpreads(fs); err != nil {
		return err
	}

	spreadNames := make([]string, 0, len(spreads))
	for _, s := range spreads {
		if err := fs.write(s.memberName(), renderSpread(s)); err != nil {
			return err
		}
		spreadNames = append(spreadNames, s.memberName())
	}

	storyNames := make([]string, 0, len(stories))
	for _, st := range stories {
		if err := fs.write(st.memberName(), renderStory(st)); err != nil {
			return err
		}
		storyNames = append(storyNames, st.memberName())
	}

	manifest, err := fs.read(template.ManifestName)
	if err != nil {
		return err
	}
	patched, err := patchManifest(manifest, spreadNames, storyNames)
	if err != nil {
		return fmt.Errorf("unable to patch %s: %w", template.ManifestName, err)
	}
	if err := fs.write(template.ManifestName, patched); err != nil {
		return err
	}
	env.Rpt.StoreData(filepath.ToSlash(filepath.Join("generated", runID, template.ManifestName)), patched)

	if err := insertFrames(fs, spreads); err != nil {
		return err
	}

	tmpName := filepath.Join(os.TempDir(), misc.GetAppName()+"-"+runID+".idml")
	defer os.Remove(tmpName)

	if err := fs.repack(tmpName); err != nil {
		return fmt.Errorf("unable to repack package: %w", err)
	}

	if cfg.FixZip {
		return copyZipWithoutDataDescriptors(tmpName, outputPath)
	}
	return copyFile(tmpName, outputPath)
}

// assemble allocates identifiers and binds entries to their spreads: every
// entry becomes one story plus one text frame on the spread holding the
// entry's page.
func assemble(entries []content.Entry, pageCount int, m Metrics, paired bool, alloc *allocator) ([]*spread, []*story) {
	perPage := make(map[int][]content.Entry, pageCount)
	for _, e := range entries {
		perPage[e.PageNumber] = append(perPage[e.PageNumber], e)
	}

	plans := planSpreads(pageCount, m, paired)
	spreads := make([]*spread, 0, len(plans))
	stories := make([]*story, 0, len(entries))

	for _, plan := range plans {
		s := &spread{id: alloc.next(classSpread), plan: plan}
		for _, pp := range plan.Pages {
			s.pages = append(s.pages, page{id: alloc.next(classPage), plan: pp})
			for _, e := range perPage[pp.Number] {
				st := &story{id: alloc.next(classStory), title: e.Title, text: e.Text}
				stories = append(stories, st)

				x, y := framePosition(pp, e.SectionIndex, m)
				s.frames = append(s.frames, frame{
					id:      alloc.next(classFrame),
					storyID: st.id,
					x:       x,
					y:       y,
					w:       m.FrameWidth,
					h:       m.FrameHeight,
				})
			}
		}
		spreads = append(spreads, s)
	}
	return spreads, stories
}

// purgeSeedSpreads removes spread members shipped with the template, they are
// fully replaced on every run.
func purgeSeedSpreads(fs *fileSet) error {
	stale, err := fs.list(spreadsDir + "/")
	if err != nil {
		return err
	}
	for _, name := range stale {
		if err := fs.remove(name); err != nil {
			return err
		}
	}
	return nil
}

// insertFrames splices every spread's rendered text frames into its member.
func insertFrames(fs *fileSet, spreads []*spread) error {
	for _, s := range spreads {
		if len(s.frames) == 0 {
			continue
		}
		data, err := fs.read(s.memberName())
		if err != nil {
			return err
		}
		rendered := make([][]byte, 0, len(s.frames))
		for _, f := range s.frames {
			rendered = append(rendered, renderTextFrame(f))
		}
		out, err := spliceFrames(data, rendered)
		if err != nil {
			return fmt.Errorf("unable to splice frames into %s: %w", s.memberName(), err)
		}
		if err := fs.write(s.memberName(), out); err != nil {
			return err
		}
	}
	return nil
}

// copyZipWithoutDataDescriptors rewrites the archive without data descriptor
// records: InDesign refuses packages that carry them.
func copyZipWithoutDataDescriptors(from, to string) error {

	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		// copy zip entry
		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {

	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destinationFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destinationFile.Close()

	if _, err = io.Copy(destinationFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}

	if err = destinationFile.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return nil
}
