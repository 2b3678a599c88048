// Package generate implements the assembly subcommands on top of the idml
// engine: it resolves input and output paths, locates and loads the template
// and drives package generation.
package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"idg/content"
	"idg/generate/idml"
	"idg/state"
	"idg/template"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("generate")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no content description has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Overwrite = cmd.Bool("overwrite")
	env.TemplatePath = cmd.String("template")

	log.Info("Assembly starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Assembly completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process handles the core assembly logic independently of CLI framework:
// parse the content description, locate and introspect the template, settle
// the output name and hand everything to the engine.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open content description (%s): %w", src, err)
	}
	defer file.Close()

	doc, err := content.Load(file)
	if err != nil {
		return fmt.Errorf("unable to parse content description (%s): %w", src, err)
	}

	templatePath := env.TemplatePath
	if len(templatePath) == 0 {
		templatePath = env.Cfg.Document.TemplatePath
	}
	path, err := template.Find(templatePath)
	if err != nil {
		return err
	}
	tpl, err := template.Load(path)
	if err != nil {
		return fmt.Errorf("unable to load template (%s): %w", path, err)
	}
	log.Debug("Template loaded",
		zap.String("path", tpl.Path),
		zap.Float64("page_width", tpl.PageWidth), zap.Float64("page_height", tpl.PageHeight),
		zap.Int("reserved_ids", len(tpl.Reserved)))

	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	outputName, err := resolveCollision(buildOutputPath(src, dst, env), env.Overwrite, log)
	if err != nil {
		return err
	}

	if err := idml.Generate(ctx, doc, tpl, outputName, &env.Cfg.Document, log); err != nil {
		return fmt.Errorf("unable to generate output: %w", err)
	}

	// Store assembly result for debugging
	if env.Rpt != nil {
		env.Rpt.Store("result"+filepath.Ext(outputName), outputName)
	}
	return nil
}
