package generate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"idg/generate/idml"
	"idg/state"
)

// Inspect checks an assembled package for structural problems and reports
// them without modifying the archive.
func Inspect(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("inspect")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no package has been specified")
	}
	src, err := filepath.Abs(src)
	if err != nil {
		return err
	}

	res, err := idml.Inspect(src)
	if err != nil {
		return err
	}

	log.Info("Package opened",
		zap.String("file", src),
		zap.Int("members", len(res.Members)),
		zap.Int("spreads", len(res.SpreadRefs)),
		zap.Int("stories", len(res.StoryRefs)))

	for _, issue := range multierr.Errors(res.Issues) {
		log.Error("Structural problem", zap.Error(issue))
	}
	if !res.Valid() {
		return fmt.Errorf("package failed inspection: %s", src)
	}

	log.Info("Package is structurally valid", zap.String("file", src))
	return nil
}
