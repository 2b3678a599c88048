package generate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"idg/config"
	"idg/state"
)

const outputExt = ".idml"

// buildOutputPath derives the output file name from the content description
// name, applying transliteration and file system name cleanup as configured.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	baseName := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	if env.Cfg.Document.FileNameTransliterate {
		baseName = slug.Make(baseName)
	}
	return filepath.Join(dst, config.CleanFileName(baseName)+outputExt)
}

// resolveCollision settles the final output name. Each run produces exactly
// one new archive: an existing file is replaced only when overwrite was
// requested, otherwise a numbered variant of the name is picked.
func resolveCollision(name string, overwrite bool, log *zap.Logger) (string, error) {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return name, nil
		}
		return "", err
	}

	if overwrite {
		log.Warn("Overwriting existing file", zap.String("file", name))
		if err := os.Remove(name); err != nil {
			return "", err
		}
		return name, nil
	}

	base := strings.TrimSuffix(name, outputExt)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, outputExt)
		if _, err := os.Stat(candidate); err != nil {
			if os.IsNotExist(err) {
				log.Debug("Output file exists, picking new name", zap.String("file", name), zap.String("using", candidate))
				return candidate, nil
			}
			return "", err
		}
	}
}
