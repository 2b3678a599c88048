package generate

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"idg/config"
	"idg/state"
)

func testEnv(t *testing.T) *state.LocalEnv {
	t.Helper()

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	ctx := state.ContextWithEnv(t.Context())
	env := state.EnvFromContext(ctx)
	env.Cfg = cfg
	env.Log = zaptest.NewLogger(t)
	return env
}

func TestBuildOutputPath(t *testing.T) {
	env := testEnv(t)

	got := buildOutputPath(filepath.Join("some", "dir", "issue-12.json"), "/out", env)
	if got != filepath.Join("/out", "issue-12.idml") {
		t.Errorf("buildOutputPath() = %q", got)
	}
}

func TestBuildOutputPath_Transliterate(t *testing.T) {
	env := testEnv(t)
	env.Cfg.Document.FileNameTransliterate = true

	got := buildOutputPath("Выпуск 7.json", "/out", env)
	if got != filepath.Join("/out", "vypusk-7.idml") {
		t.Errorf("buildOutputPath() = %q", got)
	}
}

func TestResolveCollision_FreshName(t *testing.T) {
	log := zaptest.NewLogger(t)
	name := filepath.Join(t.TempDir(), "result.idml")

	got, err := resolveCollision(name, false, log)
	if err != nil {
		t.Fatalf("resolveCollision() error = %v", err)
	}
	if got != name {
		t.Errorf("resolveCollision() = %q, want %q", got, name)
	}
}

func TestResolveCollision_Versioned(t *testing.T) {
	log := zaptest.NewLogger(t)
	dir := t.TempDir()
	name := filepath.Join(dir, "result.idml")

	for _, existing := range []string{"result.idml", "result-1.idml"} {
		if err := os.WriteFile(filepath.Join(dir, existing), []byte("x"), 0644); err != nil {
			t.Fatalf("unable to write file: %v", err)
		}
	}

	got, err := resolveCollision(name, false, log)
	if err != nil {
		t.Fatalf("resolveCollision() error = %v", err)
	}
	if want := filepath.Join(dir, "result-2.idml"); got != want {
		t.Errorf("resolveCollision() = %q, want %q", got, want)
	}

	// nothing existing was touched
	if _, err := os.Stat(name); err != nil {
		t.Errorf("existing file disappeared: %v", err)
	}
}

func TestResolveCollision_Overwrite(t *testing.T) {
	log := zaptest.NewLogger(t)
	name := filepath.Join(t.TempDir(), "result.idml")
	if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
		t.Fatalf("unable to write file: %v", err)
	}

	got, err := resolveCollision(name, true, log)
	if err != nil {
		t.Fatalf("resolveCollision() error = %v", err)
	}
	if got != name {
		t.Errorf("resolveCollision() = %q, want %q", got, name)
	}
	if _, err := os.Stat(name); !os.IsNotExist(err) {
		t.Error("existing file was not removed for overwrite")
	}
}
