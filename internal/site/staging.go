package site

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/blogsmith/blogsmith/internal/logfields"
)

// beginStaging creates an isolated staging directory for atomic build output.
// The staging dir is a sibling of the output dir so the final promotion is a
// same-filesystem rename.
func (g *Generator) beginStaging() error {
	stage := g.outputDir + "_stage"
	if err := os.RemoveAll(stage); err != nil {
		return fmt.Errorf("clear stale staging directory: %w", err)
	}
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return err
	}
	g.stageDir = stage
	slog.Debug("initialized staging directory", "staging", stage, "final", g.outputDir)
	return nil
}

// finalizeStaging atomically promotes the staging directory to the final
// output location:
//  1. Move the existing output (if any) to <output>.prev.
//  2. Rename staging -> output.
//  3. Remove the backup best-effort.
//
// A failed build never reaches this point, so the previous output survives
// any build error untouched.
func (g *Generator) finalizeStaging() error {
	if g.stageDir == "" {
		return fmt.Errorf("no staging directory initialized")
	}
	if _, err := os.Stat(g.stageDir); err != nil {
		return fmt.Errorf("staging directory missing: %w", err)
	}

	prev := g.outputDir + ".prev"
	if err := os.RemoveAll(prev); err != nil {
		return fmt.Errorf("remove stale backup: %w", err)
	}
	if _, err := os.Stat(g.outputDir); err == nil {
		if err := os.Rename(g.outputDir, prev); err != nil {
			return fmt.Errorf("backup existing output: %w", err)
		}
	}
	if err := os.Rename(g.stageDir, g.outputDir); err != nil {
		return fmt.Errorf("promote staging: %w", err)
	}
	g.stageDir = ""
	if err := os.RemoveAll(prev); err != nil {
		slog.Warn("failed to remove previous backup", logfields.Path(prev), logfields.Error(err))
	}
	slog.Info("promoted staging directory", logfields.Path(g.outputDir))
	return nil
}

// abortStaging removes the staging directory after a failed build to avoid
// orphaned temp dirs. The promoted output from the previous run stays as-is.
func (g *Generator) abortStaging() {
	if g.stageDir == "" {
		return
	}
	dir := g.stageDir
	g.stageDir = "" // prevent double cleanup
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("failed to remove staging directory after abort", "staging", dir, logfields.Error(err))
	} else {
		slog.Debug("removed staging directory after abort", "staging", dir)
	}
}
