package site

import (
	"context"
	"errors"
	"fmt"

	"github.com/blogsmith/blogsmith/internal/config"
	"github.com/blogsmith/blogsmith/internal/linkcheck"
)

// stageVerifyLinks checks internal links in the staged output before
// promotion. Broken links warn by default and fail the build in strict
// mode; verification runs on the staging dir so a strict failure leaves
// the previous output untouched.
func stageVerifyLinks(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	mode := g.cfg.Build.LinkCheck
	if mode == config.LinkCheckOff {
		return nil
	}

	issues, err := linkcheck.Check(g.stageDir)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		return nil
	}

	errs := make([]error, 0, len(issues))
	for _, issue := range issues {
		errs = append(errs, fmt.Errorf("%s", issue))
	}
	joined := errors.Join(errs...)
	if mode == config.LinkCheckStrict {
		return newFatalStageError("verify_links", joined)
	}
	return newWarnStageError("verify_links", joined)
}
