package submit

import (
	"context"

	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/pacing"
)

// indeedStrategy submits Indeed's hosted apply form.
type indeedStrategy struct{}

func (s *indeedStrategy) Board() string { return "indeed" }

func (s *indeedStrategy) Apply(ctx context.Context, drv browser.Driver, sampler *pacing.Sampler, req *Request) error {
	r := &runner{drv: drv, sampler: sampler}

	if err := r.navigate(ctx, req.Job.URL); err != nil {
		return err
	}

	if err := r.requireVisible(ctx, s.Board(), "#indeedApplyButton"); err != nil {
		return err
	}
	if err := r.click(ctx, "#indeedApplyButton"); err != nil {
		return err
	}

	if err := r.requireVisible(ctx, s.Board(), "input[type='file']"); err != nil {
		return err
	}
	if err := r.upload(ctx, "input[type='file']", req.ResumePath); err != nil {
		return err
	}

	// Contact fields are independent of each other; fill them in a
	// jitter-ordered sequence.
	profile := req.Profile
	steps := []fieldStep{
		{
			action: pacing.Action{Class: pacing.ActionKeystroke, Target: "#input-applicant\\.name"},
			run:    func(ctx context.Context) error { return r.typeInto(ctx, "#input-applicant\\.name", profile.Name) },
		},
		{
			action: pacing.Action{Class: pacing.ActionKeystroke, Target: "#input-applicant\\.email"},
			run:    func(ctx context.Context) error { return r.typeInto(ctx, "#input-applicant\\.email", profile.Email) },
		},
		{
			action: pacing.Action{Class: pacing.ActionKeystroke, Target: "#input-applicant\\.phone"},
			run:    func(ctx context.Context) error { return r.typeInto(ctx, "#input-applicant\\.phone", profile.Phone) },
		},
	}
	if err := r.runFields(ctx, steps); err != nil {
		return err
	}

	if err := r.click(ctx, "button[data-testid='continue-button']"); err != nil {
		return err
	}
	if err := r.click(ctx, "button[data-testid='submit-button']"); err != nil {
		return err
	}

	return r.confirmOrClassify(ctx, s.Board(), "div[data-testid='success-message']")
}
