package submit

import (
	"context"
	"log"

	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/pacing"
)

// zipRecruiterStrategy submits ZipRecruiter's apply form.
type zipRecruiterStrategy struct{}

func (s *zipRecruiterStrategy) Board() string { return "ziprecruiter" }

func (s *zipRecruiterStrategy) Apply(ctx context.Context, drv browser.Driver, sampler *pacing.Sampler, req *Request) error {
	r := &runner{drv: drv, sampler: sampler}

	if err := r.navigate(ctx, req.Job.URL); err != nil {
		return err
	}

	if err := r.requireVisible(ctx, s.Board(), "button.job_apply"); err != nil {
		return err
	}
	if err := r.click(ctx, "button.job_apply"); err != nil {
		return err
	}

	if err := r.requireVisible(ctx, s.Board(), "#resume_upload"); err != nil {
		return err
	}
	if err := r.upload(ctx, "#resume_upload", req.ResumePath); err != nil {
		return err
	}

	profile := req.Profile
	steps := []fieldStep{
		{
			action: pacing.Action{Class: pacing.ActionKeystroke, Target: "#applicant_name"},
			run:    func(ctx context.Context) error { return r.typeInto(ctx, "#applicant_name", profile.Name) },
		},
		{
			action: pacing.Action{Class: pacing.ActionKeystroke, Target: "#applicant_email"},
			run:    func(ctx context.Context) error { return r.typeInto(ctx, "#applicant_email", profile.Email) },
		},
		{
			action: pacing.Action{Class: pacing.ActionKeystroke, Target: "#applicant_phone"},
			run:    func(ctx context.Context) error { return r.typeInto(ctx, "#applicant_phone", profile.Phone) },
		},
	}
	if err := r.runFields(ctx, steps); err != nil {
		return err
	}

	// Cover letter upload is optional on ZipRecruiter; a missing input is not
	// a mismatch.
	if req.CoverPath != "" {
		if err := r.upload(ctx, "#cover_letter_upload", req.CoverPath); err != nil {
			log.Printf("[SUBMIT] could not upload cover letter: %v", err)
		}
	}

	if err := r.click(ctx, "#submit_app"); err != nil {
		return err
	}

	return r.confirmOrClassify(ctx, s.Board(), ".application_success")
}
