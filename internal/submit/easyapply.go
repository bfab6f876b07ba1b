package submit

import (
	"context"

	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/pacing"
)

// easyApplyStrategy submits LinkedIn Easy Apply flows: the application is
// completed without leaving the board's own interface.
type easyApplyStrategy struct{}

func (s *easyApplyStrategy) Board() string { return "linkedin" }

func (s *easyApplyStrategy) Apply(ctx context.Context, drv browser.Driver, sampler *pacing.Sampler, req *Request) error {
	r := &runner{drv: drv, sampler: sampler}

	if err := r.navigate(ctx, req.Job.URL); err != nil {
		return err
	}

	if err := r.requireVisible(ctx, s.Board(), "button.jobs-apply-button"); err != nil {
		return err
	}
	if err := r.click(ctx, "button.jobs-apply-button"); err != nil {
		return err
	}

	if err := r.requireVisible(ctx, s.Board(), ".jobs-easy-apply-content"); err != nil {
		return err
	}

	if err := r.upload(ctx, "input[type='file']", req.ResumePath); err != nil {
		return err
	}

	if err := r.click(ctx, "button[aria-label='Submit application']"); err != nil {
		return err
	}

	return r.confirmOrClassify(ctx, s.Board(), ".artdeco-inline-feedback--success")
}
