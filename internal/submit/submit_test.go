package submit

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/pacing"
	"github.com/jonathan/apply-agent/internal/types"
)

// fakeDriver records actions and answers from a scripted page state.
type fakeDriver struct {
	visible   map[string]bool
	waitErr   map[string]error
	blocked   bool
	typed     map[string]string
	uploaded  map[string]string
	clicked   []string
	navigated []string
}

func newFakeDriver(visible ...string) *fakeDriver {
	d := &fakeDriver{
		visible:  make(map[string]bool),
		waitErr:  make(map[string]error),
		typed:    make(map[string]string),
		uploaded: make(map[string]string),
	}
	for _, sel := range visible {
		d.visible[sel] = true
	}
	return d
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *fakeDriver) WaitVisible(_ context.Context, selector string) error {
	if err, ok := d.waitErr[selector]; ok {
		return err
	}
	if d.visible[selector] {
		return nil
	}
	return &browser.ActionError{Op: "wait_visible", Selector: selector, Timeout: true}
}

func (d *fakeDriver) Click(_ context.Context, selector string) error {
	d.clicked = append(d.clicked, selector)
	return nil
}

func (d *fakeDriver) Type(_ context.Context, selector, text string, _ []time.Duration) error {
	d.typed[selector] = text
	return nil
}

func (d *fakeDriver) Upload(_ context.Context, selector, path string) error {
	d.uploaded[selector] = path
	return nil
}

func (d *fakeDriver) Text(_ context.Context, _ string) (string, error) { return "", nil }

func (d *fakeDriver) DetectBlockSignal(_ context.Context) (bool, error) { return d.blocked, nil }

func (d *fakeDriver) Close() error { return nil }

// fastSampler returns a sampler with zero delays and no reordering so tests
// run instantly and assertions stay deterministic.
func fastSampler() *pacing.Sampler {
	policy := pacing.DefaultPolicy()
	for class := range policy.Delays {
		policy.Delays[class] = pacing.Bounds{}
	}
	policy.SwapProbability = 0
	policy.FillerProbability = 0
	policy.ThinkProbability = 0
	return pacing.NewSampler(policy, rand.New(rand.NewSource(1)))
}

func testRequest(board string) *Request {
	return &Request{
		Job: &types.JobPosting{
			Board:      board,
			ExternalID: "1",
			Title:      "Engineer",
			Company:    "Initech",
			URL:        "https://example.com/job/1",
		},
		Profile: &types.CandidateProfile{
			Name:  "Ada Example",
			Email: "ada@example.com",
			Phone: "555-0100",
		},
		ResumePath: "/tmp/resume.txt",
	}
}

func TestSubmitUnknownBoardIsStructuralMismatch(t *testing.T) {
	s := NewSubmitter()
	err := s.Submit(context.Background(), newFakeDriver(), fastSampler(), testRequest("monster"))

	var mismatch *StructuralMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "monster", mismatch.Board)
}

func TestEasyApplyHappyPath(t *testing.T) {
	drv := newFakeDriver(
		"button.jobs-apply-button",
		".jobs-easy-apply-content",
		".artdeco-inline-feedback--success",
	)

	err := NewSubmitter().Submit(context.Background(), drv, fastSampler(), testRequest("linkedin"))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/job/1"}, drv.navigated)
	assert.Contains(t, drv.clicked, "button.jobs-apply-button")
	assert.Contains(t, drv.clicked, "button[aria-label='Submit application']")
	assert.Equal(t, "/tmp/resume.txt", drv.uploaded["input[type='file']"])
}

func TestIndeedFillsContactFields(t *testing.T) {
	drv := newFakeDriver(
		"#indeedApplyButton",
		"input[type='file']",
		"div[data-testid='success-message']",
	)

	err := NewSubmitter().Submit(context.Background(), drv, fastSampler(), testRequest("indeed"))
	require.NoError(t, err)

	assert.Equal(t, "Ada Example", drv.typed["#input-applicant\\.name"])
	assert.Equal(t, "ada@example.com", drv.typed["#input-applicant\\.email"])
	assert.Equal(t, "555-0100", drv.typed["#input-applicant\\.phone"])
}

func TestMissingFormShapeIsStructuralMismatch(t *testing.T) {
	// The apply button never appears and no block signal is present.
	drv := newFakeDriver()

	err := NewSubmitter().Submit(context.Background(), drv, fastSampler(), testRequest("linkedin"))

	var mismatch *StructuralMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "button.jobs-apply-button", mismatch.Missing)
}

func TestBlockSignalWinsOverMismatch(t *testing.T) {
	drv := newFakeDriver()
	drv.blocked = true

	err := NewSubmitter().Submit(context.Background(), drv, fastSampler(), testRequest("linkedin"))

	var blocked *BlockDetectedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "linkedin", blocked.Board)
}

func TestMissingConfirmationProbesBlockSignal(t *testing.T) {
	drv := newFakeDriver(
		"button.jobs-apply-button",
		".jobs-easy-apply-content",
		// no success marker
	)
	drv.blocked = true

	err := NewSubmitter().Submit(context.Background(), drv, fastSampler(), testRequest("linkedin"))

	var blocked *BlockDetectedError
	require.ErrorAs(t, err, &blocked)
}

func TestMissingConfirmationWithoutBlockIsPlainFailure(t *testing.T) {
	drv := newFakeDriver(
		"button.jobs-apply-button",
		".jobs-easy-apply-content",
	)

	err := NewSubmitter().Submit(context.Background(), drv, fastSampler(), testRequest("linkedin"))
	require.Error(t, err)

	var blocked *BlockDetectedError
	assert.False(t, errors.As(err, &blocked))
	var mismatch *StructuralMismatchError
	assert.False(t, errors.As(err, &mismatch))
}

func TestZipRecruiterOptionalCoverLetter(t *testing.T) {
	drv := newFakeDriver(
		"button.job_apply",
		"#resume_upload",
		".application_success",
	)

	req := testRequest("ziprecruiter")
	req.CoverPath = "/tmp/cover.txt"
	err := NewSubmitter().Submit(context.Background(), drv, fastSampler(), req)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/resume.txt", drv.uploaded["#resume_upload"])
	assert.Equal(t, "/tmp/cover.txt", drv.uploaded["#cover_letter_upload"])
	assert.Contains(t, drv.clicked, "#submit_app")
}
