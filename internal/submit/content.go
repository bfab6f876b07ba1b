package submit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/apply-agent/internal/types"
)

// MaterializeContent writes generated resume and cover-letter text to files
// under dir so form strategies can upload them. Returns the two paths; the
// cover path is empty when no cover letter was generated.
func MaterializeContent(dir string, rec *types.ApplicationRecord, content *types.GeneratedContent) (resumePath, coverPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create content dir: %w", err)
	}

	base := sanitize(rec.JobIdentity)
	resumePath = filepath.Join(dir, base+"_resume.txt")
	if err := os.WriteFile(resumePath, []byte(content.ResumeText), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write resume file: %w", err)
	}

	if content.CoverLetter != "" {
		coverPath = filepath.Join(dir, base+"_cover_letter.txt")
		if err := os.WriteFile(coverPath, []byte(content.CoverLetter), 0o644); err != nil {
			return "", "", fmt.Errorf("failed to write cover letter file: %w", err)
		}
	}
	return resumePath, coverPath, nil
}

func sanitize(identity string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(identity)
}
