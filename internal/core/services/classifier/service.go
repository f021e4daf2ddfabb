package classifier

import (
	"time"

	"gitlab.com/coderunner.net/internal/domain"
)

// IClassifier turns a supervised outcome into a verdict.
type IClassifier interface {
	// Classify never fails; unknown error text degrades to a generic hint
	Classify(language string, outcome domain.Outcome, timeout time.Duration) *domain.Verdict
}
