package docgen

import "errors"

var (
	ErrGenerateFailed = errors.New("generate cluster failed")
	ErrRenderFailed   = errors.New("render document failed")
	ErrWriteFailed    = errors.New("write document failed")
)

// Cluster failure stages reported in the run summary.
const (
	StageGenerate = "generate"
	StageRender   = "render"
	StageSchedule = "schedule"
	StageWrite    = "write"
)
