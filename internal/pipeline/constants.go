package pipeline

import "time"

// Stage names a state of a pipeline run.
type Stage string

const (
	StageValidating   Stage = "validating"
	StageRasterizing  Stage = "rasterizing"
	StageExtracting   Stage = "extracting"
	StageGating       Stage = "gating"
	StageCategorizing Stage = "categorizing"
	StageAnalyzing    Stage = "analyzing"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// Default values for statement processing.
const (
	// DefaultDPI is the page render resolution.
	DefaultDPI = 150

	// DefaultMaxPDFBytes is the upload size cap.
	DefaultMaxPDFBytes = 20 * 1024 * 1024

	// DefaultStageTimeout bounds each model call.
	DefaultStageTimeout = 120 * time.Second

	// MinTaxonomySize and MaxTaxonomySize bound the label count the
	// categorizer is asked for. Outside the range is logged, not rejected.
	MinTaxonomySize = 5
	MaxTaxonomySize = 8
)
