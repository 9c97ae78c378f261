package service

import (
	"fmt"
	"time"

	"facturex/internal/models"
)

// compressionHintThreshold is the ratio above which the archive name
// advertises the space saving, e.g. facturas_ACME_..._35pct.zip.
const compressionHintThreshold = 0.10

// OutcomeAccumulator gathers per-document results during a run and
// produces the final ExportOutcome exactly once.
type OutcomeAccumulator struct {
	total        int
	succeeded    int
	failures     []models.FailedDocument
	originalSize int64
	startedAt    time.Time
	format       models.ArchiveFormat
	companyCode  string
	result       *models.ExportOutcome
}

func NewOutcomeAccumulator(total int, format models.ArchiveFormat, companyCode string) *OutcomeAccumulator {
	code := SanitizeFilename(companyCode)
	if code == "" {
		code = "empresa"
	}
	return &OutcomeAccumulator{
		total:       total,
		startedAt:   time.Now(),
		format:      format,
		companyCode: code,
	}
}

func (a *OutcomeAccumulator) RecordSuccess(size int64) {
	a.succeeded++
	a.originalSize += size
}

func (a *OutcomeAccumulator) RecordFailure(label string, err error) {
	a.failures = append(a.failures, models.FailedDocument{
		Label:  label,
		Reason: err.Error(),
	})
}

func (a *OutcomeAccumulator) Succeeded() int { return a.succeeded }

func (a *OutcomeAccumulator) Failed() int { return len(a.failures) }

func (a *OutcomeAccumulator) Processed() int { return a.succeeded + len(a.failures) }

func (a *OutcomeAccumulator) Failures() []models.FailedDocument { return a.failures }

// Finalize computes the outcome for the finished run: compression
// ratio, elapsed time and the archive filename. Calling it again
// returns the same result.
func (a *OutcomeAccumulator) Finalize(archiveSize int64) *models.ExportOutcome {
	if a.result != nil {
		return a.result
	}

	var ratio float64
	if a.originalSize > 0 {
		ratio = 1 - float64(archiveSize)/float64(a.originalSize)
	}

	a.result = &models.ExportOutcome{
		Total:            a.total,
		Succeeded:        a.succeeded,
		Failed:           len(a.failures),
		Failures:         a.failures,
		ArchiveName:      a.archiveName(ratio),
		ArchiveSize:      archiveSize,
		OriginalSize:     a.originalSize,
		CompressionRatio: ratio,
		Elapsed:          time.Since(a.startedAt),
	}
	return a.result
}

func (a *OutcomeAccumulator) archiveName(ratio float64) string {
	hint := ""
	if ratio > compressionHintThreshold {
		hint = fmt.Sprintf("_%dpct", int(ratio*100))
	}
	return fmt.Sprintf("facturas_%s_%s_%ddocs%s.%s",
		a.companyCode,
		time.Now().Format("20060102_150405"),
		a.succeeded,
		hint,
		FormatExtension(a.format),
	)
}
