package service

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"facturex/internal/models"
)

func TestOutcomeAccounting(t *testing.T) {
	acc := NewOutcomeAccumulator(3, models.FormatZip, "ACME")
	acc.RecordSuccess(1000)
	acc.RecordSuccess(500)
	acc.RecordFailure("FAC-3", errors.New("fichero no encontrado"))

	if acc.Succeeded() != 2 {
		t.Errorf("Succeeded() = %d, want 2", acc.Succeeded())
	}
	if acc.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", acc.Failed())
	}
	if acc.Processed() != 3 {
		t.Errorf("Processed() = %d, want 3", acc.Processed())
	}

	outcome := acc.Finalize(300)
	if outcome.Total != 3 || outcome.Succeeded != 2 || outcome.Failed != 1 {
		t.Errorf("counts = %d/%d/%d", outcome.Total, outcome.Succeeded, outcome.Failed)
	}
	if outcome.OriginalSize != 1500 {
		t.Errorf("OriginalSize = %d, want 1500", outcome.OriginalSize)
	}
	if outcome.ArchiveSize != 300 {
		t.Errorf("ArchiveSize = %d, want 300", outcome.ArchiveSize)
	}
	if outcome.Failures[0].Label != "FAC-3" {
		t.Errorf("failure label = %q", outcome.Failures[0].Label)
	}
}

func TestOutcomeCompressionRatio(t *testing.T) {
	acc := NewOutcomeAccumulator(1, models.FormatZip, "ACME")
	acc.RecordSuccess(1000)

	outcome := acc.Finalize(250)
	if outcome.CompressionRatio != 0.75 {
		t.Errorf("CompressionRatio = %v, want 0.75", outcome.CompressionRatio)
	}
	if !strings.Contains(outcome.ArchiveName, "_75pct") {
		t.Errorf("archive name %q should advertise the saving", outcome.ArchiveName)
	}
}

func TestOutcomeRatioBelowHintThreshold(t *testing.T) {
	acc := NewOutcomeAccumulator(1, models.FormatZip, "ACME")
	acc.RecordSuccess(1000)

	outcome := acc.Finalize(950)
	if strings.Contains(outcome.ArchiveName, "pct") {
		t.Errorf("archive name %q should not advertise a %v saving", outcome.ArchiveName, outcome.CompressionRatio)
	}
}

func TestOutcomeZeroOriginalSize(t *testing.T) {
	acc := NewOutcomeAccumulator(1, models.FormatZip, "ACME")
	acc.RecordFailure("FAC-1", errors.New("boom"))

	outcome := acc.Finalize(22)
	if outcome.CompressionRatio != 0 {
		t.Errorf("CompressionRatio = %v, want 0", outcome.CompressionRatio)
	}
}

func TestOutcomeArchiveName(t *testing.T) {
	acc := NewOutcomeAccumulator(2, models.FormatTarGz, "Mi Empresa S.L.")
	acc.RecordSuccess(100)
	acc.RecordSuccess(100)

	outcome := acc.Finalize(190)
	pattern := regexp.MustCompile(`^facturas_Mi_Empresa_S\.L_\d{8}_\d{6}_2docs\.tar\.gz$`)
	if !pattern.MatchString(outcome.ArchiveName) {
		t.Errorf("archive name = %q", outcome.ArchiveName)
	}
}

func TestOutcomeFinalizeIdempotent(t *testing.T) {
	acc := NewOutcomeAccumulator(1, models.FormatZip, "ACME")
	acc.RecordSuccess(100)

	first := acc.Finalize(50)
	second := acc.Finalize(9999)
	if first != second {
		t.Error("Finalize() should return the cached outcome")
	}
	if second.ArchiveSize != 50 {
		t.Errorf("ArchiveSize changed to %d on the second call", second.ArchiveSize)
	}
}

func TestFailureSummary(t *testing.T) {
	failures := []models.FailedDocument{
		{Label: "FAC-1", Reason: "fichero no encontrado"},
		{Label: "FAC-2", Reason: "sin contenido"},
	}
	summary := FailureSummary(failures, 5)
	if !strings.Contains(summary, "• FAC-1: fichero no encontrado") {
		t.Errorf("summary = %q", summary)
	}
	if strings.Contains(summary, "más") {
		t.Errorf("summary %q should not mention omitted entries", summary)
	}

	var many []models.FailedDocument
	for i := 0; i < 8; i++ {
		many = append(many, models.FailedDocument{Label: "DOC", Reason: "boom"})
	}
	summary = FailureSummary(many, 5)
	if got := strings.Count(summary, "•"); got != 5 {
		t.Errorf("summary lists %d entries, want 5", got)
	}
	if !strings.Contains(summary, "... y 3 errores más") {
		t.Errorf("summary = %q", summary)
	}

	if FailureSummary(nil, 5) != "" {
		t.Error("empty failure list should produce an empty summary")
	}
}
