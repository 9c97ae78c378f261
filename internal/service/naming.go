package service

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"facturex/internal/models"
)

// DefaultPattern is used when a company has no naming template yet.
const DefaultPattern = "{type}_{number}_{partner}_{date}.pdf"

const (
	maxFilenameLength = 200
	emptyNameToken    = "archivo"
)

// Sentinel values substituted when a document lacks the field a
// placeholder asks for.
const (
	sentinelNoNumber  = "SIN_NUMERO"
	sentinelNoPartner = "SIN_PARTNER"
	sentinelNoDate    = "SIN_FECHA"
	sentinelNoCompany = "SIN_EMPRESA"
	sentinelNoYear    = "XXXX"
	sentinelNoMonth   = "XX"
	labelUnknownKind  = "DESCONOCIDO"
)

var templateVariables = map[string]bool{
	"type":      true,
	"number":    true,
	"partner":   true,
	"date":      true,
	"year":      true,
	"month":     true,
	"company":   true,
	"reference": true,
}

var (
	placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

	filenameReplacer = strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_",
		"\n", "_", "\r", "_", "\t", "_",
	)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	invalidRuneRe = regexp.MustCompile(`[^\p{L}\p{N}_\-.]`)
	underscoreRe  = regexp.MustCompile(`_+`)
)

// ValidatePattern checks a naming pattern: it must contain at least one
// known placeholder, no unknown ones, and no characters that are
// illegal in filenames on common filesystems.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return &ValidationError{Field: "pattern", Reason: "el patrón no puede estar vacío"}
	}

	matches := placeholderRe.FindAllStringSubmatch(pattern, -1)

	var unknown []string
	for _, m := range matches {
		if !templateVariables[m[1]] {
			unknown = append(unknown, m[1])
		}
	}
	if len(unknown) > 0 {
		return &ValidationError{
			Field:  "pattern",
			Reason: fmt.Sprintf("variables desconocidas: %s", strings.Join(unknown, ", ")),
		}
	}
	if len(matches) == 0 {
		return &ValidationError{Field: "pattern", Reason: "debe contener al menos una variable como {number}"}
	}

	if i := strings.IndexAny(pattern, `<>:"|?*`); i >= 0 {
		return &ValidationError{
			Field:  "pattern",
			Reason: fmt.Sprintf("contiene el carácter no permitido %q", pattern[i]),
		}
	}

	// Probe with a dummy value per placeholder. A pattern that renders
	// to pure whitespace would produce unusable filenames.
	probe := placeholderRe.ReplaceAllString(pattern, "test")
	if strings.TrimSpace(probe) == "" {
		return &ValidationError{Field: "pattern", Reason: "el patrón genera nombres vacíos"}
	}

	return nil
}

// SanitizeFilename scrubs a name component for safe use on disk:
// reserved and whitespace characters become underscores, underscore
// runs collapse, and leading/trailing separators are stripped. A
// non-empty input that cleans to nothing becomes "archivo". The
// function is idempotent.
func SanitizeFilename(name string) string {
	if name == "" {
		return ""
	}

	out := filenameReplacer.Replace(name)
	out = whitespaceRe.ReplaceAllString(out, "_")
	out = invalidRuneRe.ReplaceAllString(out, "_")
	out = underscoreRe.ReplaceAllString(out, "_")
	out = strings.Trim(out, "_.")

	if out == "" {
		return emptyNameToken
	}
	return out
}

func documentTypeLabel(kind models.DocumentKind) string {
	switch kind {
	case models.DocumentKindCustomerInvoice:
		return "CLIENTE"
	case models.DocumentKindCustomerRefund:
		return "NC_CLIENTE"
	case models.DocumentKindVendorInvoice:
		return "PROVEEDOR"
	case models.DocumentKindVendorRefund:
		return "NC_PROVEEDOR"
	default:
		return labelUnknownKind
	}
}

func placeholderValues(doc *models.Document, companyName string) map[string]string {
	values := map[string]string{
		"type":      documentTypeLabel(doc.Kind),
		"number":    sentinelNoNumber,
		"partner":   sentinelNoPartner,
		"date":      sentinelNoDate,
		"year":      sentinelNoYear,
		"month":     sentinelNoMonth,
		"company":   sentinelNoCompany,
		"reference": "",
	}

	if doc.Number != "" {
		values["number"] = doc.Number
	}
	if doc.PartnerName != "" {
		values["partner"] = doc.PartnerName
	}
	if doc.IssueDate != nil {
		values["date"] = doc.IssueDate.Format("2006-01-02")
		values["year"] = doc.IssueDate.Format("2006")
		values["month"] = doc.IssueDate.Format("01")
	}
	if companyName != "" {
		values["company"] = companyName
	}
	if doc.Reference != "" {
		values["reference"] = doc.Reference
	} else if doc.PartnerRef != "" {
		values["reference"] = doc.PartnerRef
	}

	return values
}

// RenderDocumentName substitutes the document's values into pattern
// and sanitizes the result. Placeholders unknown to the vocabulary
// make it fail so the caller can fall back to FallbackDocumentName.
func RenderDocumentName(pattern string, doc *models.Document, companyName string) (string, error) {
	values := placeholderValues(doc, companyName)

	var badVar string
	rendered := placeholderRe.ReplaceAllStringFunc(pattern, func(m string) string {
		key := m[1 : len(m)-1]
		value, ok := values[key]
		if !ok {
			badVar = key
			return m
		}
		return SanitizeFilename(value)
	})
	if badVar != "" {
		return "", fmt.Errorf("unknown placeholder {%s}", badVar)
	}

	name := SanitizeFilename(rendered)
	name = ensurePDFExtension(name)
	return truncateFilename(name, maxFilenameLength), nil
}

// FallbackDocumentName builds a minimal deterministic name used when
// pattern rendering fails for one document.
func FallbackDocumentName(doc *models.Document) string {
	number := sentinelNoNumber
	if doc.Number != "" {
		number = SanitizeFilename(doc.Number)
	}
	date := sentinelNoDate
	if doc.IssueDate != nil {
		date = doc.IssueDate.Format("20060102")
	}
	return fmt.Sprintf("%s_%s_%s.pdf", documentTypeLabel(doc.Kind), number, date)
}

// RenderExample renders a pattern with representative sample values
// for the template preview endpoint.
func RenderExample(pattern string) (string, error) {
	if err := ValidatePattern(pattern); err != nil {
		return "", err
	}

	issueDate := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)
	doc := &models.Document{
		Kind:        models.DocumentKindCustomerInvoice,
		Number:      "FACT-2025-0001",
		PartnerName: "Empresa Ejemplo SL",
		Reference:   "PED-00042",
		IssueDate:   &issueDate,
	}
	return RenderDocumentName(pattern, doc, "Mi Compañía")
}

func ensurePDFExtension(name string) string {
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return name + ".pdf"
	}
	return name
}

// truncateFilename caps the name at max runes, keeping the extension.
func truncateFilename(name string, max int) string {
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}

	ext := filepath.Ext(name)
	extRunes := []rune(ext)
	keep := max - len(extRunes)
	if keep < 1 {
		keep = 1
	}

	base := []rune(strings.TrimSuffix(name, ext))
	if len(base) > keep {
		base = base[:keep]
	}
	return string(base) + ext
}
