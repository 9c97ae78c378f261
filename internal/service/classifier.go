package service

import (
	"regexp"
	"strings"
	"time"

	"facturex/internal/models"
)

// classificationRule scores a document kind against extracted text.
// Each keyword hit counts 1 point, each regex hit 2.
type classificationRule struct {
	kind     models.DocumentKind
	keywords []string
	patterns []*regexp.Regexp
}

var intakeRules = []classificationRule{
	{
		kind: models.DocumentKindCustomerInvoice,
		keywords: []string{
			"factura", "cliente", "total a pagar", "iva", "base imponible",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)factura\s+(?:n[ºo°]|num|:)`),
			regexp.MustCompile(`(?i)fact[-/]?\d{4}`),
		},
	},
	{
		kind: models.DocumentKindCustomerRefund,
		keywords: []string{
			"nota de crédito", "abono", "rectificativa", "devolución",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)factura\s+rectificativa`),
			regexp.MustCompile(`(?i)nota\s+de\s+cr[eé]dito`),
		},
	},
	{
		kind: models.DocumentKindVendorInvoice,
		keywords: []string{
			"proveedor", "recibí", "albarán", "orden de compra", "pedido",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)orden\s+de\s+compra`),
			regexp.MustCompile(`(?i)n[ºo°]\s*proveedor`),
		},
	},
	{
		kind: models.DocumentKindVendorRefund,
		keywords: []string{
			"abono proveedor", "devolución proveedor", "nota de débito",
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)abono\s+de\s+proveedor`),
		},
	},
}

// classifyDocument scores the text against every rule and returns the
// best kind with its confidence. An unmatched text returns the empty
// kind and zero confidence.
func classifyDocument(text string) (models.DocumentKind, float64) {
	lower := strings.ToLower(text)

	var (
		bestKind  models.DocumentKind
		bestScore int
	)
	for _, rule := range intakeRules {
		score := 0
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		for _, re := range rule.patterns {
			if re.MatchString(text) {
				score += 2
			}
		}
		if score > bestScore {
			bestScore = score
			bestKind = rule.kind
		}
	}

	if bestScore == 0 {
		return "", 0
	}

	confidence := float64(bestScore) / 10.0
	if confidence > 1.0 {
		confidence = 1.0
	}
	return bestKind, confidence
}

var (
	numberRe    = regexp.MustCompile(`(?i)(?:factura|invoice|n[ºo°]\.?)\s*[:#]?\s*([A-Z0-9][A-Z0-9\-/]{2,24})`)
	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	euroDateRe  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	referenceRe = regexp.MustCompile(`(?i)(?:referencia|ref\.?|pedido)\s*[:#]?\s*([A-Z0-9][A-Z0-9\-/]{1,24})`)
)

// extractFieldsFallback pulls invoice fields out of raw text with
// regular expressions. Used when the LLM is not configured or fails.
func extractFieldsFallback(text string) *InvoiceExtraction {
	out := &InvoiceExtraction{}

	if m := numberRe.FindStringSubmatch(text); m != nil {
		out.Number = strings.TrimSpace(m[1])
	}
	if m := referenceRe.FindStringSubmatch(text); m != nil {
		out.Reference = strings.TrimSpace(m[1])
	}

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		if _, err := time.Parse("2006-01-02", m[0]); err == nil {
			out.Date = m[0]
		}
	} else if m := euroDateRe.FindStringSubmatch(text); m != nil {
		day, month, year := m[1], m[2], m[3]
		if len(day) == 1 {
			day = "0" + day
		}
		if len(month) == 1 {
			month = "0" + month
		}
		candidate := year + "-" + month + "-" + day
		if _, err := time.Parse("2006-01-02", candidate); err == nil {
			out.Date = candidate
		}
	}

	return out
}
