package service

import (
	"testing"

	"facturex/internal/models"
)

func TestClassifyDocument(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantKind   models.DocumentKind
		confidence float64
	}{
		{
			name: "customer invoice",
			text: "FACTURA Nº: FACT-2025-0042\nCliente: Acme SL\n" +
				"Base imponible: 100,00\nIVA (21%): 21,00\nTotal a pagar: 121,00",
			wantKind:   models.DocumentKindCustomerInvoice,
			confidence: 0.9,
		},
		{
			name:       "customer refund",
			text:       "FACTURA RECTIFICATIVA\nNota de crédito por devolución de mercancía",
			wantKind:   models.DocumentKindCustomerRefund,
			confidence: 0.7,
		},
		{
			name:       "vendor bill",
			text:       "ORDEN DE COMPRA\nProveedor: Suministros SA\nAlbarán adjunto",
			wantKind:   models.DocumentKindVendorInvoice,
			confidence: 0.5,
		},
		{
			name:       "vendor refund",
			text:       "Abono de proveedor por devolución proveedor",
			wantKind:   models.DocumentKindVendorRefund,
			confidence: 0.3,
		},
		{
			name:       "nothing recognizable",
			text:       "lorem ipsum dolor sit amet",
			wantKind:   "",
			confidence: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, confidence := classifyDocument(tt.text)
			if kind != tt.wantKind {
				t.Fatalf("classifyDocument() kind = %q, want %q", kind, tt.wantKind)
			}
			if confidence != tt.confidence {
				t.Errorf("classifyDocument() confidence = %v, want %v", confidence, tt.confidence)
			}
		})
	}
}

func TestClassifyConfidenceBounds(t *testing.T) {
	// Every rule hit at once must still stay within [0, 1].
	text := "factura nº FACT-2025 cliente iva base imponible total a pagar " +
		"nota de crédito abono rectificativa devolución factura rectificativa"
	_, confidence := classifyDocument(text)
	if confidence <= 0 || confidence > 1 {
		t.Fatalf("confidence = %v, want within (0, 1]", confidence)
	}
}

func TestExtractFieldsFallback(t *testing.T) {
	text := "FACTURA\nNº: FACT-2025-0042\nFecha: 2025-03-14\nReferencia: PED-99\nCliente: Acme SL"
	got := extractFieldsFallback(text)

	if got.Number != "FACT-2025-0042" {
		t.Errorf("Number = %q", got.Number)
	}
	if got.Date != "2025-03-14" {
		t.Errorf("Date = %q", got.Date)
	}
	if got.Reference != "PED-99" {
		t.Errorf("Reference = %q", got.Reference)
	}
}

func TestExtractFieldsFallbackEuroDate(t *testing.T) {
	got := extractFieldsFallback("Invoice #INV-001 con fecha 5/3/2025")
	if got.Number != "INV-001" {
		t.Errorf("Number = %q", got.Number)
	}
	if got.Date != "2025-03-05" {
		t.Errorf("Date = %q, want zero-padded ISO date", got.Date)
	}
}

func TestExtractFieldsFallbackInvalidDate(t *testing.T) {
	got := extractFieldsFallback("emitida el 99/99/2025")
	if got.Date != "" {
		t.Errorf("Date = %q, want empty for an impossible date", got.Date)
	}
}

func TestExtractFieldsFallbackEmpty(t *testing.T) {
	got := extractFieldsFallback("sin datos estructurados")
	if got.Number != "" || got.Date != "" || got.Reference != "" {
		t.Errorf("extraction = %+v, want all empty", got)
	}
}
