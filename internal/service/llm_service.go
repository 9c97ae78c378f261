package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"facturex/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

type LLMService struct {
	client *gigago.Client
	model  *gigago.GenerativeModel
	logger *zap.Logger
}

// InvoiceExtraction holds the structured fields the model reads out of
// an invoice's text. Empty strings mean the field was not found.
type InvoiceExtraction struct {
	Number    string `json:"number"`
	Partner   string `json:"partner"`
	Date      string `json:"date"`
	Reference string `json:"reference"`
}

func buildSystemInstruction() string {
	return `Eres un asistente contable especializado en facturas españolas. Tu tarea es extraer datos estructurados del texto de facturas y abonos.

Reglas:
- Devuelve SIEMPRE un único objeto JSON válido, sin comentarios ni marcado adicional.
- "number" es el número de la factura tal como aparece (por ejemplo FACT-2025-0042 o F/2025/001).
- "partner" es el nombre del cliente o proveedor, no el de la empresa emisora si puede distinguirse.
- "date" es la fecha de emisión en formato YYYY-MM-DD.
- "reference" es la referencia de pedido o expediente si existe.
- Usa cadena vacía para cualquier campo que no aparezca en el texto.
- No inventes datos que no estén presentes.`
}

func NewLLMService(cfg *config.GigaChatConfig, logger *zap.Logger) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GigaChat API key is not configured")
	}

	ctx := context.Background()

	// Build client options
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel("GigaChat")
	model.SystemInstruction = buildSystemInstruction()
	model.Temperature = 0.1

	logger.Info("GigaChat invoice extraction enabled")

	return &LLMService{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// ExtractInvoiceFields asks the model for the descriptive fields of an
// invoice given its extracted text.
func (s *LLMService) ExtractInvoiceFields(ctx context.Context, extractedText string) (*InvoiceExtraction, error) {
	extractedText = strings.TrimSpace(extractedText)
	if len(extractedText) < 10 {
		s.logger.Warn("Extracted text is too short, skipping LLM extraction", zap.Int("length", len(extractedText)))
		return &InvoiceExtraction{}, nil
	}

	prompt := fmt.Sprintf(`Extrae los datos de la siguiente factura.

IMPORTANTE: Devuelve SOLO un objeto JSON válido, sin comentarios ni explicaciones.

Texto de la factura:
%s

Formato de respuesta:
{
  "number": "número de factura",
  "partner": "nombre del cliente o proveedor",
  "date": "YYYY-MM-DD",
  "reference": "referencia de pedido"
}

Usa "" para los campos que no aparezcan en el texto.`, extractedText)

	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	}

	resp, err := s.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from LLM")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	// The model sometimes wraps the object in markdown fences or adds
	// prose around it; cut to the outermost braces first.
	jsonStart := strings.Index(content, "{")
	jsonEnd := strings.LastIndex(content, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd < jsonStart {
		return nil, fmt.Errorf("invalid response format: %s", content)
	}

	jsonStr := content[jsonStart : jsonEnd+1]

	var extraction InvoiceExtraction
	if err := json.Unmarshal([]byte(jsonStr), &extraction); err != nil {
		jsonStr = strings.TrimSpace(jsonStr)
		jsonStr = strings.TrimPrefix(jsonStr, "```json")
		jsonStr = strings.TrimPrefix(jsonStr, "```")
		jsonStr = strings.TrimSuffix(jsonStr, "```")
		jsonStr = strings.TrimSpace(jsonStr)

		if err := json.Unmarshal([]byte(jsonStr), &extraction); err != nil {
			return nil, fmt.Errorf("failed to parse JSON response: %w, content: %s", err, content)
		}
	}

	s.logger.Info("Invoice field extraction completed",
		zap.Bool("number_found", extraction.Number != ""),
		zap.Bool("partner_found", extraction.Partner != ""),
		zap.Bool("date_found", extraction.Date != ""),
	)

	return &extraction, nil
}

func (s *LLMService) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
