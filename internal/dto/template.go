package dto

type CreateTemplateRequest struct {
	Name        string `json:"name" validate:"required"`
	Pattern     string `json:"pattern" validate:"required"`
	Description string `json:"description"`
	IsDefault   bool   `json:"is_default"`
}

type UpdateTemplateRequest struct {
	Name        *string `json:"name"`
	Pattern     *string `json:"pattern"`
	Description *string `json:"description"`
	IsDefault   *bool   `json:"is_default"`
	Active      *bool   `json:"active"`
}

type PreviewTemplateRequest struct {
	Pattern string `json:"pattern" validate:"required"`
}

type PreviewTemplateResponse struct {
	Pattern string `json:"pattern"`
	Example string `json:"example"`
}

type TemplateResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Pattern     string `json:"pattern"`
	Description string `json:"description,omitempty"`
	IsDefault   bool   `json:"is_default"`
	Active      bool   `json:"active"`
	UsageCount  int    `json:"usage_count"`
	LastUsedAt  string `json:"last_used_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}
