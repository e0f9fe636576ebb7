package http

import (
	"formdesk/internal/formdesk/domain/entities"
)

// FieldValue одно поле частичного обновления.
type FieldValue struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value"`
}

// UpdateRecordRequest тело PATCH /api/v1/records/:id.
type UpdateRecordRequest struct {
	Fields []FieldValue `json:"fields" validate:"required,min=1,dive"`
}

// Patch преобразует запрос в частичное обновление.
func (r *UpdateRecordRequest) Patch() entities.Patch {
	patch := make(entities.Patch, len(r.Fields))
	for i, f := range r.Fields {
		patch[i] = entities.Field{Name: f.Name, Value: f.Value}
	}
	return patch
}

// ListRecordsResponse ответ GET /api/v1/records.
type ListRecordsResponse struct {
	Records []*entities.StoredRecord `json:"records"`
}

// ValidationErrorResponse ответ с ошибками полей.
type ValidationErrorResponse struct {
	Errors map[string]string `json:"errors"`
}

// ErrorResponse ответ с общей ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}
