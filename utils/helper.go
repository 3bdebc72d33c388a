package utils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the shared validator over an input struct (batch
// create/update payloads). Returns nil when the struct passes.
func ValidateStruct(input any) error {
	return validate.Struct(input)
}

func ProcessValidationErrors(err error) map[string]string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"error": err.Error()}
	}

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

// Paginate slices out one page. Page numbers are 1-based; out-of-range pages
// yield an empty slice.
func Paginate[T any](items []T, page int, perPage int) []T {
	if page < 1 || perPage < 1 {
		return nil
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func TotalPages(count int, perPage int) int {
	if perPage < 1 {
		return 0
	}
	return (count + perPage - 1) / perPage
}
