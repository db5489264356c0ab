package annotation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError lists the fields of an annotation that break its invariants.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "invalid annotation"
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e.Fields[key])
	}
	return "invalid annotation: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("annotation_type", func(fl validator.FieldLevel) bool {
		return Type(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("annotation_tag", func(fl validator.FieldLevel) bool {
		return Tag(fl.Field().String()).Valid()
	})
	v.RegisterStructValidation(annotationRules, Annotation{})
	return v
}

func annotationRules(sl validator.StructLevel) {
	a, ok := sl.Current().Interface().(Annotation)
	if !ok {
		return
	}
	switch a.Type {
	case TypeGlobalComment:
		if a.OriginalText != "" {
			sl.ReportError(a.OriginalText, "originalText", "OriginalText", "global_without_selection", "")
		}
		if strings.TrimSpace(a.Text) == "" {
			sl.ReportError(a.Text, "text", "Text", "required", "")
		}
	case TypeDeletion:
		if strings.TrimSpace(a.OriginalText) == "" {
			sl.ReportError(a.OriginalText, "originalText", "OriginalText", "required", "")
		}
		if a.Text != "" {
			sl.ReportError(a.Text, "text", "Text", "deletion_without_text", "")
		}
	case TypeReplacement, TypeComment:
		if strings.TrimSpace(a.OriginalText) == "" {
			sl.ReportError(a.OriginalText, "originalText", "OriginalText", "required", "")
		}
	case TypeInsertion:
		if strings.TrimSpace(a.Text) == "" {
			sl.ReportError(a.Text, "text", "Text", "required", "")
		}
	}
	if a.Type != TypeGlobalComment && a.Type.Valid() && strings.TrimSpace(a.BlockID) == "" {
		sl.ReportError(a.BlockID, "blockId", "BlockID", "required", "")
	}
}

// Validate checks the annotation invariants: GLOBAL_COMMENT carries no
// selection, DELETION carries a selection and no text, and every other type is
// anchored to a block.
func Validate(a Annotation) error {
	err := validate.Struct(a)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate annotation: %w", err)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[jsonFieldName(fe.Field())] = fmt.Sprintf("failed on '%s' tag", fe.Tag())
	}
	return &ValidationError{Fields: fields}
}

func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	switch field {
	case "ID":
		return "id"
	case "BlockID":
		return "blockId"
	}
	return strings.ToLower(field[:1]) + field[1:]
}
