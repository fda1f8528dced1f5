// Package inquiry validates and delivers contact and quote submissions.
package inquiry

import (
	"fmt"
	"strings"

	"storefront-services/internal/common/errors"
	"storefront-services/internal/common/validation"
	"storefront-services/pkg/registry"
)

// Forms holds the compiled schema of every registered form.
type Forms struct {
	forms   map[string]registry.Form
	schemas map[string]*validation.Schema
}

func NewForms(reg *registry.FormRegistry) (*Forms, error) {
	f := &Forms{
		forms:   make(map[string]registry.Form, len(reg.Forms)),
		schemas: make(map[string]*validation.Schema, len(reg.Forms)),
	}
	for _, form := range reg.Forms {
		schema, err := validation.Compile(form.ID, form.Schema)
		if err != nil {
			return nil, err
		}
		f.forms[form.ID] = form
		f.schemas[form.ID] = schema
	}
	return f, nil
}

func (f *Forms) Form(id string) (registry.Form, bool) {
	form, ok := f.forms[id]
	return form, ok
}

// Validate checks a decoded body against the named form. The returned error
// is a VALIDATION_FAILED StandardError listing every violation.
func (f *Forms) Validate(id string, body map[string]interface{}) error {
	schema, ok := f.schemas[id]
	if !ok {
		return errors.NewInvalidRequestError(fmt.Sprintf("unknown form %q", id))
	}
	if body == nil {
		body = map[string]interface{}{}
	}
	result, err := schema.Validate(body)
	if err != nil {
		return errors.NewInvalidRequestError(err.Error())
	}
	if !result.Valid {
		return errors.NewValidationFailedError(strings.Join(result.GetErrorMessages(), "; "))
	}
	return nil
}
