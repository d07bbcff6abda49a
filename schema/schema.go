// Package schema checks action parameters against the JSON schema an
// action was registered with.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/youssefsiam38/flowent-gateway/utils"
)

type Schema struct {
	raw    json.RawMessage
	schema *openapi3.Schema
}

// Compile parses raw as a schema describing a JSON object.
func Compile(raw []byte) (*Schema, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("schema is empty")
	}

	s := &openapi3.Schema{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("schema is not valid JSON: %w", err)
	}
	if !s.Type.Is(openapi3.TypeObject) {
		return nil, fmt.Errorf(`schema must have "type": "object"`)
	}

	return &Schema{raw: append(json.RawMessage(nil), raw...), schema: s}, nil
}

func (s *Schema) Raw() json.RawMessage {
	return s.raw
}

// Validate reports every way params fails the schema as a single
// SchemaValidationFailed error.
func (s *Schema) Validate(params map[string]interface{}) error {
	if params == nil {
		params = map[string]interface{}{}
	}

	// VisitJSON expects the value shapes encoding/json produces.
	data, err := json.Marshal(params)
	if err != nil {
		return utils.ErrSchemaValidationFailed.WithDetails("parameters are not JSON encodable").Wrap(err)
	}
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return utils.ErrSchemaValidationFailed.Wrap(err)
	}

	if err := s.schema.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		return utils.ErrSchemaValidationFailed.WithDetails(describe(err)).Wrap(err)
	}
	return nil
}

func describe(err error) string {
	multi, ok := err.(openapi3.MultiError)
	if !ok || len(multi) == 0 {
		return reason(err)
	}

	reasons := make([]string, 0, len(multi))
	for _, e := range multi {
		reasons = append(reasons, reason(e))
	}
	return strings.Join(reasons, "; ")
}

func reason(err error) string {
	if se, ok := err.(*openapi3.SchemaError); ok {
		if path := se.JSONPointer(); len(path) > 0 {
			return fmt.Sprintf("/%s: %s", strings.Join(path, "/"), se.Reason)
		}
		return se.Reason
	}
	return err.Error()
}
