package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssefsiam38/flowent-gateway/utils"
)

const sendEmailSchema = `{
	"type": "object",
	"properties": {
		"recipient": {"type": "string", "description": "Email address of the recipient"},
		"subject": {"type": "string"},
		"body": {"type": "string"},
		"priority": {"type": "integer", "minimum": 1, "maximum": 5}
	},
	"required": ["recipient", "subject", "body"]
}`

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "object schema", raw: sendEmailSchema},
		{name: "empty object schema", raw: `{"type":"object"}`},
		{name: "empty", raw: ``, wantErr: true},
		{name: "not json", raw: `{"type":`, wantErr: true},
		{name: "string schema", raw: `{"type":"string"}`, wantErr: true},
		{name: "missing type", raw: `{"properties":{}}`, wantErr: true},
		{name: "array", raw: `[]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compile([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.raw, string(s.Raw()))
		})
	}
}

func TestValidate(t *testing.T) {
	s, err := Compile([]byte(sendEmailSchema))
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		err := s.Validate(map[string]interface{}{
			"recipient": "a@b.co",
			"subject":   "Hi",
			"body":      "Hello",
			"priority":  3,
		})
		assert.NoError(t, err)
	})

	t.Run("missing required", func(t *testing.T) {
		err := s.Validate(map[string]interface{}{"recipient": "a@b.co", "subject": "Hi"})
		require.Error(t, err)
		assert.True(t, utils.IsKind(err, utils.KindSchemaValidationFailed))
		assert.Contains(t, err.Error(), "body")
	})

	t.Run("wrong type", func(t *testing.T) {
		err := s.Validate(map[string]interface{}{
			"recipient": 12,
			"subject":   "Hi",
			"body":      "Hello",
		})
		assert.True(t, utils.IsKind(err, utils.KindSchemaValidationFailed))
	})

	t.Run("out of range", func(t *testing.T) {
		err := s.Validate(map[string]interface{}{
			"recipient": "a@b.co",
			"subject":   "Hi",
			"body":      "Hello",
			"priority":  9,
		})
		assert.True(t, utils.IsKind(err, utils.KindSchemaValidationFailed))
	})

	t.Run("nil params against empty schema", func(t *testing.T) {
		empty, err := Compile([]byte(`{"type":"object"}`))
		require.NoError(t, err)
		assert.NoError(t, empty.Validate(nil))
	})

	t.Run("reports every failure", func(t *testing.T) {
		err := s.Validate(map[string]interface{}{})
		require.Error(t, err)
		for _, field := range []string{"recipient", "subject", "body"} {
			assert.Contains(t, err.Error(), field)
		}
	})
}
