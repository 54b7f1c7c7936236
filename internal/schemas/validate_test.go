package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scoreSchema = `{
	"type": "object",
	"required": ["overall_score", "reasoning"],
	"properties": {
		"overall_score": {"type": "number", "minimum": 0, "maximum": 1},
		"reasoning": {"type": "string"}
	}
}`

func TestValidateJSONString_Valid(t *testing.T) {
	err := ValidateJSONString(scoreSchema, `{"overall_score": 0.7, "reasoning": "strong skill overlap"}`)
	assert.NoError(t, err)
}

func TestValidateJSONString_MissingRequiredField(t *testing.T) {
	err := ValidateJSONString(scoreSchema, `{"overall_score": 0.7}`)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0].Message, "reasoning")
}

func TestValidateJSONString_OutOfRange(t *testing.T) {
	err := ValidateJSONString(scoreSchema, `{"overall_score": 1.5, "reasoning": "x"}`)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "overall_score", ve.Errors[0].Field)
}

func TestValidateJSONString_BrokenSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": 42}`, `{}`)
	require.Error(t, err)

	var se *SchemaLoadError
	assert.True(t, errors.As(err, &se))
}

func TestValidateJSONString_InvalidDocumentJSON(t *testing.T) {
	err := ValidateJSONString(scoreSchema, `not json`)
	assert.Error(t, err)
}
