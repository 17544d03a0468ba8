package rewrite

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrSchemaViolation is returned when a rules document does not match the
// embedded rules schema.
var ErrSchemaViolation = errors.New("rules document violates schema")

//go:embed rules-schema.json
var rulesSchema []byte

// Schema returns the JSON schema rules documents are validated against.
func Schema() []byte {
	return append([]byte(nil), rulesSchema...)
}

// validateDocument checks a generic decoded rules document against the schema.
func validateDocument(doc any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(rulesSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate rules document: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))

	for _, resultErr := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", resultErr.Field(), resultErr.Description()))
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(problems, "; "))
}
