package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"storyboard/internal/domain"
)

// decodeInput maps the model's arguments onto a typed params struct.
// Unknown keys are ignored; type mismatches are reported.
func decodeInput(input map[string]interface{}, dst interface{}) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("%s: must be %s", typeErr.Field, typeErr.Type.String())
		}
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func successResult(fields map[string]interface{}, message string) map[string]interface{} {
	out := map[string]interface{}{"success": true}
	for k, v := range fields {
		out[k] = v
	}
	out["message"] = message
	return out
}

func failureResult(err error, message string, fields map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{"success": false}
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = describeError(err)
	out["message"] = message
	return out
}

// describeError turns service errors into text the model can act on
func describeError(err error) string {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		return verrs.Error()
	case errors.Is(err, domain.ErrForbidden):
		return "access denied: the project does not belong to the current user"
	case errors.Is(err, domain.ErrNotFound):
		return strings.TrimSuffix(err.Error(), ": "+domain.ErrNotFound.Error()) + " not found"
	default:
		return err.Error()
	}
}

// preview shortens s to n runes, appending "..." when cut
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
