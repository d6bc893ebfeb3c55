// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// Load calls validateStruct right after unmarshal, and ResolveSecrets calls
// it again once `vault:` references are replaced, so a short secret fetched
// from Vault is caught as well.  Any failure aborts startup.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New()

// validateStruct flattens validator errors into one readable message.
func validateStruct(c *Config) error {
	err := v.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}
