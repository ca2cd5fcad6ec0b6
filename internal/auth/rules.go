package auth

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules is the declarative access table. It is loaded once at startup.
type Rules struct {
	Public []string `yaml:"public"`
	Admin  []string `yaml:"admin"`
	Owner  []string `yaml:"owner"`
}

// DefaultRules returns the built-in access table
func DefaultRules() Rules {
	return Rules{
		Public: []string{
			"/api/v1/auth/login",
			"/api/v1/auth/register",
			"/api/v1/auth/refresh",
			"/api/v1/auth/logout",
			"/healthz",
			"/readyz",
			"/api/v1/actuator/health",
			"/swagger-ui/",
			"/v3/api-docs/",
			"/api-docs/",
		},
		Admin: []string{
			"/api/v1/admin/",
			"/api/v1/themes/health/",
		},
		Owner: []string{
			"/api/v1/users/{id}",
			"/api/v1/users/{id}/password",
			"/api/v1/themes/{userId}/...",
		},
	}
}

// Override replaces every non-empty section of r with the one from other
func (r Rules) Override(other Rules) Rules {
	if len(other.Public) > 0 {
		r.Public = append([]string(nil), other.Public...)
	}
	if len(other.Admin) > 0 {
		r.Admin = append([]string(nil), other.Admin...)
	}
	if len(other.Owner) > 0 {
		r.Owner = append([]string(nil), other.Owner...)
	}
	return r
}

// LoadRulesFile reads a YAML rules document. Sections absent from the file
// keep their values from base.
func LoadRulesFile(path string, base Rules) (Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return Rules{}, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()

	return DecodeRules(f, base)
}

// DecodeRules decodes a YAML rules document from r on top of base
func DecodeRules(r io.Reader, base Rules) (Rules, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return base, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var doc Rules
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Rules{}, fmt.Errorf("decode rules: %w", err)
	}

	return base.Override(doc), nil
}
