// Filename: checks/credentials.go
package checks

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	h "github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CredentialsRuleID identifies the hard-coded credential family.
const CredentialsRuleID = "hardcoded-credentials"

//go:embed credentials.json
var defaultCredentials []byte

// CredentialMethod is one method that takes a secret as an argument.
type CredentialMethod struct {
	// Owner is the fully qualified declaring type.
	Owner string `json:"owner" yaml:"owner"`
	// Method is the member name; "<init>" for constructors.
	Method string `json:"method" yaml:"method"`
	// Params pins the signature. When empty any arity that reaches the
	// highest credential index matches.
	Params []string `json:"params,omitempty" yaml:"params,omitempty"`
	// Args are the indices of the credential arguments.
	Args []int `json:"args" yaml:"args"`
}

type credentialList struct {
	Methods []CredentialMethod `json:"methods" yaml:"methods"`
}

func (m CredentialMethod) validate() error {
	if m.Owner == "" || m.Method == "" {
		return fmt.Errorf("entry needs an owner and a method: %+v", m)
	}
	if len(m.Args) == 0 {
		return fmt.Errorf("%s.%s lists no credential arguments", m.Owner, m.Method)
	}
	for _, i := range m.Args {
		if i < 0 || (len(m.Params) > 0 && i >= len(m.Params)) {
			return fmt.Errorf("%s.%s: argument index %d out of range", m.Owner, m.Method, i)
		}
	}
	return nil
}

// LoadCredentialMethods reads the credential method list from path, or the
// embedded default list when path is empty. Errors wrap ErrCatalogLoad.
func LoadCredentialMethods(path string) ([]CredentialMethod, error) {
	data, format := defaultCredentials, ".json"
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("%w: expanding %q: %w", ErrCatalogLoad, path, err)
		}
		data, err = os.ReadFile(expanded)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
		}
		format = strings.ToLower(filepath.Ext(expanded))
	}

	var list credentialList
	switch format {
	case ".json":
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%w: decoding %s: %w", ErrCatalogLoad, describe(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%w: decoding %s: %w", ErrCatalogLoad, describe(path), err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported credential list format %q", ErrCatalogLoad, format)
	}

	if len(list.Methods) == 0 {
		return nil, fmt.Errorf("%w: %s lists no methods", ErrCatalogLoad, describe(path))
	}
	for _, m := range list.Methods {
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
		}
	}
	return list.Methods, nil
}

func describe(path string) string {
	if path == "" {
		return "embedded credential list"
	}
	return path
}

// credentialsRule flags credential arguments that fold to a non-empty
// constant. Where the secret ends up afterwards does not matter, so the
// escape rule is off.
func credentialsRule(methods []CredentialMethod) *h.Rule {
	var triggers []h.Trigger
	for _, m := range methods {
		matcher := h.Method([]string{m.Owner}, m.Method)
		if m.Method == java.ConstructorName {
			matcher = h.Constructor(m.Owner)
		}
		if len(m.Params) > 0 {
			matcher = matcher.WithParams(m.Params...)
		} else {
			highest := 0
			for _, i := range m.Args {
				highest = max(highest, i)
			}
			matcher = matcher.WithMinArgs(highest + 1)
		}
		for _, i := range m.Args {
			triggers = append(triggers, h.Trigger{Method: matcher, Object: h.ArgumentAt(i)})
		}
	}
	return &h.Rule{
		ID:           CredentialsRuleID,
		Name:         "Credentials are not hard-coded",
		Message:      "Revoke and change this credential; load it from the environment or a secret store instead.",
		Severity:     h.SeverityCritical,
		CWE:          []int{798},
		Triggers:     triggers,
		Securing:     h.When(h.DynamicSeed{}),
		IgnoreEscape: true,
	}
}
