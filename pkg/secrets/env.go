package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider reads secrets from environment variables. The secret name is
// upper-cased, hyphens and dots become underscores and Prefix is prepended:
// "dataverse-client-secret" is read from VIEWEXPORT_SECRET_DATAVERSE_CLIENT_SECRET.
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider creates an environment variable provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix}
}

// Get implements Provider.
func (p *EnvProvider) Get(ctx context.Context, name string) (string, error) {
	envVar := p.envVar(name)
	value, ok := os.LookupEnv(envVar)
	if !ok || value == "" {
		return "", fmt.Errorf("%w in environment: %s (env var: %s)", ErrNotFound, name, envVar)
	}
	return value, nil
}

// Name implements Provider.
func (p *EnvProvider) Name() string {
	return "env"
}

func (p *EnvProvider) envVar(name string) string {
	upper := strings.ToUpper(name)
	return p.Prefix + strings.NewReplacer("-", "_", ".", "_").Replace(upper)
}
