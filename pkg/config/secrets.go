package config

import (
	"context"
	"fmt"

	"mercator-hq/viewexport/pkg/secrets"
)

// resolveSecrets replaces ${secret:name} references in the credential
// fields and the history DSN. Environment variables are consulted before
// the secrets directory.
func resolveSecrets(cfg *Config) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"dataverse.auth.client_id", &cfg.Dataverse.Auth.ClientID},
		{"dataverse.auth.client_secret", &cfg.Dataverse.Auth.ClientSecret},
		{"dataverse.auth.username", &cfg.Dataverse.Auth.Username},
		{"dataverse.auth.password", &cfg.Dataverse.Auth.Password},
		{"dataverse.auth.token", &cfg.Dataverse.Auth.Token},
		{"history.dsn", &cfg.History.DSN},
	}

	var resolver *secrets.Resolver
	for _, f := range fields {
		if !secrets.HasReference(*f.value) {
			continue
		}
		if resolver == nil {
			r, err := newSecretResolver(cfg.Secrets)
			if err != nil {
				return err
			}
			resolver = r
		}

		value, err := resolver.Expand(context.Background(), *f.value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = value
	}
	return nil
}

func newSecretResolver(cfg SecretsConfig) (*secrets.Resolver, error) {
	providers := []secrets.Provider{secrets.NewEnvProvider(cfg.EnvPrefix)}
	if cfg.Directory != "" {
		files, err := secrets.NewFileProvider(cfg.Directory)
		if err != nil {
			return nil, fmt.Errorf("secrets.directory: %w", err)
		}
		providers = append(providers, files)
	}
	return secrets.NewResolver(nil, providers...), nil
}
