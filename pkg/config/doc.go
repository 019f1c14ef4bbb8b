// Package config provides configuration management for viewexport.
//
// Configuration is read from a YAML file, decoded over the defaults in
// defaults.go, overridden from the environment and validated.
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention VIEWEXPORT_SECTION_FIELD:
//
//   - VIEWEXPORT_DATAVERSE_URL overrides dataverse.url
//   - VIEWEXPORT_DATAVERSE_AUTH_CLIENT_SECRET overrides dataverse.auth.client_secret
//   - VIEWEXPORT_EXPORT_PAGE_SIZE overrides export.page_size
//
// A .env file next to the configuration file, or in the working directory,
// is loaded first. Variables already present in the environment win.
//
// # Configuration Precedence
//
//  1. Default values
//  2. Values from YAML file
//  3. Environment variable overrides (including .env)
//  4. Command line flags, applied by the CLI before validation
//
// # Validation
//
// Validate collects every problem into a ValidationError:
//
//	configuration validation failed: 2 errors:
//	  - export.entity: entity is required
//	  - schedule.cron: invalid cron expression "every day": ...
//
// # Example Configuration
//
//	dataverse:
//	  url: https://org.crm.dynamics.com
//	  auth:
//	    mode: client_credentials
//	    tenant_id: 00000000-0000-0000-0000-000000000000
//	    client_id: 11111111-1111-1111-1111-111111111111
//
//	export:
//	  entity: account
//	  view: Active Accounts
//	  page_size: 5000
//	  output:
//	    directory: ./output
//	    file_name: "{entity}_{timestamp}.csv"
package config
