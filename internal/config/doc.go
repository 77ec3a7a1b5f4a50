// Package config provides configuration management for mend.
//
// Configuration is loaded from a single directory containing config.yaml.
// The default directory is ~/.config/mend; commands accept --config to point
// elsewhere. A missing file is not an error: defaults apply, and MEND_*
// environment variables override individual settings either way, so the
// effective precedence is flag > environment > file > default.
//
// # Configuration Structure
//
//	scenarios:
//	  path: "scenarios"              # Directory walked for *.yaml scenario files
//	ui:
//	  base_url: "https://app.local"  # Prefix for relative navigate targets
//	  browser: "chromium"            # chromium, firefox, or webkit
//	  headless: true
//	  healing:
//	    enabled: true
//	    timeout: 5s                  # Primary locator wait
//	    fallback_timeout: 2s         # Per-strategy fallback wait
//	api:
//	  base_url: "https://api.local"  # Prefix for relative request paths
//	  timeout: 30s
//	  retries: 1                     # Total attempts per request
//	  oauth:
//	    token_url: "https://auth.local/token"
//	    client_id: "mend"
//	    client_secret: "..."
//	report:
//	  path: "reports"                # JSON run reports, one file per run
//	  screenshots: "screenshots"
//	history:
//	  path: "~/.config/mend/history.db"
//	serve:
//	  metrics_address: ":9090"       # Prometheus endpoint for serve mode
//
// Environment overrides: MEND_BASE_URL, MEND_API_BASE_URL, MEND_AUTH_TOKEN,
// MEND_HISTORY_DB.
package config
