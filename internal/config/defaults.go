package config

// GetDefaultConfig returns the default configuration for mend.
func GetDefaultConfig() MendConfig {
	return MendConfig{
		Scenarios: ScenariosConfig{
			Path: "scenarios",
		},
		Report: ReportConfig{
			Screenshots: "screenshots",
		},
	}
}
