package cli

// Config holds the process-level CLI configuration
type Config struct {
	ConfigFile string
	// WorkDir is searched for distill.yaml when ConfigFile is empty.
	WorkDir string
	Version string
}

// NewConfig creates a new CLI configuration with defaults
func NewConfig() *Config {
	return &Config{
		WorkDir: ".",
		Version: "dev",
	}
}
