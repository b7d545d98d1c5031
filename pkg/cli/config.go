package cli

// Config holds the global flag values for one CLI instance
type Config struct {
	ConfigFile  string
	ProjectPath string
	Verbosity   string
	Version     string
}

// NewConfig creates a new CLI configuration with defaults
func NewConfig() *Config {
	return &Config{
		ProjectPath: ".",
		Verbosity:   "",
		Version:     "dev",
	}
}
