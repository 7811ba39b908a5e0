package config

const (
	// DefaultIterations is the number of full passes over the suites
	DefaultIterations = 1
	// DefaultResourceBase is prefixed to every suite URL
	DefaultResourceBase = "resources/"
	// DefaultFPS is the simulated paint rate of the in-memory host
	DefaultFPS = 60
	// DefaultPollInterval is the WaitForElement poll delay in milliseconds
	DefaultPollInterval = 50
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Iterations:   DefaultIterations,
		Batch:        BoolPtr(false),
		ResourceBase: DefaultResourceBase,
		FPS:          DefaultFPS,
		PollInterval: DefaultPollInterval,
		Reporters:    []string{"console"},
		Verbose:      BoolPtr(false),
		NoColor:      BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Iterations == defaults.Iterations &&
		c.GetBatch() == defaults.GetBatch() &&
		c.ResourceBase == defaults.ResourceBase &&
		c.FPS == defaults.FPS &&
		c.PollInterval == defaults.PollInterval &&
		c.HistoryDB == defaults.HistoryDB &&
		len(c.Reporters) == 1 && c.Reporters[0] == "console" &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
