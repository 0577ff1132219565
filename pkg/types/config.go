package types

// Config represents the PromptLab configuration.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty"`

	// DefaultProfile names the endpoint profile used when the caller does
	// not pick one explicitly.
	DefaultProfile string `json:"defaultProfile,omitempty"`

	// Profiles declared inline in the config file. Profiles stored in the
	// data directory are merged on top of these.
	Profiles map[string]EndpointConfig `json:"profiles,omitempty"`

	// Engines configures the built-in assistant reachable through the
	// native endpoint aliases.
	Engines *EnginesConfig `json:"engines,omitempty"`

	// Placeholders controls the placeholder resolver.
	Placeholders *PlaceholderConfig `json:"placeholders,omitempty"`

	// PromptVariables are static keyed substitutions made available to
	// every resolution pass.
	PromptVariables map[string]string `json:"promptVariables,omitempty"`

	// Server configures the HTTP server.
	Server *ServerConfig `json:"server,omitempty"`

	// Log configures logging.
	Log *LogConfig `json:"log,omitempty"`
}

// EnginesConfig selects and configures the built-in assistant engines.
type EnginesConfig struct {
	// Default names the engine used by the native endpoint aliases:
	// "claude" | "openai" | "ark". Empty picks the first configured one.
	Default string `json:"default,omitempty"`

	Claude *EngineConfig `json:"claude,omitempty"`
	OpenAI *EngineConfig `json:"openai,omitempty"`
	Ark    *EngineConfig `json:"ark,omitempty"`
}

// EngineConfig holds configuration for a single built-in engine.
type EngineConfig struct {
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`

	// Generation parameters
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`

	// Azure-hosted OpenAI deployments
	ByAzure    bool   `json:"byAzure,omitempty"`
	APIVersion string `json:"apiVersion,omitempty"`

	// Disable this engine
	Disable bool `json:"disable,omitempty"`
}

// PlaceholderConfig controls which placeholder passes may run and their
// resource bounds.
type PlaceholderConfig struct {
	// AllowShell permits the shell-script pass. Defaults to true.
	AllowShell *bool `json:"allowShell,omitempty"`
	// AllowAutomation permits the automation-script passes. Defaults to true.
	AllowAutomation *bool `json:"allowAutomation,omitempty"`
	// Timeout bounds one placeholder's external action, in seconds.
	Timeout int `json:"timeout,omitempty"`
	// MaxOutputBytes caps the text one placeholder may substitute.
	MaxOutputBytes int `json:"maxOutputBytes,omitempty"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Hostname string `json:"hostname,omitempty"`
	Port     int    `json:"port,omitempty"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `json:"level,omitempty"` // "debug"|"info"|"warn"|"error"
	Pretty bool   `json:"pretty,omitempty"`

	// LogToFile additionally writes JSON logs to a timestamped file under
	// LogDir.
	LogToFile bool   `json:"logToFile,omitempty"`
	LogDir    string `json:"logDir,omitempty"`
}
