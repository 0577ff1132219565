package types

// AuthScheme selects how the API key is attached to an endpoint request.
type AuthScheme string

const (
	AuthNone         AuthScheme = "none"
	AuthAPIKey       AuthScheme = "apiKey"
	AuthBearerToken  AuthScheme = "bearerToken"
	AuthCustomHeader AuthScheme = "customHeader"
)

// OutputTiming selects between one-shot and streamed endpoint responses.
type OutputTiming string

const (
	// OutputSync awaits one JSON document.
	OutputSync OutputTiming = "sync"
	// OutputAsync reads a stream of "data:" frames.
	OutputAsync OutputTiming = "async"
)

// EndpointConfig describes one invocation target. It is supplied explicitly
// for every invocation and is immutable while that invocation runs; nothing
// is read from ambient process state.
type EndpointConfig struct {
	// Endpoint is either a full URL or one of the built-in assistant
	// aliases (see the endpoint package).
	Endpoint string `json:"endpoint"`

	// AuthScheme and APIKey determine the single auth header attached to
	// each request. The key is never logged.
	AuthScheme AuthScheme `json:"authScheme,omitempty"`
	APIKey     string     `json:"apiKey,omitempty"`

	// RequestBody is the JSON body template. Occurrences of {prompt},
	// {basePrompt} and {input} are substituted before sending.
	RequestBody string `json:"requestBody,omitempty"`

	// OutputKeyPath addresses the generated text inside the response
	// JSON, e.g. "choices[0].text".
	OutputKeyPath string `json:"outputKeyPath,omitempty"`

	OutputTiming OutputTiming `json:"outputTiming,omitempty"`

	// PromptPrefix and PromptSuffix are concatenated around the resolved
	// prompt before substitution.
	PromptPrefix string `json:"promptPrefix,omitempty"`
	PromptSuffix string `json:"promptSuffix,omitempty"`
}

// Profile is a named, persisted endpoint configuration.
type Profile struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Config      EndpointConfig `json:"config"`
	Time        ProfileTime    `json:"time"`
}

// ProfileTime contains timestamps for a profile.
type ProfileTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}
