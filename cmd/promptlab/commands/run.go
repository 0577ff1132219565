package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/config"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/headless"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

var (
	runProfile     string
	runEndpoint    string
	runRequestBody string
	runKeyPath     string
	runAuth        string
	runAsync       bool
	runSet         []string
	runFiles       []string
	runStdin       bool
	runOutput      string
	runTimeout     string
	runNoSave      bool
	runQuiet       bool
	runVerbose     bool
	runDir         string
)

var runCmd = &cobra.Command{
	Use:   "run [prompt...]",
	Short: "Run a prompt against an endpoint",
	Long: `Run a prompt against a configured profile or an explicit endpoint
and print the response.

The prompt may contain placeholders: {{key}} substitutions bound with
--set, {{shell:...}}, {{url:...}} and {{file:...}} markers (subject to
the configured placeholder policy), and {{selection}} for text piped
in with --stdin.

Examples:
  # Use the default profile
  promptlab run "Summarize: {{url:https://example.com}}"

  # Pick a profile and bind a substitution
  promptlab run -p summarize --set "{{tone}}=formal" "Rewrite this {{tone}}"

  # Explicit endpoint, API key read from PROMPTLAB_API_KEY
  promptlab run --endpoint https://api.example.com/v1/complete \
    --key-path choices[0].text --auth bearerToken "Hello"

  # Pipe a selection and stream JSONL events
  pbpaste | promptlab run --stdin -o jsonl "Explain: {{selection}}"`,
	RunE: runPrompt,
}

func init() {
	runCmd.Flags().StringVarP(&runProfile, "profile", "p", "", "Endpoint profile to use (default: config defaultProfile)")

	runCmd.Flags().StringVar(&runEndpoint, "endpoint", "", "Endpoint URL or built-in alias, overrides the profile")
	runCmd.Flags().StringVar(&runRequestBody, "request-body", "", `Request body template, {prompt}/{basePrompt}/{input} substituted (default {"prompt":"{prompt}"})`)
	runCmd.Flags().StringVar(&runKeyPath, "key-path", "", "Key path of the response text, e.g. choices[0].text")
	runCmd.Flags().StringVar(&runAuth, "auth", "", "Auth scheme: apiKey, bearerToken or customHeader; the key is read from PROMPTLAB_API_KEY")
	runCmd.Flags().BoolVar(&runAsync, "async", false, "Read the response as a data: frame stream")

	runCmd.Flags().StringArrayVar(&runSet, "set", nil, `Bind a placeholder, e.g. --set "{{tone}}=formal" (repeatable, applied in order)`)
	runCmd.Flags().StringArrayVarP(&runFiles, "file", "f", nil, "File(s) to attach as context")
	runCmd.Flags().BoolVar(&runStdin, "stdin", false, "Bind stdin as the {{selection}} placeholder")

	runCmd.Flags().StringVarP(&runOutput, "output", "o", "text", "Output format: text, json, jsonl")
	runCmd.Flags().StringVarP(&runTimeout, "timeout", "t", "5m", "Maximum time to wait for the response (e.g. 30s, 5m)")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Don't persist the session (ephemeral)")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Only print the response text")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Show all events (with jsonl format)")
	runCmd.Flags().StringVar(&runDir, "directory", "", "Working directory")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(runDir)
	if err != nil {
		return err
	}

	timeout, err := time.ParseDuration(runTimeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}

	var outputFormat headless.OutputFormat
	switch strings.ToLower(runOutput) {
	case "text":
		outputFormat = headless.OutputText
	case "json":
		outputFormat = headless.OutputJSON
	case "jsonl":
		outputFormat = headless.OutputJSONL
	default:
		return fmt.Errorf("invalid output format: %s (must be text, json, or jsonl)", runOutput)
	}

	prompt := strings.Join(args, " ")
	if prompt == "" {
		return fmt.Errorf("prompt required. Usage: promptlab run \"your prompt\"")
	}

	substitutions, err := parseSubstitutions(runSet)
	if err != nil {
		return err
	}

	endpointCfg, err := buildEndpointConfig()
	if err != nil {
		return err
	}

	// The runner loads config itself; this load only feeds the logger.
	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}
	setupLogging(appConfig, false)

	cfg := &headless.Config{
		Prompt:        prompt,
		Profile:       runProfile,
		Endpoint:      endpointCfg,
		WorkDir:       workDir,
		OutputFormat:  outputFormat,
		Timeout:       timeout,
		ReadStdin:     runStdin,
		NoSave:        runNoSave,
		Files:         runFiles,
		Substitutions: substitutions,
		Quiet:         runQuiet,
		Verbose:       runVerbose,
	}

	runner := headless.NewRunner(cfg)
	result, err := runner.Run(cmd.Context(), os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}

	// Exit with the result's code so scripts can tell failure modes apart
	if result != nil {
		os.Exit(int(result.ExitCode))
	}

	return err
}

// parseSubstitutions splits each --set argument at the first "=" into a
// placeholder key and its value.
func parseSubstitutions(pairs []string) ([]headless.Substitution, error) {
	subs := make([]headless.Substitution, 0, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
		}
		subs = append(subs, headless.Substitution{Key: key, Value: value})
	}
	return subs, nil
}

// buildEndpointConfig assembles the inline endpoint override from flags.
// Returns nil when no --endpoint was given so the profile is used instead.
func buildEndpointConfig() (*types.EndpointConfig, error) {
	if runEndpoint == "" {
		if runRequestBody != "" || runKeyPath != "" || runAuth != "" || runAsync {
			return nil, fmt.Errorf("--request-body, --key-path, --auth and --async require --endpoint")
		}
		return nil, nil
	}

	cfg := &types.EndpointConfig{
		Endpoint:      runEndpoint,
		RequestBody:   runRequestBody,
		OutputKeyPath: runKeyPath,
	}
	if cfg.RequestBody == "" {
		cfg.RequestBody = `{"prompt":"{prompt}"}`
	}
	if runAsync {
		cfg.OutputTiming = types.OutputAsync
	}

	switch runAuth {
	case "":
	case string(types.AuthAPIKey), string(types.AuthBearerToken), string(types.AuthCustomHeader):
		key := os.Getenv("PROMPTLAB_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("--auth %s requires PROMPTLAB_API_KEY to be set", runAuth)
		}
		cfg.AuthScheme = types.AuthScheme(runAuth)
		cfg.APIKey = key
	default:
		return nil, fmt.Errorf("invalid auth scheme: %s (must be apiKey, bearerToken or customHeader)", runAuth)
	}

	return cfg, nil
}
