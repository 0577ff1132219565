package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/config"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/endpoint"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/event"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/native"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/placeholder"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/profile"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/session"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/storage"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

var errEndpointRequired = errors.New("endpoint URL is required")

// Runner executes one prompt against one endpoint in headless mode.
type Runner struct {
	config    *Config
	appConfig *types.Config
	printer   *Printer
	storage   *storage.Storage
	profiles  *profile.Registry
	sessions  *session.Manager
}

// NewRunner creates a new headless runner.
func NewRunner(cfg *Config) *Runner {
	return &Runner{
		config: cfg,
	}
}

// Run executes the headless session and returns the result.
func (r *Runner) Run(ctx context.Context, writer io.Writer) (*Result, error) {
	// Create printer for output
	r.printer = NewPrinter(writer, r.config.OutputFormat, r.config.Quiet, r.config.Verbose)
	r.printer.Subscribe()
	defer r.printer.Unsubscribe()

	// Initialize all components
	if err := r.initialize(ctx); err != nil {
		return r.finish("error", ExitError, "", err)
	}

	prompt := strings.TrimSpace(r.config.Prompt)
	if prompt == "" {
		return r.finish("error", ExitInvalidInput, "", errors.New("prompt is required"))
	}

	// Resolve the endpoint to invoke
	endpointCfg, err := r.resolveEndpoint(ctx)
	if err != nil {
		code := ExitError
		var unknown *profile.UnknownProfileError
		switch {
		case errors.As(err, &unknown):
			code = ExitUnknownProfile
		case errors.Is(err, errEndpointRequired):
			code = ExitInvalidInput
		}
		return r.finish("error", code, "", err)
	}
	r.printer.SetEndpoint(r.config.Profile, endpointCfg.Endpoint)

	// Build the placeholder bindings
	subs, err := r.buildSubstitutions()
	if err != nil {
		return r.finish("error", ExitInvalidInput, "", err)
	}

	sess, err := r.sessions.Create(ctx, session.CreateOptions{
		BasePrompt:    prompt,
		Profile:       r.config.Profile,
		Config:        endpointCfg,
		Files:         r.config.Files,
		Substitutions: subs,
	})
	if err != nil {
		return r.finish("error", ExitInvalidInput, "", err)
	}
	r.printer.SetSessionID(sess.ID())

	// Watch for completion before starting, so the terminal event can't
	// slip past between Start and the wait below.
	done, stop := r.watchCompletion(sess.ID())
	defer stop()

	if err := sess.Start(ctx); err != nil {
		return r.finish("error", ExitError, "", err)
	}

	// Create context with timeout
	runCtx := ctx
	var cancel context.CancelFunc
	if r.config.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	select {
	case err := <-done:
		if err != nil {
			return r.finish("error", ExitError, sess.View().Data, err)
		}
	case <-runCtx.Done():
		// The invocation outlives the request context, so enforce the
		// deadline here and abandon the attempt.
		_ = sess.Cancel()
		err := runCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			return r.finish("timeout", ExitTimeout, sess.View().Data, err)
		}
		return r.finish("error", ExitError, sess.View().Data, err)
	}

	return r.finish("success", ExitSuccess, sess.View().Data, nil)
}

// finish records the outcome, prints the final result for the json format
// (failures included, so scripts always get a parseable summary), and
// returns both.
func (r *Runner) finish(status string, code ExitCode, response string, err error) (*Result, error) {
	r.printer.SetResult(status, code, response, err)
	r.printer.PrintFinalResult()
	return r.printer.GetResult(), err
}

// initialize sets up all required components.
func (r *Runner) initialize(ctx context.Context) error {
	// Ensure paths exist
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return fmt.Errorf("failed to ensure paths: %w", err)
	}

	// Load configuration
	appConfig, err := config.Load(r.config.WorkDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	r.appConfig = appConfig

	// Initialize storage
	if r.config.NoSave {
		// Use ephemeral storage in a temp directory
		tempDir, err := os.MkdirTemp("", "promptlab-headless-*")
		if err != nil {
			return fmt.Errorf("failed to create temp storage: %w", err)
		}
		r.storage = storage.New(tempDir)
	} else {
		r.storage = storage.New(paths.StoragePath())
	}

	// Initialize native engines for alias endpoints
	engines, err := native.InitializeEngines(ctx, appConfig.Engines)
	if err != nil {
		return fmt.Errorf("failed to initialize engines: %w", err)
	}

	opts := placeholder.OptionsFromConfig(appConfig.Placeholders)
	if opts.WorkDir == "" {
		opts.WorkDir = r.config.WorkDir
	}
	resolver := placeholder.NewResolver(opts)

	r.profiles = profile.NewRegistry(appConfig, r.storage)
	r.sessions = session.NewManager(r.storage, endpoint.NewInvoker(engines), resolver)

	return nil
}

// resolveEndpoint picks the endpoint configuration: an explicit endpoint
// flag wins, otherwise the named (or default) profile.
func (r *Runner) resolveEndpoint(ctx context.Context) (types.EndpointConfig, error) {
	if r.config.Endpoint != nil {
		if r.config.Endpoint.Endpoint == "" {
			return types.EndpointConfig{}, errEndpointRequired
		}
		return *r.config.Endpoint, nil
	}
	return r.profiles.Resolve(ctx, r.config.Profile)
}

// buildSubstitutions assembles the keyed placeholder bindings: the config's
// promptVariables first, then command-line substitutions, then stdin as the
// {{selection}} placeholder. Later bindings win on key collisions.
func (r *Runner) buildSubstitutions() (*placeholder.Context, error) {
	subs := placeholder.NewContext()

	vars := r.appConfig.PromptVariables
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		subs.BindValue(key, vars[key])
	}

	for _, sub := range r.config.Substitutions {
		if sub.Key == "" {
			return nil, errors.New("substitution key may not be empty")
		}
		subs.BindValue(sub.Key, sub.Value)
	}

	if r.config.ReadStdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		subs.BindValue("{{selection}}", strings.TrimRight(string(data), "\n"))
	}

	return subs, nil
}

// watchCompletion returns a channel that resolves when the session's
// invocation completes or fails. The stop function releases the
// subscription.
func (r *Runner) watchCompletion(sessionID string) (<-chan error, func()) {
	done := make(chan error, 1)
	var once sync.Once
	finish := func(err error) {
		once.Do(func() { done <- err })
	}

	unsubscribe := event.SubscribeAll(func(e event.Event) {
		switch data := e.Data.(type) {
		case event.SessionCompletedData:
			if data.SessionID == sessionID {
				finish(nil)
			}
		case event.SessionErrorData:
			if data.SessionID == sessionID {
				finish(errors.New(data.Error))
			}
		}
	})

	return done, unsubscribe
}
