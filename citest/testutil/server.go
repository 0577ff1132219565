package testutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/endpoint"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/native"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/placeholder"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/profile"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/server"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/session"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/storage"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// TestServer wraps a full PromptLab server instance plus the mock
// endpoint its profiles point at.
type TestServer struct {
	Server   *server.Server
	BaseURL  string
	Config   *types.Config
	Storage  *storage.Storage
	Profiles *profile.Registry
	Sessions *session.Manager
	Endpoint *MockEndpoint
	TempDir  string
	WorkDir  string
	port     int
}

// TestServerOption configures TestServer.
type TestServerOption func(*testServerConfig)

type testServerConfig struct {
	workDir    string
	envFile    string
	mockConfig *MockEndpointConfig
}

// WithWorkDir sets the working directory.
func WithWorkDir(dir string) TestServerOption {
	return func(c *testServerConfig) {
		c.workDir = dir
	}
}

// WithEnvFile sets the .env file to load.
func WithEnvFile(path string) TestServerOption {
	return func(c *testServerConfig) {
		c.envFile = path
	}
}

// WithMockConfig overrides the mock endpoint's scenario configuration.
func WithMockConfig(cfg *MockEndpointConfig) TestServerOption {
	return func(c *testServerConfig) {
		c.mockConfig = cfg
	}
}

// StartTestServer creates and starts a test server wired to a fresh mock
// endpoint and isolated temp storage.
func StartTestServer(opts ...TestServerOption) (*TestServer, error) {
	cfg := &testServerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	// Load environment variables
	if cfg.envFile != "" {
		_ = godotenv.Load(cfg.envFile)
	} else {
		_ = godotenv.Load("../../.env")
		_ = godotenv.Load("../.env")
		_ = godotenv.Load(".env")
	}

	tempDir, err := os.MkdirTemp("", "promptlab-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	workDir := cfg.workDir
	if workDir == "" {
		workDir = tempDir
	}

	mockConfig := cfg.mockConfig
	if mockConfig == nil {
		mockConfig = DefaultMockEndpointConfig()
	}
	mock := NewMockEndpointWithConfig(mockConfig)

	appConfig := buildTestConfig(mock)

	port, err := findAvailablePort()
	if err != nil {
		mock.Close()
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to find available port: %w", err)
	}

	ctx := context.Background()

	storagePath := filepath.Join(tempDir, "storage")
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		mock.Close()
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	store := storage.New(storagePath)

	engines, err := native.InitializeEngines(ctx, appConfig.Engines)
	if err != nil {
		mock.Close()
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to initialize engines: %w", err)
	}

	resolverOpts := placeholder.OptionsFromConfig(appConfig.Placeholders)
	resolverOpts.WorkDir = workDir
	resolver := placeholder.NewResolver(resolverOpts)

	profiles := profile.NewRegistry(appConfig, store)
	sessions := session.NewManager(store, endpoint.NewInvoker(engines), resolver)

	serverConfig := server.DefaultConfig()
	serverConfig.Port = port

	srv := server.New(serverConfig, appConfig, sessions, profiles)

	go func() {
		_ = srv.Start()
	}()

	baseURL := fmt.Sprintf("http://localhost:%d", port)
	if err := waitForServer(baseURL, 10*time.Second); err != nil {
		srv.Shutdown(ctx)
		mock.Close()
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("server failed to start: %w", err)
	}

	return &TestServer{
		Server:   srv,
		BaseURL:  baseURL,
		Config:   appConfig,
		Storage:  store,
		Profiles: profiles,
		Sessions: sessions,
		Endpoint: mock,
		TempDir:  tempDir,
		WorkDir:  workDir,
		port:     port,
	}, nil
}

// Stop shuts down the test server, the mock endpoint, and cleans up.
func (ts *TestServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if ts.Server != nil {
		if err := ts.Server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if ts.Endpoint != nil {
		ts.Endpoint.Close()
	}

	if ts.TempDir != "" {
		os.RemoveAll(ts.TempDir)
	}

	return nil
}

// Client returns a new test client for this server.
func (ts *TestServer) Client() *TestClient {
	return NewTestClient(ts.BaseURL)
}

// SSEClient returns a new SSE client for this server.
func (ts *TestServer) SSEClient() *SSEClient {
	return NewSSEClient(ts.BaseURL)
}

// buildTestConfig declares the profiles the suites invoke: a sync default
// pointing at the mock /generate, a nested-payload variant, and an async
// one pointing at /stream.
func buildTestConfig(mock *MockEndpoint) *types.Config {
	return &types.Config{
		DefaultProfile: "default",
		Profiles: map[string]types.EndpointConfig{
			"default": {
				Endpoint:      mock.GenerateURL(),
				RequestBody:   `{"prompt":"{prompt}","input":"{input}"}`,
				OutputKeyPath: "text",
				OutputTiming:  types.OutputSync,
			},
			"nested": {
				Endpoint:      mock.URL() + "/generate/nested",
				RequestBody:   `{"prompt":"{prompt}"}`,
				OutputKeyPath: "output.choices[0].text",
				OutputTiming:  types.OutputSync,
			},
			"streaming": {
				Endpoint:      mock.StreamURL(),
				RequestBody:   `{"prompt":"{prompt}"}`,
				OutputKeyPath: "text",
				OutputTiming:  types.OutputAsync,
			},
		},
		PromptVariables: map[string]string{
			"{{product}}": "PromptLab",
		},
	}
}

// findAvailablePort finds an available TCP port.
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// waitForServer waits for the server to be ready.
func waitForServer(baseURL string, timeout time.Duration) error {
	client := NewTestClient(baseURL)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(context.Background(), "/health")
		if err == nil && resp.IsSuccess() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server not ready after %v", timeout)
}
