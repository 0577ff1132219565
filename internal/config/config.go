package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.promptlab/)
// 2. Global config (~/.config/promptlab/ - XDG compatible)
// 3. Project config (promptlab.json and .promptlab/)
// 4. PROMPTLAB_CONFIG file
// 5. PROMPTLAB_CONFIG_CONTENT inline JSON
// 6. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Profiles: make(map[string]types.EndpointConfig),
	}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Global config (~/.promptlab/)
	home := os.Getenv("HOME")
	if home != "" {
		appDir := filepath.Join(home, ".promptlab")
		loadOnce(filepath.Join(appDir, "config.json"), appDir)
		for _, name := range configFileNames {
			loadOnce(filepath.Join(appDir, name), appDir)
		}
	}

	// 2. XDG-compatible global config (~/.config/promptlab/)
	globalPath := GetPaths().Config
	for _, name := range configFileNames {
		loadOnce(filepath.Join(globalPath, name), globalPath)
	}

	// 3. Project config
	if directory != "" {
		projectConfigDir := filepath.Join(directory, ".promptlab")
		for _, name := range configFileNames {
			loadOnce(filepath.Join(directory, name), directory)
			loadOnce(filepath.Join(projectConfigDir, name), projectConfigDir)
		}
	}

	// 4. PROMPTLAB_CONFIG file override
	if configPath := os.Getenv("PROMPTLAB_CONFIG"); configPath != "" {
		loadOnce(configPath, filepath.Dir(configPath))
	}

	// 5. PROMPTLAB_CONFIG_CONTENT inline JSON
	if configContent := os.Getenv("PROMPTLAB_CONFIG_CONTENT"); configContent != "" {
		var inlineConfig types.Config
		if err := json.Unmarshal(jsonc.ToJSON([]byte(configContent)), &inlineConfig); err == nil {
			mergeConfig(config, &inlineConfig)
		}
	}

	// 6. Environment variables (highest priority)
	applyEnvOverrides(config)

	return config, nil
}

// configFileNames are the recognized config file names, in load order.
var configFileNames = []string{
	"promptlab.json",
	"promptlab.jsonc",
	"promptlab.yaml",
	"promptlab.yml",
}

// SourcePaths returns every config file path Load would consider for the
// given project directory, whether or not it exists. Watchers use it.
func SourcePaths(directory string) []string {
	var paths []string
	if home := os.Getenv("HOME"); home != "" {
		appDir := filepath.Join(home, ".promptlab")
		paths = append(paths, filepath.Join(appDir, "config.json"))
		for _, name := range configFileNames {
			paths = append(paths, filepath.Join(appDir, name))
		}
	}
	globalPath := GetPaths().Config
	for _, name := range configFileNames {
		paths = append(paths, filepath.Join(globalPath, name))
	}
	if directory != "" {
		for _, name := range configFileNames {
			paths = append(paths, filepath.Join(directory, name))
			paths = append(paths, filepath.Join(directory, ".promptlab", name))
		}
	}
	if configPath := os.Getenv("PROMPTLAB_CONFIG"); configPath != "" {
		paths = append(paths, configPath)
	}
	return paths
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return err
		}
	default:
		// Strip JSONC comments using tidwall/jsonc
		data = jsonc.ToJSON(data)
	}

	// Apply interpolation
	data = interpolate(data, baseDir)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// yamlToJSON converts a YAML document to JSON so a single set of struct tags
// serves both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	// Handle {env:VAR_NAME} placeholders
	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	// Handle {file:path} placeholders
	filePattern := regexp.MustCompile(`\{file:([^}]+)\}`)
	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		// Resolve path
		if strings.HasPrefix(filePath, "~/") {
			home := os.Getenv("HOME")
			filePath = filepath.Join(home, filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}

		// Escape for JSON string
		escaped := strings.ReplaceAll(strings.TrimRight(string(content), "\n"), "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")

		return escaped
	})

	return []byte(str)
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.DefaultProfile != "" {
		target.DefaultProfile = source.DefaultProfile
	}

	// Merge profiles
	if source.Profiles != nil {
		if target.Profiles == nil {
			target.Profiles = make(map[string]types.EndpointConfig)
		}
		for k, v := range source.Profiles {
			target.Profiles[k] = v
		}
	}

	// Merge engines per section
	if source.Engines != nil {
		if target.Engines == nil {
			target.Engines = &types.EnginesConfig{}
		}
		if source.Engines.Default != "" {
			target.Engines.Default = source.Engines.Default
		}
		if source.Engines.Claude != nil {
			target.Engines.Claude = source.Engines.Claude
		}
		if source.Engines.OpenAI != nil {
			target.Engines.OpenAI = source.Engines.OpenAI
		}
		if source.Engines.Ark != nil {
			target.Engines.Ark = source.Engines.Ark
		}
	}

	// Merge prompt variables
	if source.PromptVariables != nil {
		if target.PromptVariables == nil {
			target.PromptVariables = make(map[string]string)
		}
		for k, v := range source.PromptVariables {
			target.PromptVariables[k] = v
		}
	}

	// Merge placeholder policy
	if source.Placeholders != nil {
		target.Placeholders = source.Placeholders
	}

	// Merge server config
	if source.Server != nil {
		target.Server = source.Server
	}

	// Merge log config
	if source.Log != nil {
		target.Log = source.Log
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	// An engine section appears automatically when its API key is in the
	// environment, so the built-in aliases work with no config file. The
	// key itself is not copied into the config; the engine reads it from
	// the environment, and a later Save writes no secret.
	engineEnvVars := map[string]func(*types.EnginesConfig) bool{
		"ANTHROPIC_API_KEY": func(e *types.EnginesConfig) bool {
			if e.Claude == nil {
				e.Claude = &types.EngineConfig{}
				return true
			}
			return false
		},
		"OPENAI_API_KEY": func(e *types.EnginesConfig) bool {
			if e.OpenAI == nil {
				e.OpenAI = &types.EngineConfig{}
				return true
			}
			return false
		},
		"ARK_API_KEY": func(e *types.EnginesConfig) bool {
			if e.Ark == nil {
				e.Ark = &types.EngineConfig{}
				return true
			}
			return false
		},
	}
	for envVar, ensure := range engineEnvVars {
		if os.Getenv(envVar) == "" {
			continue
		}
		if config.Engines == nil {
			config.Engines = &types.EnginesConfig{}
		}
		ensure(config.Engines)
	}

	// Default profile override
	if profile := os.Getenv("PROMPTLAB_PROFILE"); profile != "" {
		config.DefaultProfile = profile
	}

	// Log level override
	if level := os.Getenv("PROMPTLAB_LOG_LEVEL"); level != "" {
		if config.Log == nil {
			config.Log = &types.LogConfig{}
		}
		config.Log.Level = level
	}

	// Server overrides
	if port := os.Getenv("PROMPTLAB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			if config.Server == nil {
				config.Server = &types.ServerConfig{}
			}
			config.Server.Port = n
		}
	}
	if hostname := os.Getenv("PROMPTLAB_HOSTNAME"); hostname != "" {
		if config.Server == nil {
			config.Server = &types.ServerConfig{}
		}
		config.Server.Hostname = hostname
	}
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigDir returns the config directory to use.
// Prefers PROMPTLAB_CONFIG_DIR, then ~/.promptlab, then ~/.config/promptlab.
func GetConfigDir() string {
	// Check environment variable first
	if dir := os.Getenv("PROMPTLAB_CONFIG_DIR"); dir != "" {
		return dir
	}

	// Check for the home app directory
	home := os.Getenv("HOME")
	if home != "" {
		appDir := filepath.Join(home, ".promptlab")
		if _, err := os.Stat(appDir); err == nil {
			return appDir
		}
	}

	// Fall back to XDG location
	return GetPaths().Config
}
