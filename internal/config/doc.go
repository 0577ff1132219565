// Package config provides configuration loading, merging, and path management for PromptLab.
//
// Configuration can live in several places and formats. The package resolves
// them into a single types.Config with a fixed precedence, interpolates
// environment and file placeholders, and can watch every source file for
// changes at runtime.
//
// # Configuration Loading
//
// The Load function searches for and merges configuration from multiple
// sources in priority order:
//
//  1. Global config (~/.promptlab/ - config.json plus the promptlab.* names)
//  2. Global config (~/.config/promptlab/ - XDG compatible)
//  3. Project config (promptlab.* in the project directory and its
//     .promptlab/ subdirectory)
//  4. PROMPTLAB_CONFIG file
//  5. PROMPTLAB_CONFIG_CONTENT inline JSON
//  6. Environment variables
//
// Later sources override earlier ones, so a project file beats the global
// one and environment variables beat everything. Files that do not exist
// are skipped silently; each file is loaded at most once even when the
// search paths overlap.
//
// # Supported Formats
//
// Four file names are recognized, in load order:
//   - promptlab.json - standard JSON
//   - promptlab.jsonc - JSON with comments, processed using tidwall/jsonc
//   - promptlab.yaml / promptlab.yml - YAML, converted to JSON before
//     decoding so a single set of struct tags serves both formats
//
// # Variable Interpolation
//
// Configuration files support two placeholder forms:
//   - {env:VAR_NAME} - expands to the environment variable's value
//   - {file:path} - expands to the file's contents, escaped for JSON
//
// File paths in {file:path} placeholders may be absolute, relative to the
// config file's directory, or ~/ for the home directory. A placeholder whose
// file cannot be read is left untouched.
//
// Example profile that pulls its API key from the environment:
//
//	{
//	  "profiles": {
//	    "claude": {
//	      "endpoint": "https://api.anthropic.com/v1/messages",
//	      "apiKey": "{env:ANTHROPIC_API_KEY}",
//	      "outputKeyPath": "content[0].text"
//	    }
//	  }
//	}
//
// # Configuration Merging
//
// Sources merge section by section. Scalar fields such as defaultProfile
// overwrite, the profiles and promptVariables maps merge per key, and the
// placeholders, server, and log sections replace as a whole. An entry for a
// profile name in a later source therefore replaces that profile completely
// rather than patching individual fields.
//
// # Environment Variables
//
//   - PROMPTLAB_CONFIG - path to an additional config file
//   - PROMPTLAB_CONFIG_CONTENT - inline JSON configuration
//   - PROMPTLAB_CONFIG_DIR - override the config directory used by Save
//   - PROMPTLAB_PROFILE - override the default profile
//   - PROMPTLAB_LOG_LEVEL - override the log level
//   - PROMPTLAB_PORT / PROMPTLAB_HOSTNAME - override the server address
//
// ANTHROPIC_API_KEY, OPENAI_API_KEY, and ARK_API_KEY each enable the
// corresponding engine section when present, so the built-in engine aliases
// work with no config file at all. The key itself is never copied into the
// config: engines read it from the environment, and Save writes no secret.
//
// # Path Management
//
// The Paths type follows the XDG Base Directory Specification:
//   - Data: ~/.local/share/promptlab (XDG_DATA_HOME)
//   - Config: ~/.config/promptlab (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/promptlab (XDG_CACHE_HOME)
//   - State: ~/.local/state/promptlab (XDG_STATE_HOME)
//
// On Windows these fall back to APPDATA. StoragePath and LogsPath derive the
// session store and log directories from them.
//
// # Change Watching
//
// NewWatcher builds an fsnotify watcher over every path SourcePaths reports
// for the project directory. It watches the containing directories rather
// than the files, fingerprints each tracked file by size and mtime, and
// publishes a ConfigUpdated event when a tracked file's contents actually
// change. The server uses this to swap in a freshly loaded config without a
// restart.
//
// # Usage Example
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	paths := config.GetPaths()
//	if err := paths.EnsurePaths(); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := config.Save(cfg, config.GlobalConfigPath()); err != nil {
//	    log.Fatal(err)
//	}
package config
