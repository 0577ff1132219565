package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/config"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/profile"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/storage"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

var (
	profileEndpoint    string
	profileRequestBody string
	profileKeyPath     string
	profileAuth        string
	profileAsync       bool
	profileDescription string
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage endpoint profiles",
	Long: `Manage named endpoint profiles.

Profiles come from two places: the config file's "profiles" section and
the local profile store. Stored profiles shadow config profiles of the
same name; config profiles can only be edited in the config file.`,
}

var profilesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}

		profiles, err := reg.List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tENDPOINT\tDESCRIPTION\tUPDATED")
		for _, p := range profiles {
			updated := "-"
			if p.Time.Updated != 0 {
				updated = time.UnixMilli(p.Time.Updated).Format("2006-01-02 15:04")
			}
			desc := p.Description
			if desc == "" {
				desc = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.Config.Endpoint, desc, updated)
		}
		return w.Flush()
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a profile's configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}

		p, err := reg.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		// Never print stored credentials.
		shown := *p
		if shown.Config.APIKey != "" {
			shown.Config.APIKey = "********"
		}

		data, err := json.MarshalIndent(shown, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var profilesSetCmd = &cobra.Command{
	Use:   "set [name]",
	Short: "Create or update a stored profile",
	Long: `Create or update a stored profile.

The API key, if the endpoint needs one, is read from the
PROMPTLAB_API_KEY environment variable and kept in the profile store.
It is never written to config files.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}

		cfg := types.EndpointConfig{
			Endpoint:      profileEndpoint,
			RequestBody:   profileRequestBody,
			OutputKeyPath: profileKeyPath,
			OutputTiming:  types.OutputSync,
		}
		if cfg.RequestBody == "" {
			cfg.RequestBody = `{"prompt":"{prompt}"}`
		}
		if profileAsync {
			cfg.OutputTiming = types.OutputAsync
		}

		switch profileAuth {
		case "":
		case "apiKey", "bearerToken", "customHeader":
			key := os.Getenv("PROMPTLAB_API_KEY")
			if key == "" {
				return fmt.Errorf("--auth %s requires PROMPTLAB_API_KEY to be set", profileAuth)
			}
			cfg.AuthScheme = types.AuthScheme(profileAuth)
			cfg.APIKey = key
		default:
			return fmt.Errorf("invalid auth scheme: %s (must be apiKey, bearerToken or customHeader)", profileAuth)
		}

		p := &types.Profile{
			Name:        args[0],
			Description: profileDescription,
			Config:      cfg,
		}
		if err := reg.Save(cmd.Context(), p); err != nil {
			return err
		}

		fmt.Printf("Saved profile: %s\n", p.Name)
		return nil
	},
}

var profilesDeleteCmd = &cobra.Command{
	Use:     "delete [name]",
	Aliases: []string{"rm"},
	Short:   "Delete a stored profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}

		if err := reg.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Printf("Deleted profile: %s\n", args[0])
		return nil
	},
}

func init() {
	profilesSetCmd.Flags().StringVar(&profileEndpoint, "endpoint", "", "Endpoint URL or built-in alias (required)")
	profilesSetCmd.Flags().StringVar(&profileRequestBody, "request-body", "", "Request body template with {prompt}, {basePrompt} and {input} keys")
	profilesSetCmd.Flags().StringVar(&profileKeyPath, "key-path", "", "Dot-separated path to the output text in the response")
	profilesSetCmd.Flags().StringVar(&profileAuth, "auth", "", "Auth scheme: apiKey, bearerToken or customHeader; the key is read from PROMPTLAB_API_KEY")
	profilesSetCmd.Flags().BoolVar(&profileAsync, "async", false, "Endpoint responds asynchronously")
	profilesSetCmd.Flags().StringVar(&profileDescription, "description", "", "Profile description")
	_ = profilesSetCmd.MarkFlagRequired("endpoint")

	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	profilesCmd.AddCommand(profilesSetCmd)
	profilesCmd.AddCommand(profilesDeleteCmd)
}

// openRegistry loads config and storage for the profile subcommands.
func openRegistry() (*profile.Registry, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, err
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return nil, err
	}
	setupLogging(appConfig, false)

	store := storage.New(paths.StoragePath())
	return profile.NewRegistry(appConfig, store), nil
}
