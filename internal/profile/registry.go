// Package profile manages named endpoint profiles. A profile binds a name
// to a full EndpointConfig so callers can say "summarize" instead of
// repeating endpoint, auth and body template on every invocation.
//
// Profiles come from two places: the profiles block of the config file and
// records stored under the data directory. Stored profiles are writable at
// runtime and shadow config profiles with the same name.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/event"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/logging"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/storage"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// maxSuggestionDistance bounds how far a name may be from an existing
// profile before "did you mean" stays silent.
const maxSuggestionDistance = 3

// UnknownProfileError is returned when no profile has the requested name.
// Suggestion carries the nearest existing name, if one is close enough.
type UnknownProfileError struct {
	Name       string
	Suggestion string
}

func (e *UnknownProfileError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("profile not found: %s (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("profile not found: %s", e.Name)
}

// ConfigManagedError is returned when a delete targets a profile that only
// exists in the config file.
type ConfigManagedError struct {
	Name string
}

func (e *ConfigManagedError) Error() string {
	return fmt.Sprintf("profile %s is declared in the config file and cannot be deleted here", e.Name)
}

// Registry merges config-file profiles with stored profiles and resolves
// names into endpoint configurations.
type Registry struct {
	mu    sync.RWMutex
	cfg   *types.Config
	store *storage.Storage
}

// NewRegistry creates a registry over the given config and store. The store
// may be nil, leaving only config-file profiles visible.
func NewRegistry(cfg *types.Config, store *storage.Storage) *Registry {
	return &Registry{cfg: cfg, store: store}
}

// SetConfig swaps the config, picking up reloaded profile declarations.
func (r *Registry) SetConfig(cfg *types.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}

// Get returns the profile with the given name. Stored profiles shadow
// config profiles of the same name.
func (r *Registry) Get(ctx context.Context, name string) (*types.Profile, error) {
	if r.store != nil {
		var p types.Profile
		err := r.store.Get(ctx, []string{"profile", name}, &p)
		if err == nil {
			return &p, nil
		}
		if err != storage.ErrNotFound {
			return nil, err
		}
	}

	r.mu.RLock()
	cfg := r.cfg
	r.mu.RUnlock()

	if cfg != nil {
		if ec, ok := cfg.Profiles[name]; ok {
			return &types.Profile{Name: name, Config: ec}, nil
		}
	}

	names, err := r.names(ctx)
	if err != nil {
		return nil, err
	}
	return nil, &UnknownProfileError{Name: name, Suggestion: nearestName(name, names)}
}

// Resolve returns the endpoint configuration for the named profile. An
// empty name picks the config's default profile.
func (r *Registry) Resolve(ctx context.Context, name string) (types.EndpointConfig, error) {
	if name == "" {
		r.mu.RLock()
		cfg := r.cfg
		r.mu.RUnlock()
		if cfg != nil {
			name = cfg.DefaultProfile
		}
		if name == "" {
			return types.EndpointConfig{}, fmt.Errorf("no profile named and no default profile configured")
		}
	}

	p, err := r.Get(ctx, name)
	if err != nil {
		return types.EndpointConfig{}, err
	}
	return p.Config, nil
}

// List returns all profiles sorted by name, stored ones shadowing config
// ones.
func (r *Registry) List(ctx context.Context) ([]*types.Profile, error) {
	merged := make(map[string]*types.Profile)

	r.mu.RLock()
	cfg := r.cfg
	r.mu.RUnlock()

	if cfg != nil {
		for name, ec := range cfg.Profiles {
			merged[name] = &types.Profile{Name: name, Config: ec}
		}
	}

	if r.store != nil {
		err := r.store.Scan(ctx, []string{"profile"}, func(key string, data json.RawMessage) error {
			var p types.Profile
			if err := json.Unmarshal(data, &p); err != nil {
				logging.Warn().Str("profile", key).Err(err).Msg("skipping corrupt profile record")
				return nil
			}
			merged[p.Name] = &p
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	profiles := make([]*types.Profile, 0, len(merged))
	for _, p := range merged {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })

	return profiles, nil
}

// Save validates and persists a profile, creating or replacing the stored
// record with that name.
func (r *Registry) Save(ctx context.Context, p *types.Profile) error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if p.Config.Endpoint == "" {
		return fmt.Errorf("profile %s: endpoint may not be empty", p.Name)
	}
	if r.store == nil {
		return fmt.Errorf("no profile store configured")
	}

	now := time.Now().UnixMilli()
	var existing types.Profile
	if err := r.store.Get(ctx, []string{"profile", p.Name}, &existing); err == nil {
		p.Time.Created = existing.Time.Created
	} else {
		p.Time.Created = now
	}
	p.Time.Updated = now

	if err := r.store.Put(ctx, []string{"profile", p.Name}, p); err != nil {
		return err
	}

	logging.Info().Str("profile", p.Name).Msg("profile saved")

	event.Publish(event.Event{
		Type: event.ProfileUpdated,
		Data: event.ProfileUpdatedData{Info: p},
	})

	return nil
}

// Delete removes a stored profile. Profiles that exist only in the config
// file cannot be deleted; unknown names get the usual suggestion.
func (r *Registry) Delete(ctx context.Context, name string) error {
	if r.store != nil && r.store.Exists(ctx, []string{"profile", name}) {
		if err := r.store.Delete(ctx, []string{"profile", name}); err != nil {
			return err
		}

		logging.Info().Str("profile", name).Msg("profile deleted")

		event.Publish(event.Event{
			Type: event.ProfileDeleted,
			Data: event.ProfileDeletedData{Name: name},
		})
		return nil
	}

	r.mu.RLock()
	cfg := r.cfg
	r.mu.RUnlock()
	if cfg != nil {
		if _, ok := cfg.Profiles[name]; ok {
			return &ConfigManagedError{Name: name}
		}
	}

	names, err := r.names(ctx)
	if err != nil {
		return err
	}
	return &UnknownProfileError{Name: name, Suggestion: nearestName(name, names)}
}

// names returns every known profile name, sorted.
func (r *Registry) names(ctx context.Context) ([]string, error) {
	profiles, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names, nil
}

// nearestName returns the candidate closest to name by edit distance, or
// "" when nothing is within maxSuggestionDistance. Candidates must be
// sorted so ties resolve deterministically.
func nearestName(name string, candidates []string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1
	for _, c := range candidates {
		dist := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(c))
		if dist < bestDist {
			best = c
			bestDist = dist
		}
	}
	return best
}

// validateName rejects names that cannot serve as a storage key.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("profile name may not be empty")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid profile name: %s", name)
	}
	return nil
}
