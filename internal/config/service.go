package config

import (
	"context"
	"encoding/json"
	"fmt"
)

// ItemStore is the persistence contract for DB-stored ConfigItem overrides.
// internal/mediastore's sqlite-backed store implements this.
type ItemStore interface {
	GetAllConfigItems(ctx context.Context) (map[string]string, error)
	UpsertConfigItems(ctx context.Context, items map[string]string) error
	DeleteConfigItemsNotIn(ctx context.Context, keys []string) (int, error)
}

// Service mediates config API writes: partitioning proposed keys into
// {accepted, rejected} against the registry blacklist, revalidating the
// merged result against the full schema, and persisting only on success.
// Grounded on the Python predecessor's ConfigService.update_configs, which
// applies the same filter-merge-validate-write sequence.
type Service struct {
	holder *ConfigHolder
	store  ItemStore
}

// NewService constructs a Service bound to holder (for read/reload access)
// and store (for persisting accepted writes).
func NewService(holder *ConfigHolder, store ItemStore) *Service {
	return &Service{holder: holder, store: store}
}

// UpdateResult reports which keys were written and which were rejected by
// the blacklist, for the POST /api/config response.
type UpdateResult struct {
	UpdatedKeys  []string
	RejectedKeys []string
}

// Update partitions proposed against the blacklist, merges the accepted
// subset onto the current snapshot, revalidates, and persists. On
// validation failure the entire write rolls back and no ConfigItem is
// touched.
func (s *Service) Update(ctx context.Context, proposed map[string]string) (UpdateResult, error) {
	registry := GetRegistry()
	blacklist := registry.BlacklistedKeys()

	result := UpdateResult{}
	accepted := make(map[string]string)
	for key, value := range proposed {
		if _, ok := registry.ByEnv[key]; !ok {
			result.RejectedKeys = append(result.RejectedKeys, key)
			continue
		}
		if _, blocked := blacklist[key]; blocked {
			result.RejectedKeys = append(result.RejectedKeys, key)
			continue
		}
		accepted[key] = value
		result.UpdatedKeys = append(result.UpdatedKeys, key)
	}

	if len(accepted) == 0 {
		return result, nil
	}

	candidate := s.holder.Current()
	applyEnv(&candidate, func(key string) (string, bool) {
		v, ok := accepted[key]
		return v, ok
	})
	if err := Validate(candidate); err != nil {
		return UpdateResult{}, fmt.Errorf("validate proposed config: %w", err)
	}

	if err := s.store.UpsertConfigItems(ctx, accepted); err != nil {
		return UpdateResult{}, fmt.Errorf("persist config items: %w", err)
	}

	if err := s.holder.Reload(ctx); err != nil {
		return UpdateResult{}, fmt.Errorf("reload after config write: %w", err)
	}
	return result, nil
}

// ReadAll returns every recognized key's current effective value and its
// registry metadata, for GET /api/config.
func (s *Service) ReadAll() map[string]ConfigEntry {
	return GetRegistry().ByEnv
}

// CurrentValues returns the live effective value of every recognized key,
// keyed the same way as ReadAll, for pairing with its registry metadata.
func (s *Service) CurrentValues() map[string]string {
	return s.holder.Current().AsEnvMap()
}

// Cleanup deletes any persisted ConfigItem whose key is no longer in the
// registry schema, returning how many rows were removed; run once at
// startup per §4.9.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	registry := GetRegistry()
	keys := make([]string, 0, len(registry.ByEnv))
	for k := range registry.ByEnv {
		keys = append(keys, k)
	}
	deleted, err := s.store.DeleteConfigItemsNotIn(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("cleanup stale config items: %w", err)
	}
	return deleted, nil
}

// dbOverrideSource adapts an ItemStore into the OverrideSource ConfigHolder
// consumes, decoding the stored raw values back into env-style strings.
type dbOverrideSource struct {
	store ItemStore
}

// NewDBOverrideSource wraps store as a ConfigHolder OverrideSource.
func NewDBOverrideSource(store ItemStore) OverrideSource {
	return &dbOverrideSource{store: store}
}

func (d *dbOverrideSource) LoadOverrides(ctx context.Context) (map[string]string, error) {
	raw, err := d.store.GetAllConfigItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		var decoded string
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			out[k] = decoded
			continue
		}
		out[k] = v
	}
	return out, nil
}
