package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rrc-chat/rrc-client/internal/chat"
)

const (
	hubCacheFileName = "discovered_hubs.json"

	// Entries with a last-seen timestamp further in the future than
	// this are rejected as corrupt.
	maxTimestampSkew = time.Hour
)

// HubCachePath returns the discovered-hub cache location next to the
// config file.
func HubCachePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), hubCacheFileName)
}

// LoadHubCache reads previously discovered hubs. A missing or corrupt
// cache yields an empty list; discovery repopulates it.
func LoadHubCache(path string) ([]chat.Hub, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hub cache %s: %w", path, err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("failed to read hub cache %s: file too large", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hub cache %s: %w", path, err)
	}

	var raw map[string]chat.Hub
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse hub cache %s: %w", path, err)
	}

	horizon := float64(time.Now().Add(maxTimestampSkew).Unix())
	hubs := make([]chat.Hub, 0, len(raw))
	for hash, hub := range raw {
		if hub.Hash == "" {
			hub.Hash = hash
		}
		if hub.Hash != hash || hub.Name == "" {
			continue
		}
		if hub.LastSeen < 0 || hub.LastSeen > horizon {
			continue
		}
		hubs = append(hubs, hub)
	}
	return hubs, nil
}

// SaveHubCache writes the discovered hubs keyed by hash.
func SaveHubCache(path string, hubs []chat.Hub) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	byHash := make(map[string]chat.Hub, len(hubs))
	for _, h := range hubs {
		if h.Hash != "" {
			byHash[h.Hash] = h
		}
	}

	data, err := json.MarshalIndent(byHash, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode hub cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write hub cache %s: %w", path, err)
	}
	return nil
}
