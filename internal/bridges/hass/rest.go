package hass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// restRequestTimeout bounds an individual REST call.
const restRequestTimeout = 15 * time.Second

// sceneConfigConcurrency bounds parallel per-scene detail fetches.
const sceneConfigConcurrency = 8

// SceneConfig describes a scene's target entity states, fetched from
// the REST config endpoint.
type SceneConfig struct {
	ID       string                `json:"id"`
	Name     string                `json:"name"`
	Entities map[string]Attributes `json:"entities"`
}

// restRequest performs an authenticated REST call against the hub,
// reusing the WebSocket endpoint's base URL and bearer token.
func (c *Client) restRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, restRequestTimeout)
	defer cancel()

	url := c.endpoint + "/" + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: reading body: %v", ErrInvalidResponse, err)
	}

	return data, resp.StatusCode, nil
}

// GetSceneConfig fetches one scene's configuration by its internal id
// (the "id" state attribute, not the entity id).
//
// YAML-defined scenes have no config endpoint; those return nil
// without error.
func (c *Client) GetSceneConfig(ctx context.Context, internalID string) (*SceneConfig, error) {
	data, status, err := c.restRequest(ctx, http.MethodGet, "api/config/scene/config/"+internalID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: scene config returned status %d", ErrInvalidResponse, status)
	}

	var cfg SceneConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: scene config: %v", ErrInvalidResponse, err)
	}
	return &cfg, nil
}

// GetAllSceneConfigs fetches the configuration of every scene entity,
// keyed by entity id. Scenes without a fetchable config are omitted.
func (c *Client) GetAllSceneConfigs(ctx context.Context, states []EntityState) (map[string]*SceneConfig, error) {
	type fetched struct {
		entityID string
		cfg      *SceneConfig
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sceneConfigConcurrency)
	results := make(chan fetched, len(states))

	for i := range states {
		state := &states[i]
		if state.Domain() != "scene" {
			continue
		}
		internalID, ok := state.Attributes.String("id")
		if !ok || internalID == "" {
			continue
		}
		entityID := state.EntityID
		g.Go(func() error {
			cfg, err := c.GetSceneConfig(gctx, internalID)
			if err != nil {
				// Missing detail degrades the scene listing, it
				// does not fail the load.
				c.logger.Warn("scene config fetch failed", "entity_id", entityID, "error", err)
				return nil
			}
			results <- fetched{entityID: entityID, cfg: cfg}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	configs := make(map[string]*SceneConfig)
	for r := range results {
		if r.cfg != nil {
			configs[r.entityID] = r.cfg
		}
	}
	return configs, nil
}

// CameraSnapshotURL returns the still-image proxy URL for a camera
// entity. The URL requires the bearer token to fetch.
func (c *Client) CameraSnapshotURL(entityID string) string {
	return c.endpoint + "/api/camera_proxy/" + entityID
}
