package hass

import (
	"context"
	"encoding/json"
	"fmt"
)

// HubConfig is the subset of hub configuration the bridge uses.
type HubConfig struct {
	Version      string `json:"version"`
	LocationName string `json:"location_name"`
	State        string `json:"state"`
}

// GetStates fetches the current state of every entity.
func (c *Client) GetStates(ctx context.Context) ([]EntityState, error) {
	raw, err := c.call(ctx, map[string]any{"type": "get_states"})
	if err != nil {
		return nil, err
	}
	var states []EntityState
	if err := json.Unmarshal(raw, &states); err != nil {
		return nil, fmt.Errorf("%w: get_states: %v", ErrInvalidResponse, err)
	}
	return states, nil
}

// GetConfig fetches hub configuration.
func (c *Client) GetConfig(ctx context.Context) (*HubConfig, error) {
	raw, err := c.call(ctx, map[string]any{"type": "get_config"})
	if err != nil {
		return nil, err
	}
	var cfg HubConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: get_config: %v", ErrInvalidResponse, err)
	}
	return &cfg, nil
}

// GetAreas fetches the area registry.
func (c *Client) GetAreas(ctx context.Context) ([]Area, error) {
	raw, err := c.call(ctx, map[string]any{"type": "config/area_registry/list"})
	if err != nil {
		return nil, err
	}
	var areas []Area
	if err := json.Unmarshal(raw, &areas); err != nil {
		return nil, fmt.Errorf("%w: area registry: %v", ErrInvalidResponse, err)
	}
	return areas, nil
}

// GetDevices fetches the device registry.
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	raw, err := c.call(ctx, map[string]any{"type": "config/device_registry/list"})
	if err != nil {
		return nil, err
	}
	var devices []Device
	if err := json.Unmarshal(raw, &devices); err != nil {
		return nil, fmt.Errorf("%w: device registry: %v", ErrInvalidResponse, err)
	}
	return devices, nil
}

// GetEntities fetches the entity registry.
func (c *Client) GetEntities(ctx context.Context) ([]RegistryEntry, error) {
	raw, err := c.call(ctx, map[string]any{"type": "config/entity_registry/list"})
	if err != nil {
		return nil, err
	}
	var entries []RegistryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: entity registry: %v", ErrInvalidResponse, err)
	}
	return entries, nil
}

// CallService invokes a hub service.
//
// Parameters:
//   - ctx: Context for cancellation
//   - domain: Service domain, e.g. "light"
//   - service: Service name, e.g. "turn_on"
//   - data: Optional service data fields
//   - entityID: Optional target entity
//
// Returns:
//   - error: ErrServiceCallFailed if the hub reports failure
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any, entityID string) error {
	payload := map[string]any{
		"type":    "call_service",
		"domain":  domain,
		"service": service,
	}
	if len(data) > 0 {
		payload["service_data"] = data
	}
	if entityID != "" {
		payload["target"] = map[string]any{"entity_id": entityID}
	}

	_, err := c.call(ctx, payload)
	return err
}

// SubscribeStateChanges subscribes to the state_changed event stream.
//
// The returned channel carries every state_changed event until the
// connection tears down, at which point it is closed. Events also feed
// the SetOnStateChange callback; most callers want only one of the two.
func (c *Client) SubscribeStateChanges(ctx context.Context) (<-chan Event, error) {
	return c.subscribe(ctx, map[string]any{
		"type":       "subscribe_events",
		"event_type": "state_changed",
	}, true)
}

// WatchStateChanges subscribes to the state_changed stream for the
// SetOnStateChange callback alone. No event channel is allocated, so
// the caller has nothing to drain.
func (c *Client) WatchStateChanges(ctx context.Context) error {
	_, err := c.subscribe(ctx, map[string]any{
		"type":       "subscribe_events",
		"event_type": "state_changed",
	}, false)
	return err
}

// CameraStreamURL requests an HLS stream for a camera entity and
// returns the absolute playback URL.
func (c *Client) CameraStreamURL(ctx context.Context, entityID string) (string, error) {
	raw, err := c.call(ctx, map[string]any{
		"type":      "camera/stream",
		"entity_id": entityID,
		"format":    "hls",
	})
	if err != nil {
		return "", err
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("%w: camera/stream: %v", ErrInvalidResponse, err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("%w: camera/stream returned no url", ErrInvalidResponse)
	}

	return c.endpoint + result.URL, nil
}

// WebRTCOffer sends a WebRTC SDP offer for a camera entity and returns
// the answer SDP.
func (c *Client) WebRTCOffer(ctx context.Context, entityID, offer string) (string, error) {
	raw, err := c.call(ctx, map[string]any{
		"type":      "camera/webrtc/offer",
		"entity_id": entityID,
		"offer":     offer,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("%w: camera/webrtc/offer: %v", ErrInvalidResponse, err)
	}
	return result.Answer, nil
}

// WebRTCCandidate forwards an ICE candidate for an in-progress WebRTC
// session.
func (c *Client) WebRTCCandidate(ctx context.Context, entityID, candidate string) error {
	_, err := c.call(ctx, map[string]any{
		"type":      "camera/webrtc/candidate",
		"entity_id": entityID,
		"candidate": candidate,
	})
	return err
}
