package platform

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nickustinov/itsyhome-bridge/internal/accessory"
	"github.com/nickustinov/itsyhome-bridge/internal/actions"
	"github.com/nickustinov/itsyhome-bridge/internal/bridges/hass"
	"github.com/nickustinov/itsyhome-bridge/internal/credentials"
	"github.com/nickustinov/itsyhome-bridge/internal/infrastructure/config"
	"github.com/nickustinov/itsyhome-bridge/internal/snapshot"
)

// resyncTimeout bounds the background snapshot refresh that follows a
// reconnection.
const resyncTimeout = 60 * time.Second

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Platform is the bridge facade over one hub connection.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
type Platform struct {
	cfg    *config.Config
	creds  credentials.Provider
	logger Logger

	mapper     *accessory.Mapper
	translator *actions.Translator

	mu     sync.RWMutex
	client *hass.Client
	store  *snapshot.Store
	hub    *hass.HubConfig

	// synced flips once the initial snapshot is loaded; from then on
	// reconnections refresh the snapshot in the background.
	synced atomic.Bool

	callbackMu              sync.RWMutex
	onGraphChanged          func()
	onCharacteristicChanged func(uuid.UUID, hass.Value)
	onConnectionChanged     func(bool)
}

// New creates a Platform. Connect establishes the hub connection.
func New(cfg *config.Config, creds credentials.Provider, logger Logger) *Platform {
	if logger == nil {
		logger = noopLogger{}
	}
	p := &Platform{
		cfg:    cfg,
		creds:  creds,
		logger: logger,
	}
	p.mapper = accessory.NewMapper(logger)
	p.translator = actions.NewTranslator(p.mapper, p, logger)
	return p
}

// SetOnGraphChanged registers a callback fired whenever the accessory
// graph is rebuilt.
func (p *Platform) SetOnGraphChanged(fn func()) {
	p.callbackMu.Lock()
	p.onGraphChanged = fn
	p.callbackMu.Unlock()
}

// SetOnCharacteristicChanged registers a callback fired for every
// characteristic value carried by a state change.
func (p *Platform) SetOnCharacteristicChanged(fn func(uuid.UUID, hass.Value)) {
	p.callbackMu.Lock()
	p.onCharacteristicChanged = fn
	p.callbackMu.Unlock()
}

// SetOnConnectionChanged registers a callback fired on every
// connection state transition.
func (p *Platform) SetOnConnectionChanged(fn func(bool)) {
	p.callbackMu.Lock()
	p.onConnectionChanged = fn
	p.callbackMu.Unlock()
}

// Configure normalises and persists hub credentials for later
// connections.
//
// Parameters:
//   - ctx: Context for cancellation
//   - endpoint: Raw endpoint as entered, e.g. "ha.local:8123"
//   - token: Long-lived access token
//
// Returns:
//   - error: hass.ErrInvalidEndpoint or a store failure
func (p *Platform) Configure(ctx context.Context, endpoint, token string) error {
	normalized, err := hass.NormalizeEndpoint(endpoint)
	if err != nil {
		return err
	}
	return p.creds.Save(ctx, &credentials.Credentials{Endpoint: normalized, Token: token})
}

// Connect dials the hub, authenticates, loads the full snapshot, and
// subscribes to state changes. On success the accessory graph is ready
// and the credentials are persisted for the next run.
func (p *Platform) Connect(ctx context.Context) error {
	endpoint, token, err := p.resolveCredentials(ctx)
	if err != nil {
		return err
	}

	client := hass.NewClient(endpoint, token, hass.ClientConfig{
		AuthTimeout:          p.cfg.AuthTimeout(),
		HeartbeatInterval:    p.cfg.HeartbeatInterval(),
		HeartbeatTimeout:     p.cfg.HeartbeatTimeout(),
		ReconnectBase:        p.cfg.ReconnectBaseDelay(),
		ReconnectMax:         p.cfg.ReconnectMaxDelay(),
		MaxReconnectAttempts: p.cfg.Connection.Reconnect.MaxAttempts,
	}, p.logger)
	client.SetOnConnect(p.handleConnect)
	client.SetOnDisconnect(p.handleDisconnect)
	client.SetOnStateChange(p.handleStateChange)

	p.synced.Store(false)
	p.mu.Lock()
	prev := p.client
	p.client = client
	p.mu.Unlock()

	// A previous client may still be alive or backing off towards a
	// reconnect; retire it before the replacement dials.
	if prev != nil {
		prev.Disconnect()
	}

	if err := client.Connect(ctx); err != nil {
		p.mu.Lock()
		p.client = nil
		p.mu.Unlock()
		return err
	}

	if err := p.resync(ctx); err != nil {
		client.Disconnect()
		p.mu.Lock()
		p.client = nil
		p.mu.Unlock()
		return err
	}
	p.synced.Store(true)

	if err := p.creds.Save(ctx, &credentials.Credentials{Endpoint: endpoint, Token: token}); err != nil {
		p.logger.Warn("failed to persist credentials", "error", err)
	}

	return nil
}

// Disconnect closes the hub connection. The last accessory graph stays
// readable.
func (p *Platform) Disconnect() {
	if client := p.currentClient(); client != nil {
		client.Disconnect()
	}
}

// Connected reports whether an authenticated connection is up.
func (p *Platform) Connected() bool {
	client := p.currentClient()
	return client != nil && client.Connected()
}

// Graph returns the current accessory graph.
func (p *Platform) Graph() *accessory.Graph {
	return p.mapper.Graph()
}

// HubInfo returns the hub configuration captured at the last snapshot
// load, or nil before the first.
func (p *Platform) HubInfo() *hass.HubConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hub
}

// ReadCharacteristic returns the current value behind a characteristic
// id from the cached snapshot. No hub round trip is involved.
func (p *Platform) ReadCharacteristic(id uuid.UUID) (hass.Value, bool) {
	entityID, ok := p.mapper.EntityForCharacteristic(id)
	if !ok {
		return hass.AbsentValue, false
	}
	v, ok := p.mapper.Values(entityID)[id]
	return v, ok
}

// WriteCharacteristic translates a characteristic write into the
// matching hub service call.
func (p *Platform) WriteCharacteristic(ctx context.Context, id uuid.UUID, value hass.Value) error {
	return p.translator.WriteCharacteristic(ctx, id, value)
}

// ActivateScene triggers a scene by its id.
func (p *Platform) ActivateScene(ctx context.Context, id uuid.UUID) error {
	return p.translator.ActivateScene(ctx, id)
}

// CallService forwards a raw service call to the hub. It satisfies
// actions.ServiceCaller.
func (p *Platform) CallService(ctx context.Context, domain, service string, data map[string]any, entityID string) error {
	client := p.currentClient()
	if client == nil {
		return ErrNotConnected
	}
	return client.CallService(ctx, domain, service, data, entityID)
}

// CameraStreamURL returns an HLS playback URL for a camera entity.
func (p *Platform) CameraStreamURL(ctx context.Context, entityID string) (string, error) {
	client := p.currentClient()
	if client == nil {
		return "", ErrNotConnected
	}
	return client.CameraStreamURL(ctx, entityID)
}

// CameraSnapshotURL returns the still-image proxy URL for a camera
// entity.
func (p *Platform) CameraSnapshotURL(entityID string) (string, error) {
	client := p.currentClient()
	if client == nil {
		return "", ErrNotConnected
	}
	return client.CameraSnapshotURL(entityID), nil
}

// WebRTCOffer forwards an SDP offer for a camera and returns the
// answer.
func (p *Platform) WebRTCOffer(ctx context.Context, entityID, offer string) (string, error) {
	client := p.currentClient()
	if client == nil {
		return "", ErrNotConnected
	}
	return client.WebRTCOffer(ctx, entityID, offer)
}

// WebRTCCandidate forwards an ICE candidate for a camera.
func (p *Platform) WebRTCCandidate(ctx context.Context, entityID, candidate string) error {
	client := p.currentClient()
	if client == nil {
		return ErrNotConnected
	}
	return client.WebRTCCandidate(ctx, entityID, candidate)
}

// ClearCredentials removes the persisted hub credentials.
func (p *Platform) ClearCredentials(ctx context.Context) error {
	return p.creds.Clear(ctx)
}

// resolveCredentials picks the hub endpoint and token: the config file
// (or its environment overrides) wins, else the credential store.
func (p *Platform) resolveCredentials(ctx context.Context) (string, string, error) {
	if p.cfg.Server.URL != "" && p.cfg.Server.Token != "" {
		endpoint, err := hass.NormalizeEndpoint(p.cfg.Server.URL)
		if err != nil {
			return "", "", err
		}
		return endpoint, p.cfg.Server.Token, nil
	}

	saved, err := p.creds.Load(ctx)
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			return "", "", ErrNotConfigured
		}
		return "", "", err
	}
	endpoint, err := hass.NormalizeEndpoint(saved.Endpoint)
	if err != nil {
		return "", "", err
	}
	return endpoint, saved.Token, nil
}

// resync bulk-fetches states, registries, hub config and scene
// configurations, swaps in a fresh snapshot, rebuilds the graph, and
// renews the state change subscription.
func (p *Platform) resync(ctx context.Context) error {
	client := p.currentClient()
	if client == nil {
		return ErrNotConnected
	}

	var (
		states  []hass.EntityState
		entries []hass.RegistryEntry
		devices []hass.Device
		areas   []hass.Area
		hub     *hass.HubConfig
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		states, err = client.GetStates(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = client.GetEntities(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		devices, err = client.GetDevices(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		areas, err = client.GetAreas(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		hub, err = client.GetConfig(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	sceneConfigs, err := client.GetAllSceneConfigs(ctx, states)
	if err != nil {
		return err
	}

	store := snapshot.New()
	store.Load(states, entries, devices, areas, sceneConfigs)

	p.mu.Lock()
	p.store = store
	p.hub = hub
	p.mu.Unlock()
	p.mapper.Reset(store)

	if err := client.WatchStateChanges(ctx); err != nil {
		return err
	}

	p.logger.Info("snapshot loaded",
		"entities", len(states),
		"devices", len(devices),
		"areas", len(areas),
		"hub_version", hub.Version)
	p.notifyGraphChanged()
	return nil
}

func (p *Platform) handleConnect() {
	p.notifyConnection(true)

	// The first snapshot load happens inside Connect; reconnections
	// refresh it here.
	if !p.synced.Load() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
		defer cancel()
		if err := p.resync(ctx); err != nil {
			p.logger.Error("snapshot refresh after reconnect failed", "error", err)
		}
	}()
}

func (p *Platform) handleDisconnect(err error) {
	if err != nil {
		p.logger.Warn("hub connection lost", "error", err)
	}
	p.notifyConnection(false)
}

// handleStateChange patches the snapshot with one change, rebuilding
// the graph when the entity set changed, and fans the entity's fresh
// characteristic values out to the callback.
func (p *Platform) handleStateChange(change hass.StateChange) {
	p.mu.RLock()
	store := p.store
	p.mu.RUnlock()
	if store == nil {
		return
	}

	if store.Apply(change) {
		p.mapper.Rebuild()
		p.notifyGraphChanged()
	}

	p.translator.ObserveStateChange(change)

	p.callbackMu.RLock()
	fn := p.onCharacteristicChanged
	p.callbackMu.RUnlock()
	if fn == nil {
		return
	}
	for id, v := range p.mapper.Values(change.EntityID) {
		fn(id, v)
	}
}

func (p *Platform) currentClient() *hass.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

func (p *Platform) notifyGraphChanged() {
	p.callbackMu.RLock()
	fn := p.onGraphChanged
	p.callbackMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (p *Platform) notifyConnection(connected bool) {
	p.callbackMu.RLock()
	fn := p.onConnectionChanged
	p.callbackMu.RUnlock()
	if fn != nil {
		fn(connected)
	}
}
