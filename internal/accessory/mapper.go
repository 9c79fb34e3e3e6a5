package accessory

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/nickustinov/itsyhome-bridge/internal/bridges/hass"
	"github.com/nickustinov/itsyhome-bridge/internal/snapshot"
)

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

// Mapper derives the accessory graph and identifier caches from a
// snapshot store.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Rebuild constructs the new graph and indices aside and publishes
//     them in one swap; readers see the old or the new complete graph,
//     never a partial one.
type Mapper struct {
	mu              sync.RWMutex
	store           *snapshot.Store
	graph           *Graph
	charToEntity    map[uuid.UUID]string
	serviceToEntity map[uuid.UUID]string

	logger Logger
}

// NewMapper creates a Mapper with no snapshot. Reset attaches one.
func NewMapper(logger Logger) *Mapper {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Mapper{
		graph:           &Graph{},
		charToEntity:    make(map[uuid.UUID]string),
		serviceToEntity: make(map[uuid.UUID]string),
		logger:          logger,
	}
}

// Reset attaches a freshly loaded snapshot store and rebuilds
// everything from it. Called once per connection.
func (m *Mapper) Reset(store *snapshot.Store) {
	m.mu.Lock()
	m.store = store
	m.mu.Unlock()
	m.Rebuild()
}

// Rebuild recomputes the accessory graph and both reverse indices
// from the current snapshot. Must be called whenever the entity set
// changes; plain state updates do not require it.
func (m *Mapper) Rebuild() {
	m.mu.RLock()
	store := m.store
	m.mu.RUnlock()
	if store == nil {
		return
	}

	states := store.States()

	charToEntity := make(map[uuid.UUID]string, len(states)*len(capabilityVocabulary))
	serviceToEntity := make(map[uuid.UUID]string, len(states))
	for i := range states {
		entityID := states[i].EntityID
		serviceToEntity[DeterministicID(entityID)] = entityID
		for _, cap := range capabilityVocabulary {
			charToEntity[CharacteristicID(entityID, cap)] = entityID
		}
	}

	graph := m.buildGraph(store, states)

	m.mu.Lock()
	m.graph = graph
	m.charToEntity = charToEntity
	m.serviceToEntity = serviceToEntity
	m.mu.Unlock()

	m.logger.Debug("rebuilt accessory graph",
		"rooms", len(graph.Rooms),
		"accessories", len(graph.Accessories),
		"scenes", len(graph.Scenes),
		"cameras", len(graph.Cameras),
		"characteristics", len(charToEntity))
}

// Graph returns the last published accessory graph. The returned
// structure is shared and must not be mutated.
func (m *Mapper) Graph() *Graph {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph
}

// EntityForCharacteristic resolves a characteristic id to its owning
// entity in O(1).
func (m *Mapper) EntityForCharacteristic(id uuid.UUID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entityID, ok := m.charToEntity[id]
	return entityID, ok
}

// EntityForService resolves a service id to its entity in O(1).
func (m *Mapper) EntityForService(id uuid.UUID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entityID, ok := m.serviceToEntity[id]
	return entityID, ok
}

// CharacteristicName recovers the capability name behind a
// characteristic id by re-deriving each vocabulary entry for the
// entity. Returns "" when none matches.
func (m *Mapper) CharacteristicName(id uuid.UUID, entityID string) string {
	for _, cap := range capabilityVocabulary {
		if CharacteristicID(entityID, cap) == id {
			return cap
		}
	}
	return ""
}

func (m *Mapper) buildGraph(store *snapshot.Store, states []hass.EntityState) *Graph {
	graph := &Graph{
		Rooms:       buildRooms(store),
		Accessories: m.buildAccessories(store, states),
		Scenes:      buildScenes(store, states),
		Cameras:     buildCameras(states),
	}
	return graph
}

func buildRooms(store *snapshot.Store) []Room {
	areas := store.Areas()
	rooms := make([]Room, 0, len(areas))
	for _, area := range areas {
		rooms = append(rooms, Room{
			ID:   DeterministicID(area.AreaID),
			Name: area.Name,
		})
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms
}

func (m *Mapper) buildAccessories(store *snapshot.Store, states []hass.EntityState) []Accessory {
	// Partition entities by owning device; orphans form singleton
	// groups keyed by their own entity id. States arrive sorted by
	// entity id, so group membership order is deterministic.
	groups := make(map[string][]*hass.EntityState)
	var order []string

	for i := range states {
		state := &states[i]
		if !supportedDomains[state.Domain()] {
			continue
		}
		if entry, ok := store.Entry(state.EntityID); ok && (entry.Disabled() || entry.Hidden()) {
			continue
		}

		key := state.EntityID
		if entry, ok := store.Entry(state.EntityID); ok && entry.DeviceID != "" {
			key = entry.DeviceID
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], state)
	}

	accessories := make([]Accessory, 0, len(groups))
	for _, key := range order {
		members := groups[key]

		services := make([]Service, 0, len(members))
		for _, state := range members {
			if svc := m.buildService(store, state); svc != nil {
				services = append(services, *svc)
			}
		}
		if len(services) == 0 {
			continue
		}

		first := members[0]
		name := first.FriendlyName()
		var roomID *uuid.UUID
		if areaID := resolveAreaID(store, first.EntityID); areaID != "" {
			id := DeterministicID(areaID)
			roomID = &id
		}
		if dev, ok := store.Device(key); ok {
			if dn := dev.DisplayName(); dn != "" {
				name = dn
			}
		}

		accessories = append(accessories, Accessory{
			ID:        DeterministicID(key),
			Name:      name,
			RoomID:    roomID,
			Services:  services,
			Reachable: first.State != "unavailable",
		})
	}

	sort.Slice(accessories, func(i, j int) bool { return accessories[i].Name < accessories[j].Name })
	return accessories
}

// resolveAreaID picks the entity-level registry area when present,
// else the owning device's area.
func resolveAreaID(store *snapshot.Store, entityID string) string {
	entry, ok := store.Entry(entityID)
	if !ok {
		return ""
	}
	if entry.AreaID != "" {
		return entry.AreaID
	}
	if entry.DeviceID != "" {
		if dev, ok := store.Device(entry.DeviceID); ok {
			return dev.AreaID
		}
	}
	return ""
}

// buildService maps one entity to a service, populating only the
// characteristic ids whose backing capability is present.
func (m *Mapper) buildService(store *snapshot.Store, state *hass.EntityState) *Service {
	domain := state.Domain()
	svcType, ok := serviceType(domain, state.DeviceClass())
	if !ok {
		return nil
	}

	entityID := state.EntityID
	chars := make(map[string]uuid.UUID)
	add := func(cap string) {
		chars[cap] = CharacteristicID(entityID, cap)
	}

	if hasPowerState(state) {
		add(CapPower)
	}

	svc := &Service{
		ID:              DeterministicID(entityID),
		Name:            state.FriendlyName(),
		Type:            svcType,
		Reachable:       state.State != "unavailable",
		Characteristics: chars,
	}
	if areaID := resolveAreaID(store, entityID); areaID != "" {
		id := DeterministicID(areaID)
		svc.RoomID = &id
	}

	// Light capabilities, keyed off supported_color_modes.
	if state.SupportsBrightness() {
		add(CapBrightness)
	}
	if state.SupportsColor() {
		add(CapHue)
		add(CapSaturation)
	}
	if state.SupportsColorTemp() {
		add(CapColorTemp)
		if k, ok := state.MaxColorTempKelvin(); ok && k > 0 {
			svc.ColorTempMinMireds = 1_000_000 / k
		}
		if k, ok := state.MinColorTempKelvin(); ok && k > 0 {
			svc.ColorTempMaxMireds = 1_000_000 / k
		}
	}
	svc.NeedsColorModeSwitch = state.NeedsColorModeSwitch()

	// Climate.
	if _, ok := state.CurrentTemperature(); ok {
		add(CapCurrentTemp)
	}
	if _, ok := state.TargetTemperature(); ok {
		add(CapTargetTemp)
	}
	if state.HVACAction() != "" {
		add(CapHVACAction)
	}
	if domain == "climate" {
		add(CapHVACMode)
		svc.HVACModes = state.HVACModes()
	}
	if _, ok := state.TargetTempHigh(); ok {
		add(CapTargetTempHigh)
	}
	if _, ok := state.TargetTempLow(); ok {
		add(CapTargetTempLow)
	}

	// Lock.
	if domain == "lock" {
		add(CapLockState)
		add(CapLockTarget)
	}

	// Cover. The position id always exists for covers; a target only
	// when the cover accepts position or tilt-position writes. Tilt
	// ids are suppressed for tilt-only covers, which reuse position.
	if domain == "cover" {
		add(CapPosition)
		features := state.SupportedFeatures()
		if features&coverSetPosition != 0 || features&coverSetTiltPosition != 0 {
			add(CapTargetPosition)
		}
		if _, ok := state.CurrentTiltPosition(); ok && !isTiltOnlyCover(state) {
			add(CapTilt)
			add(CapTargetTilt)
		}
	}

	// Garage doors get door-state semantics on top of cover ids.
	if state.DeviceClass() == "garage" {
		add(CapDoorState)
		add(CapTargetDoor)
	}

	// Humidity readings come from humidity sensors and climate units.
	if state.DeviceClass() == "humidity" {
		add(CapHumidity)
	} else if domain == "climate" {
		if _, ok := state.CurrentHumidity(); ok {
			add(CapHumidity)
		}
	}

	// Fan.
	if domain == "fan" && state.SupportsPercentage() {
		add(CapSpeed)
	}
	if _, ok := state.Direction(); ok {
		add(CapDirection)
	}
	if _, ok := state.SwingMode(); ok {
		add(CapSwingMode)
	} else if state.IsOscillating() {
		add(CapOscillating)
	}

	// Humidifier.
	if _, ok := state.HumidifierAction(); ok {
		add(CapHumAction)
	}
	if domain == "humidifier" {
		add(CapHumMode)
	}
	if _, ok := state.TargetHumidity(); ok {
		add(CapTargetHumidity)
	}

	// Valves and climate units expose an active toggle.
	if domain == "valve" || domain == "climate" {
		add(CapActive)
	}

	// Alarm panel.
	if domain == "alarm_control_panel" {
		add(CapAlarmState)
		add(CapAlarmTarget)
		svc.AlarmModes = state.AlarmSupportedModes()
		svc.AlarmRequiresCode = state.CodeArmRequired()
	}

	return svc
}

func buildScenes(store *snapshot.Store, states []hass.EntityState) []Scene {
	var scenes []Scene
	for i := range states {
		state := &states[i]
		if state.Domain() != "scene" {
			continue
		}
		scenes = append(scenes, Scene{
			ID:      DeterministicID(state.EntityID),
			Name:    state.FriendlyName(),
			Actions: sceneActions(store, state.EntityID),
		})
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Name < scenes[j].Name })
	return scenes
}

// sceneActions derives target characteristic values from the scene's
// configuration. Scenes without a fetched config get no actions.
func sceneActions(store *snapshot.Store, sceneEntityID string) []SceneAction {
	cfg, ok := store.SceneConfig(sceneEntityID)
	if !ok || cfg == nil {
		return nil
	}

	targets := make([]string, 0, len(cfg.Entities))
	for entityID := range cfg.Entities {
		targets = append(targets, entityID)
	}
	sort.Strings(targets)

	var actions []SceneAction
	for _, entityID := range targets {
		attrs := cfg.Entities[entityID]
		if stateStr, ok := attrs.String("state"); ok {
			actions = append(actions, SceneAction{
				CharacteristicID: CharacteristicID(entityID, CapPower),
				Value:            hass.BoolValue(stateStr == "on"),
			})
		}
		if raw, ok := attrs.Int("brightness"); ok {
			pct := (raw*100 + 127) / 255
			actions = append(actions, SceneAction{
				CharacteristicID: CharacteristicID(entityID, CapBrightness),
				Value:            hass.NumberValue(float64(pct)),
			})
		}
	}
	return actions
}

func buildCameras(states []hass.EntityState) []Camera {
	var cameras []Camera
	for i := range states {
		state := &states[i]
		if state.Domain() != "camera" {
			continue
		}
		cameras = append(cameras, Camera{
			ID:       DeterministicID(state.EntityID),
			Name:     state.FriendlyName(),
			EntityID: state.EntityID,
		})
	}
	sort.Slice(cameras, func(i, j int) bool { return cameras[i].Name < cameras[j].Name })
	return cameras
}
