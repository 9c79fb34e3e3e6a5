package snapshot

import (
	"sort"
	"sync"

	"github.com/nickustinov/itsyhome-bridge/internal/bridges/hass"
)

// Store is the entity snapshot for one connection.
type Store struct {
	mu           sync.RWMutex
	states       map[string]hass.EntityState
	entries      map[string]hass.RegistryEntry
	devices      map[string]hass.Device
	areas        map[string]hass.Area
	sceneConfigs map[string]*hass.SceneConfig
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		states:       make(map[string]hass.EntityState),
		entries:      make(map[string]hass.RegistryEntry),
		devices:      make(map[string]hass.Device),
		areas:        make(map[string]hass.Area),
		sceneConfigs: make(map[string]*hass.SceneConfig),
	}
}

// Load replaces the store contents with the results of a bulk fetch.
func (s *Store) Load(states []hass.EntityState, entries []hass.RegistryEntry, devices []hass.Device, areas []hass.Area, sceneConfigs map[string]*hass.SceneConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states = make(map[string]hass.EntityState, len(states))
	for _, st := range states {
		s.states[st.EntityID] = st
	}

	s.entries = make(map[string]hass.RegistryEntry, len(entries))
	for _, e := range entries {
		s.entries[e.EntityID] = e
	}

	s.devices = make(map[string]hass.Device, len(devices))
	for _, d := range devices {
		s.devices[d.ID] = d
	}

	s.areas = make(map[string]hass.Area, len(areas))
	for _, a := range areas {
		s.areas[a.AreaID] = a
	}

	s.sceneConfigs = make(map[string]*hass.SceneConfig, len(sceneConfigs))
	for id, cfg := range sceneConfigs {
		s.sceneConfigs[id] = cfg
	}
}

// Apply patches the store with one state change.
//
// It reports whether the entity set changed: a removed entity or one
// not seen before means derived structures need a rebuild, a plain
// state update does not.
func (s *Store) Apply(change hass.StateChange) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if change.New == nil {
		if _, existed := s.states[change.EntityID]; existed {
			delete(s.states, change.EntityID)
			return true
		}
		return false
	}

	_, existed := s.states[change.EntityID]
	s.states[change.EntityID] = *change.New
	return !existed
}

// State returns one entity's current state.
func (s *Store) State(entityID string) (hass.EntityState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[entityID]
	return st, ok
}

// States returns every entity state, sorted by entity id for
// deterministic iteration.
func (s *Store) States() []hass.EntityState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]hass.EntityState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// Entry returns the registry entry for an entity.
func (s *Store) Entry(entityID string) (hass.RegistryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entityID]
	return e, ok
}

// Device returns a device registry entry.
func (s *Store) Device(deviceID string) (hass.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[deviceID]
	return d, ok
}

// Area returns an area registry entry.
func (s *Store) Area(areaID string) (hass.Area, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.areas[areaID]
	return a, ok
}

// Areas returns every area, sorted by area id.
func (s *Store) Areas() []hass.Area {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]hass.Area, 0, len(s.areas))
	for _, a := range s.areas {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AreaID < out[j].AreaID })
	return out
}

// SceneConfig returns a scene's configuration by entity id.
func (s *Store) SceneConfig(entityID string) (*hass.SceneConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.sceneConfigs[entityID]
	return cfg, ok
}

// AreaForEntity resolves an entity's area: the entity-level registry
// override wins, else the owning device's area, else none.
func (s *Store) AreaForEntity(entityID string) (hass.Area, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[entityID]
	if !ok {
		return hass.Area{}, false
	}
	if entry.AreaID != "" {
		a, ok := s.areas[entry.AreaID]
		return a, ok
	}
	if entry.DeviceID != "" {
		if dev, ok := s.devices[entry.DeviceID]; ok && dev.AreaID != "" {
			a, ok := s.areas[dev.AreaID]
			return a, ok
		}
	}
	return hass.Area{}, false
}
