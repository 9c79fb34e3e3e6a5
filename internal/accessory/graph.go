package accessory

import (
	"github.com/google/uuid"
	"github.com/nickustinov/itsyhome-bridge/internal/bridges/hass"
)

// Graph is the derived accessory model: a plain, serializable
// structure consumed by the presentation layer.
type Graph struct {
	Rooms       []Room      `json:"rooms"`
	Accessories []Accessory `json:"accessories"`
	Scenes      []Scene     `json:"scenes"`
	Cameras     []Camera    `json:"cameras"`
}

// Room is one area, id-stable across sessions.
type Room struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Accessory groups the services of one physical device, or wraps a
// single ungrouped entity.
type Accessory struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	RoomID    *uuid.UUID `json:"room_id,omitempty"`
	Services  []Service  `json:"services"`
	Reachable bool       `json:"reachable"`
}

// Service is the normalized representation of one entity.
//
// Characteristics is sparse: a capability name is present iff the
// entity currently supports that capability. Absent support means
// absent key, never a placeholder.
type Service struct {
	ID              uuid.UUID            `json:"id"`
	Name            string               `json:"name"`
	Type            string               `json:"type"`
	RoomID          *uuid.UUID           `json:"room_id,omitempty"`
	Reachable       bool                 `json:"reachable"`
	Characteristics map[string]uuid.UUID `json:"characteristics"`

	// Light metadata.
	ColorTempMinMireds   int  `json:"color_temp_min_mireds,omitempty"`
	ColorTempMaxMireds   int  `json:"color_temp_max_mireds,omitempty"`
	NeedsColorModeSwitch bool `json:"needs_color_mode_switch,omitempty"`

	// Climate metadata.
	HVACModes []string `json:"hvac_modes,omitempty"`

	// Alarm metadata.
	AlarmModes        []string `json:"alarm_modes,omitempty"`
	AlarmRequiresCode bool     `json:"alarm_requires_code,omitempty"`
}

// SceneAction is one target characteristic value a scene applies.
type SceneAction struct {
	CharacteristicID uuid.UUID  `json:"characteristic_id"`
	Value            hass.Value `json:"value"`
}

// Scene is one activatable scene entity.
type Scene struct {
	ID      uuid.UUID     `json:"id"`
	Name    string        `json:"name"`
	Actions []SceneAction `json:"actions"`
}

// Camera is one camera entity.
type Camera struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	EntityID string    `json:"entity_id"`
}
