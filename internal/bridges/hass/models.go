package hass

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// EntityState is one entity's current state as reported by the hub.
type EntityState struct {
	EntityID    string     `json:"entity_id"`
	State       string     `json:"state"`
	Attributes  Attributes `json:"attributes"`
	LastChanged *time.Time `json:"last_changed,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	Context     *Context   `json:"context,omitempty"`
}

// Context identifies the origin of a state change or event.
type Context struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// Domain returns the entity domain, the part before the first dot.
// "light.kitchen" has domain "light".
func (s *EntityState) Domain() string {
	if i := strings.IndexByte(s.EntityID, '.'); i >= 0 {
		return s.EntityID[:i]
	}
	return s.EntityID
}

// ObjectID returns the part of the entity id after the first dot.
func (s *EntityState) ObjectID() string {
	if i := strings.IndexByte(s.EntityID, '.'); i >= 0 {
		return s.EntityID[i+1:]
	}
	return ""
}

// FriendlyName returns the friendly_name attribute, falling back to
// the object id with underscores replaced by spaces and each word
// capitalized ("kitchen_ceiling" becomes "Kitchen Ceiling").
func (s *EntityState) FriendlyName() string {
	if name, ok := s.Attributes.String("friendly_name"); ok && name != "" {
		return name
	}
	words := strings.Split(s.ObjectID(), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// DeviceClass returns the device_class attribute, or "".
func (s *EntityState) DeviceClass() string {
	dc, _ := s.Attributes.String("device_class")
	return dc
}

// SupportedFeatures returns the supported_features bitmask, or 0.
func (s *EntityState) SupportedFeatures() int {
	f, _ := s.Attributes.Int("supported_features")
	return f
}

// IsOn reports whether the state string is "on".
func (s *EntityState) IsOn() bool {
	return s.State == "on"
}

// Unavailable reports whether the entity is unavailable or unknown.
func (s *EntityState) Unavailable() bool {
	return s.State == "unavailable" || s.State == "unknown"
}

// Light attribute accessors.

// Brightness returns the raw 0-255 brightness attribute.
func (s *EntityState) Brightness() (int, bool) {
	return s.Attributes.Int("brightness")
}

// BrightnessPercent returns brightness scaled to 0-100, rounded.
func (s *EntityState) BrightnessPercent() (int, bool) {
	b, ok := s.Brightness()
	if !ok {
		return 0, false
	}
	return int(math.Round(float64(b) / 255.0 * 100.0)), true
}

// ColorTempKelvin returns the color_temp_kelvin attribute.
func (s *EntityState) ColorTempKelvin() (int, bool) {
	return s.Attributes.Int("color_temp_kelvin")
}

// ColorTempMireds converts color_temp_kelvin to mireds (1,000,000 / K).
func (s *EntityState) ColorTempMireds() (int, bool) {
	k, ok := s.ColorTempKelvin()
	if !ok || k <= 0 {
		return 0, false
	}
	return 1_000_000 / k, true
}

// HSColor returns the hs_color attribute pair (hue 0-360, saturation 0-100).
func (s *EntityState) HSColor() (hue, sat float64, ok bool) {
	hs, ok := s.Attributes.FloatSlice("hs_color")
	if !ok || len(hs) != 2 {
		return 0, 0, false
	}
	return hs[0], hs[1], true
}

// SupportedColorModes returns the supported_color_modes attribute, or nil.
func (s *EntityState) SupportedColorModes() []string {
	modes, _ := s.Attributes.StringSlice("supported_color_modes")
	return modes
}

// colorOnlyModes are the color modes that carry hue/saturation.
var colorModes = map[string]bool{
	"hs": true, "xy": true, "rgb": true, "rgbw": true, "rgbww": true,
}

// SupportsColor reports whether any supported color mode carries
// hue and saturation.
func (s *EntityState) SupportsColor() bool {
	for _, m := range s.SupportedColorModes() {
		if colorModes[m] {
			return true
		}
	}
	return false
}

// SupportsColorTemp reports whether the light accepts a color
// temperature write. The rgbww mode includes tunable whites.
func (s *EntityState) SupportsColorTemp() bool {
	for _, m := range s.SupportedColorModes() {
		if m == "color_temp" || m == "rgbww" {
			return true
		}
	}
	return false
}

// SupportsBrightness reports whether the light is dimmable: any color
// mode other than exactly ["onoff"].
func (s *EntityState) SupportsBrightness() bool {
	modes := s.SupportedColorModes()
	if len(modes) == 0 {
		return false
	}
	if len(modes) == 1 && modes[0] == "onoff" {
		return false
	}
	return true
}

// NeedsColorModeSwitch reports whether the light has both a color-only
// mode and a color-temperature mode, so writes must pick one.
func (s *EntityState) NeedsColorModeSwitch() bool {
	var hasColorOnly, hasColorTemp bool
	for _, m := range s.SupportedColorModes() {
		switch m {
		case "hs", "xy", "rgb":
			hasColorOnly = true
		case "color_temp":
			hasColorTemp = true
		}
	}
	return hasColorOnly && hasColorTemp
}

// Climate attribute accessors.

// CurrentTemperature returns the current_temperature attribute.
func (s *EntityState) CurrentTemperature() (float64, bool) {
	return s.Attributes.Float("current_temperature")
}

// TargetTemperature returns the temperature attribute.
func (s *EntityState) TargetTemperature() (float64, bool) {
	return s.Attributes.Float("temperature")
}

// TargetTempLow returns the target_temp_low attribute.
func (s *EntityState) TargetTempLow() (float64, bool) {
	return s.Attributes.Float("target_temp_low")
}

// TargetTempHigh returns the target_temp_high attribute.
func (s *EntityState) TargetTempHigh() (float64, bool) {
	return s.Attributes.Float("target_temp_high")
}

// HVACAction returns the hvac_action attribute, or "".
func (s *EntityState) HVACAction() string {
	a, _ := s.Attributes.String("hvac_action")
	return a
}

// HVACModes returns the hvac_modes attribute, or nil.
func (s *EntityState) HVACModes() []string {
	modes, _ := s.Attributes.StringSlice("hvac_modes")
	return modes
}

// CurrentHumidity returns the current_humidity attribute.
func (s *EntityState) CurrentHumidity() (float64, bool) {
	return s.Attributes.Float("current_humidity")
}

// SwingMode returns the swing_mode attribute.
func (s *EntityState) SwingMode() (string, bool) {
	return s.Attributes.String("swing_mode")
}

// MinColorTempKelvin returns the min_color_temp_kelvin attribute.
func (s *EntityState) MinColorTempKelvin() (int, bool) {
	return s.Attributes.Int("min_color_temp_kelvin")
}

// MaxColorTempKelvin returns the max_color_temp_kelvin attribute.
func (s *EntityState) MaxColorTempKelvin() (int, bool) {
	return s.Attributes.Int("max_color_temp_kelvin")
}

// Cover attribute accessors.

// CurrentPosition returns the current_position attribute (0-100).
func (s *EntityState) CurrentPosition() (int, bool) {
	return s.Attributes.Int("current_position")
}

// CurrentTiltPosition returns the current_tilt_position attribute (0-100).
func (s *EntityState) CurrentTiltPosition() (int, bool) {
	return s.Attributes.Int("current_tilt_position")
}

// Fan attribute accessors.

// Percentage returns the percentage attribute (0-100 fan speed).
func (s *EntityState) Percentage() (int, bool) {
	return s.Attributes.Int("percentage")
}

// IsOscillating returns the oscillating attribute, defaulting to false.
func (s *EntityState) IsOscillating() bool {
	b, _ := s.Attributes.Bool("oscillating")
	return b
}

// Direction returns the direction attribute (forward or reverse).
func (s *EntityState) Direction() (string, bool) {
	return s.Attributes.String("direction")
}

// SupportsPercentage reports whether the fan accepts a speed
// percentage write (SET_PERCENTAGE is feature bit 1).
func (s *EntityState) SupportsPercentage() bool {
	return s.SupportedFeatures()&1 != 0
}

// Alarm attribute accessors.

// CodeArmRequired reports whether arming needs a code. Absent defaults
// to true, the safer assumption.
func (s *EntityState) CodeArmRequired() bool {
	b, ok := s.Attributes.Bool("code_arm_required")
	if !ok {
		return true
	}
	return b
}

// AlarmSupportedModes derives arming modes from the supported_features
// bitmask: ARM_HOME=1, ARM_AWAY=2, ARM_NIGHT=4, ARM_CUSTOM_BYPASS=16,
// ARM_VACATION=32. Disarmed is always available.
func (s *EntityState) AlarmSupportedModes() []string {
	modes := []string{"disarmed"}
	features := s.SupportedFeatures()
	if features&1 != 0 {
		modes = append(modes, "armed_home")
	}
	if features&2 != 0 {
		modes = append(modes, "armed_away")
	}
	if features&4 != 0 {
		modes = append(modes, "armed_night")
	}
	if features&16 != 0 {
		modes = append(modes, "armed_custom_bypass")
	}
	if features&32 != 0 {
		modes = append(modes, "armed_vacation")
	}
	return modes
}

// Humidifier attribute accessors.

// TargetHumidity returns the humidity attribute (target, 0-100).
func (s *EntityState) TargetHumidity() (int, bool) {
	return s.Attributes.Int("humidity")
}

// HumidifierAction returns the action attribute (humidifying, drying,
// idle, off).
func (s *EntityState) HumidifierAction() (string, bool) {
	return s.Attributes.String("action")
}

// Event is a hub event delivered over an event subscription.
type Event struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	TimeFired *time.Time      `json:"time_fired,omitempty"`
	Origin    string          `json:"origin,omitempty"`
	Context   *Context        `json:"context,omitempty"`
}

// DecodeStateChange decodes the event payload as a state_changed event.
func (e *Event) DecodeStateChange() (*StateChange, error) {
	if e.EventType != "state_changed" {
		return nil, fmt.Errorf("%w: event type %q is not state_changed", ErrInvalidResponse, e.EventType)
	}
	var sc StateChange
	if err := json.Unmarshal(e.Data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &sc, nil
}

// StateChange is a decoded state_changed event.
//
// Old is nil for a newly appeared entity; New is nil for a removed one.
type StateChange struct {
	EntityID string       `json:"entity_id"`
	Old      *EntityState `json:"old_state"`
	New      *EntityState `json:"new_state"`
}

// Area is one entry from the area registry.
type Area struct {
	AreaID  string   `json:"area_id"`
	Name    string   `json:"name"`
	FloorID string   `json:"floor_id,omitempty"`
	Labels  []string `json:"labels,omitempty"`
}

// Device is one entry from the device registry.
type Device struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	NameByUser   string   `json:"name_by_user,omitempty"`
	AreaID       string   `json:"area_id,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	ViaDeviceID  string   `json:"via_device_id,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	DisabledBy   string   `json:"disabled_by,omitempty"`
}

// DisplayName returns the user-assigned device name if set, else the
// integration-provided name.
func (d *Device) DisplayName() string {
	if d.NameByUser != "" {
		return d.NameByUser
	}
	return d.Name
}

// Disabled reports whether the device has been disabled.
func (d *Device) Disabled() bool {
	return d.DisabledBy != ""
}

// RegistryEntry is one entry from the entity registry.
type RegistryEntry struct {
	EntityID   string   `json:"entity_id"`
	UniqueID   string   `json:"unique_id,omitempty"`
	DeviceID   string   `json:"device_id,omitempty"`
	AreaID     string   `json:"area_id,omitempty"`
	Name       string   `json:"name,omitempty"`
	Platform   string   `json:"platform,omitempty"`
	DisabledBy string   `json:"disabled_by,omitempty"`
	HiddenBy   string   `json:"hidden_by,omitempty"`
	Labels     []string `json:"labels,omitempty"`
}

// Disabled reports whether the entity has been disabled in the registry.
func (r *RegistryEntry) Disabled() bool {
	return r.DisabledBy != ""
}

// Hidden reports whether the entity has been hidden in the registry.
func (r *RegistryEntry) Hidden() bool {
	return r.HiddenBy != ""
}
