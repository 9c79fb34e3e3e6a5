package accessory

import (
	"github.com/google/uuid"
	"github.com/nickustinov/itsyhome-bridge/internal/bridges/hass"
)

// State code tables. Free-form hub state strings map to small fixed
// integers for the presentation layer; unknowns take the documented
// fallback code.

// HVACActionCode maps an hvac_action string: idle/off 0, heating 1,
// cooling 2.
func HVACActionCode(action string) int {
	switch action {
	case "heating":
		return 1
	case "cooling":
		return 2
	default:
		return 0
	}
}

// HVACModeCode maps an hvac mode string: off 0, heat 1, cool 2,
// heat_cool 3, dry 4, fan_only 5, auto 6. Unknown modes map to off.
func HVACModeCode(mode string) int {
	switch mode {
	case "off":
		return 0
	case "heat":
		return 1
	case "cool":
		return 2
	case "heat_cool":
		return 3
	case "dry":
		return 4
	case "fan_only":
		return 5
	case "auto":
		return 6
	default:
		return 0
	}
}

// HVACModeFromCode is the inverse of HVACModeCode for writes.
func HVACModeFromCode(code int) string {
	switch code {
	case 1:
		return "heat"
	case 2:
		return "cool"
	case 3:
		return "heat_cool"
	case 4:
		return "dry"
	case 5:
		return "fan_only"
	case 6:
		return "auto"
	default:
		return "off"
	}
}

// LockStateCode maps a lock state string: unlocked 0, locked 1,
// jammed 2, unknown 3.
func LockStateCode(state string) int {
	switch state {
	case "locked":
		return 1
	case "unlocked":
		return 0
	case "jammed":
		return 2
	default:
		return 3
	}
}

// DoorStateCode maps a door state string: open 0, closed 1, opening 2,
// closing 3, stopped 4.
func DoorStateCode(state string) int {
	switch state {
	case "open":
		return 0
	case "closed":
		return 1
	case "opening":
		return 2
	case "closing":
		return 3
	default:
		return 4
	}
}

// AlarmStateCode maps an alarm state string: armed_home 0, armed_away
// 1, armed_night 2, disarmed 3, triggered 4.
func AlarmStateCode(state string) int {
	switch state {
	case "armed_home":
		return 0
	case "armed_away":
		return 1
	case "armed_night":
		return 2
	case "triggered":
		return 4
	default:
		return 3
	}
}

// AlarmTargetCode maps an alarm state string to its target code.
// Transitional states (arming, pending) report the disarmed target.
func AlarmTargetCode(state string) int {
	switch state {
	case "armed_home":
		return 0
	case "armed_away", "armed_vacation":
		return 1
	case "armed_night":
		return 2
	default:
		return 3
	}
}

// AlarmModeFromTargetCode is the inverse of AlarmTargetCode for writes.
func AlarmModeFromTargetCode(code int) string {
	switch code {
	case 0:
		return "armed_home"
	case 1:
		return "armed_away"
	case 2:
		return "armed_night"
	default:
		return "disarmed"
	}
}

// Values projects an entity's current state onto its characteristic
// ids, applying the fixed conversions per capability.
//
// The projection is pure and recomputed on every call; it holds no
// cache. Unknown entities yield an empty map.
func (m *Mapper) Values(entityID string) map[uuid.UUID]hass.Value {
	m.mu.RLock()
	store := m.store
	m.mu.RUnlock()
	if store == nil {
		return map[uuid.UUID]hass.Value{}
	}

	state, ok := store.State(entityID)
	if !ok {
		return map[uuid.UUID]hass.Value{}
	}

	values := make(map[uuid.UUID]hass.Value)
	set := func(cap string, v hass.Value) {
		values[CharacteristicID(entityID, cap)] = v
	}
	domain := state.Domain()

	if hasPowerState(&state) {
		set(CapPower, hass.BoolValue(state.IsOn()))
	}

	// Light values.
	if pct, ok := state.BrightnessPercent(); ok {
		set(CapBrightness, hass.NumberValue(float64(pct)))
	}
	if hue, sat, ok := state.HSColor(); ok {
		set(CapHue, hass.NumberValue(hue))
		set(CapSaturation, hass.NumberValue(sat))
	}
	if mireds, ok := state.ColorTempMireds(); ok {
		set(CapColorTemp, hass.NumberValue(float64(mireds)))
	}

	// Climate values.
	if temp, ok := state.CurrentTemperature(); ok {
		set(CapCurrentTemp, hass.NumberValue(temp))
	}
	if temp, ok := state.TargetTemperature(); ok {
		set(CapTargetTemp, hass.NumberValue(temp))
	}
	if temp, ok := state.TargetTempHigh(); ok {
		set(CapTargetTempHigh, hass.NumberValue(temp))
	}
	if temp, ok := state.TargetTempLow(); ok {
		set(CapTargetTempLow, hass.NumberValue(temp))
	}
	if domain == "climate" {
		if action := state.HVACAction(); action != "" {
			set(CapHVACAction, hass.NumberValue(float64(HVACActionCode(action))))
		}
		set(CapHVACMode, hass.NumberValue(float64(HVACModeCode(state.State))))
		if swing, ok := state.SwingMode(); ok {
			code := 1
			if swing == "off" {
				code = 0
			}
			set(CapSwingMode, hass.NumberValue(float64(code)))
		}
	}
	if humidity, ok := state.CurrentHumidity(); ok {
		set(CapHumidity, hass.NumberValue(humidity))
	}

	// Lock values.
	if domain == "lock" {
		set(CapLockState, hass.NumberValue(float64(LockStateCode(state.State))))
		target := 0
		if state.State == "locked" {
			target = 1
		}
		set(CapLockTarget, hass.NumberValue(float64(target)))
	}

	// Cover values. Position falls back to tilt for tilt-only covers,
	// then to 100/0 derived from the open/closed state string.
	if pos, ok := state.CurrentPosition(); ok {
		set(CapPosition, hass.NumberValue(float64(pos)))
		set(CapTargetPosition, hass.NumberValue(float64(pos)))
	} else if domain == "cover" {
		if tilt, ok := state.CurrentTiltPosition(); ok && isTiltOnlyCover(&state) {
			set(CapPosition, hass.NumberValue(float64(tilt)))
		} else {
			derived := 0
			if state.State == "open" || state.State == "opening" {
				derived = 100
			}
			set(CapPosition, hass.NumberValue(float64(derived)))
		}
	}
	if tilt, ok := state.CurrentTiltPosition(); ok {
		set(CapTilt, hass.NumberValue(float64(tilt)))
		set(CapTargetTilt, hass.NumberValue(float64(tilt)))
	}

	// Garage door values.
	if state.DeviceClass() == "garage" {
		set(CapDoorState, hass.NumberValue(float64(DoorStateCode(state.State))))
		target := 0
		if state.State == "closed" {
			target = 1
		}
		set(CapTargetDoor, hass.NumberValue(float64(target)))
	}

	// Fan values.
	if pct, ok := state.Percentage(); ok {
		set(CapSpeed, hass.NumberValue(float64(pct)))
	}
	if domain == "fan" {
		osc := 0
		if state.IsOscillating() {
			osc = 1
		}
		set(CapOscillating, hass.NumberValue(float64(osc)))
		if dir, ok := state.Direction(); ok {
			code := 1
			if dir == "forward" {
				code = 0
			}
			set(CapDirection, hass.NumberValue(float64(code)))
		}
	}

	// Alarm values.
	if domain == "alarm_control_panel" {
		set(CapAlarmState, hass.NumberValue(float64(AlarmStateCode(state.State))))
		set(CapAlarmTarget, hass.NumberValue(float64(AlarmTargetCode(state.State))))
	}

	return values
}

// HVACModes returns a climate entity's available hvac modes.
func (m *Mapper) HVACModes(entityID string) []string {
	m.mu.RLock()
	store := m.store
	m.mu.RUnlock()
	if store == nil {
		return nil
	}
	state, ok := store.State(entityID)
	if !ok {
		return nil
	}
	return state.HVACModes()
}

// AlarmRequiresCode reports whether an alarm panel needs a code to
// arm. Unknown entities report true, the safer assumption.
func (m *Mapper) AlarmRequiresCode(entityID string) bool {
	m.mu.RLock()
	store := m.store
	m.mu.RUnlock()
	if store == nil {
		return true
	}
	state, ok := store.State(entityID)
	if !ok {
		return true
	}
	return state.CodeArmRequired()
}

// CoverFeatures returns a cover entity's supported_features bitmask.
func (m *Mapper) CoverFeatures(entityID string) int {
	m.mu.RLock()
	store := m.store
	m.mu.RUnlock()
	if store == nil {
		return 0
	}
	state, ok := store.State(entityID)
	if !ok {
		return 0
	}
	return state.SupportedFeatures()
}
