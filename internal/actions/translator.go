package actions

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nickustinov/itsyhome-bridge/internal/accessory"
	"github.com/nickustinov/itsyhome-bridge/internal/bridges/hass"
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

// ServiceCaller dispatches a hub service call. *hass.Client satisfies
// it.
type ServiceCaller interface {
	CallService(ctx context.Context, domain, service string, data map[string]any, entityID string) error
}

// Translator turns characteristic writes into hub service calls.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Translator struct {
	mapper *accessory.Mapper
	caller ServiceCaller
	logger Logger

	// Hue and saturation writes arrive independently but must be sent
	// to the hub as one hs_color pair. The pending half of the pair is
	// held per entity until a light state change confirms the color.
	colorMu           sync.Mutex
	pendingHue        map[string]float64
	pendingSaturation map[string]float64
}

// NewTranslator creates a Translator over the given mapper and caller.
func NewTranslator(mapper *accessory.Mapper, caller ServiceCaller, logger Logger) *Translator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Translator{
		mapper:            mapper,
		caller:            caller,
		logger:            logger,
		pendingHue:        make(map[string]float64),
		pendingSaturation: make(map[string]float64),
	}
}

// ActivateScene triggers the scene behind the given id.
func (t *Translator) ActivateScene(ctx context.Context, id uuid.UUID) error {
	entityID, ok := t.mapper.EntityForService(id)
	if !ok || entityDomain(entityID) != "scene" {
		return ErrUnknownScene
	}
	t.logger.Info("activating scene", "entity_id", entityID)
	return t.caller.CallService(ctx, "scene", "turn_on", nil, entityID)
}

// WriteCharacteristic resolves a characteristic id to its entity and
// dispatches the matching service call for the entity's domain.
//
// Parameters:
//   - ctx: Context for cancellation
//   - id: Characteristic identifier
//   - value: New value, typed per the characteristic
//
// Returns:
//   - error: ErrUnknownCharacteristic, ErrUnsupportedValue,
//     ErrCodeRequired, or a service call failure
func (t *Translator) WriteCharacteristic(ctx context.Context, id uuid.UUID, value hass.Value) error {
	entityID, ok := t.mapper.EntityForCharacteristic(id)
	if !ok {
		return ErrUnknownCharacteristic
	}
	cap := t.mapper.CharacteristicName(id, entityID)

	t.logger.Debug("writing characteristic", "entity_id", entityID, "capability", cap)

	switch entityDomain(entityID) {
	case "light":
		return t.writeLight(ctx, entityID, cap, value)
	case "switch":
		return t.writeSwitch(ctx, entityID, value)
	case "climate":
		return t.writeClimate(ctx, entityID, cap, value)
	case "cover":
		return t.writeCover(ctx, entityID, cap, value)
	case "lock":
		return t.writeLock(ctx, entityID, value)
	case "fan":
		return t.writeFan(ctx, entityID, cap, value)
	case "humidifier":
		return t.writeHumidifier(ctx, entityID, cap, value)
	case "valve":
		return t.writeValve(ctx, entityID, cap, value)
	case "alarm_control_panel":
		return t.writeAlarm(ctx, entityID, value)
	default:
		t.logger.Warn("unsupported domain for write", "entity_id", entityID)
		return nil
	}
}

// ObserveStateChange clears the pending color pair once the hub
// confirms a light's new state. Must be fed every state change.
func (t *Translator) ObserveStateChange(change hass.StateChange) {
	if change.New == nil || change.New.Domain() != "light" {
		return
	}
	t.colorMu.Lock()
	delete(t.pendingHue, change.EntityID)
	delete(t.pendingSaturation, change.EntityID)
	t.colorMu.Unlock()
}

func (t *Translator) writeLight(ctx context.Context, entityID, cap string, value hass.Value) error {
	switch cap {
	case accessory.CapPower:
		on, ok := value.Bool()
		if !ok {
			return ErrUnsupportedValue
		}
		return t.caller.CallService(ctx, "light", onOffService(on), nil, entityID)

	case accessory.CapBrightness:
		pct, ok := value.Int()
		if !ok {
			return ErrUnsupportedValue
		}
		data := map[string]any{"brightness": int(float64(pct) * 2.55)}
		return t.caller.CallService(ctx, "light", "turn_on", data, entityID)

	case accessory.CapHue:
		hue, ok := value.Float()
		if !ok {
			return ErrUnsupportedValue
		}
		t.colorMu.Lock()
		t.pendingHue[entityID] = hue
		sat, pending := t.pendingSaturation[entityID]
		t.colorMu.Unlock()
		if !pending {
			sat = t.cachedFloat(entityID, accessory.CapSaturation, 100.0)
		}
		data := map[string]any{"hs_color": []float64{hue, sat}}
		return t.caller.CallService(ctx, "light", "turn_on", data, entityID)

	case accessory.CapSaturation:
		sat, ok := value.Float()
		if !ok {
			return ErrUnsupportedValue
		}
		t.colorMu.Lock()
		t.pendingSaturation[entityID] = sat
		hue, pending := t.pendingHue[entityID]
		t.colorMu.Unlock()
		if !pending {
			hue = t.cachedFloat(entityID, accessory.CapHue, 0.0)
		}
		data := map[string]any{"hs_color": []float64{hue, sat}}
		return t.caller.CallService(ctx, "light", "turn_on", data, entityID)

	case accessory.CapColorTemp:
		mireds, ok := value.Int()
		if !ok || mireds <= 0 {
			return ErrUnsupportedValue
		}
		data := map[string]any{"color_temp_kelvin": 1_000_000 / mireds}
		return t.caller.CallService(ctx, "light", "turn_on", data, entityID)

	default:
		t.logger.Warn("unknown light capability", "entity_id", entityID, "capability", cap)
		return nil
	}
}

func (t *Translator) writeSwitch(ctx context.Context, entityID string, value hass.Value) error {
	on, ok := value.Bool()
	if !ok {
		return ErrUnsupportedValue
	}
	return t.caller.CallService(ctx, "switch", onOffService(on), nil, entityID)
}

func (t *Translator) writeLock(ctx context.Context, entityID string, value hass.Value) error {
	target, ok := value.Int()
	if !ok {
		return ErrUnsupportedValue
	}
	service := "unlock"
	if target == 1 {
		service = "lock"
	}
	return t.caller.CallService(ctx, "lock", service, nil, entityID)
}

func (t *Translator) writeClimate(ctx context.Context, entityID, cap string, value hass.Value) error {
	switch cap {
	case accessory.CapHVACMode:
		available := t.mapper.HVACModes(entityID)

		var mode string
		if s, ok := value.String(); ok {
			if !containsString(available, s) {
				t.logger.Warn("hvac mode not available", "entity_id", entityID, "mode", s)
				return nil
			}
			mode = s
		} else if code, ok := value.Int(); ok {
			switch code {
			case 0:
				mode = "off"
			case 1:
				if !containsString(available, "heat") {
					t.logger.Warn("heat mode not available", "entity_id", entityID)
					return nil
				}
				mode = "heat"
			case 2:
				if !containsString(available, "cool") {
					t.logger.Warn("cool mode not available", "entity_id", entityID)
					return nil
				}
				mode = "cool"
			case 3:
				if containsString(available, "heat_cool") {
					mode = "heat_cool"
				} else if containsString(available, "auto") {
					mode = "auto"
				} else {
					t.logger.Warn("no auto mode available", "entity_id", entityID)
					return nil
				}
			default:
				mode = "off"
			}
		} else {
			return ErrUnsupportedValue
		}

		data := map[string]any{"hvac_mode": mode}
		return t.caller.CallService(ctx, "climate", "set_hvac_mode", data, entityID)

	case accessory.CapTargetTemp:
		temp, ok := value.Float()
		if !ok {
			return ErrUnsupportedValue
		}
		data := map[string]any{"temperature": temp}
		return t.caller.CallService(ctx, "climate", "set_temperature", data, entityID)

	case accessory.CapTargetTempHigh, accessory.CapTargetTempLow:
		temp, ok := value.Float()
		if !ok {
			return ErrUnsupportedValue
		}
		// Dual setpoint units reject single-ended writes, so the
		// unchanged end of the range is sent along from cache.
		high := t.cachedFloat(entityID, accessory.CapTargetTempHigh, 24.0)
		low := t.cachedFloat(entityID, accessory.CapTargetTempLow, 18.0)
		if cap == accessory.CapTargetTempHigh {
			high = temp
		} else {
			low = temp
		}
		data := map[string]any{"target_temp_low": low, "target_temp_high": high}
		return t.caller.CallService(ctx, "climate", "set_temperature", data, entityID)

	case accessory.CapSwingMode:
		code, ok := value.Int()
		if !ok {
			return ErrUnsupportedValue
		}
		mode := "off"
		if code == 1 {
			mode = "auto"
		}
		data := map[string]any{"swing_mode": mode}
		return t.caller.CallService(ctx, "climate", "set_swing_mode", data, entityID)

	default:
		t.logger.Warn("unknown climate capability", "entity_id", entityID, "capability", cap)
		return nil
	}
}

func (t *Translator) writeCover(ctx context.Context, entityID, cap string, value hass.Value) error {
	features := t.mapper.CoverFeatures(entityID)
	tiltOnly := features&128 != 0 && features&4 == 0 && features&3 == 0

	switch cap {
	case accessory.CapTilt, accessory.CapTargetTilt:
		tilt, ok := value.Int()
		if !ok {
			return ErrUnsupportedValue
		}
		if features&128 == 0 {
			return nil
		}
		data := map[string]any{"tilt_position": clamp(tilt, 0, 100)}
		return t.caller.CallService(ctx, "cover", "set_cover_tilt_position", data, entityID)

	case accessory.CapTargetDoor:
		target, ok := value.Int()
		if !ok {
			return ErrUnsupportedValue
		}
		service := "close_cover"
		if target == 0 {
			service = "open_cover"
		}
		return t.caller.CallService(ctx, "cover", service, nil, entityID)

	case accessory.CapPosition, accessory.CapTargetPosition:
		position, ok := value.Int()
		if !ok {
			return ErrUnsupportedValue
		}

		// -1 is the stop sentinel.
		if position == -1 {
			if tiltOnly && features&64 != 0 {
				return t.caller.CallService(ctx, "cover", "stop_cover_tilt", nil, entityID)
			}
			if features&8 != 0 {
				return t.caller.CallService(ctx, "cover", "stop_cover", nil, entityID)
			}
			return nil
		}

		if tiltOnly {
			if features&128 != 0 {
				data := map[string]any{"tilt_position": position}
				return t.caller.CallService(ctx, "cover", "set_cover_tilt_position", data, entityID)
			}
			service := "close_cover_tilt"
			if position >= 50 {
				service = "open_cover_tilt"
			}
			return t.caller.CallService(ctx, "cover", service, nil, entityID)
		}
		if features&4 != 0 {
			data := map[string]any{"position": position}
			return t.caller.CallService(ctx, "cover", "set_cover_position", data, entityID)
		}
		if features&3 != 0 {
			service := "close_cover"
			if position >= 50 {
				service = "open_cover"
			}
			return t.caller.CallService(ctx, "cover", service, nil, entityID)
		}
		return nil

	default:
		t.logger.Warn("unknown cover capability", "entity_id", entityID, "capability", cap)
		return nil
	}
}

func (t *Translator) writeFan(ctx context.Context, entityID, cap string, value hass.Value) error {
	switch cap {
	case accessory.CapPower:
		on, ok := value.Bool()
		if !ok {
			return ErrUnsupportedValue
		}
		return t.caller.CallService(ctx, "fan", onOffService(on), nil, entityID)

	case accessory.CapSpeed:
		speed, ok := value.Int()
		if !ok {
			return ErrUnsupportedValue
		}
		data := map[string]any{"percentage": speed}
		return t.caller.CallService(ctx, "fan", "set_percentage", data, entityID)

	case accessory.CapOscillating, accessory.CapSwingMode:
		code, ok := value.Int()
		if !ok {
			return ErrUnsupportedValue
		}
		data := map[string]any{"oscillating": code == 1}
		return t.caller.CallService(ctx, "fan", "oscillate", data, entityID)

	case accessory.CapDirection:
		code, ok := value.Int()
		if !ok {
			return ErrUnsupportedValue
		}
		direction := "reverse"
		if code == 0 {
			direction = "forward"
		}
		data := map[string]any{"direction": direction}
		return t.caller.CallService(ctx, "fan", "set_direction", data, entityID)

	default:
		t.logger.Warn("unknown fan capability", "entity_id", entityID, "capability", cap)
		return nil
	}
}

func (t *Translator) writeHumidifier(ctx context.Context, entityID, cap string, value hass.Value) error {
	switch cap {
	case accessory.CapPower:
		on, ok := value.Bool()
		if !ok {
			return ErrUnsupportedValue
		}
		return t.caller.CallService(ctx, "humidifier", onOffService(on), nil, entityID)

	case accessory.CapTargetHumidity:
		humidity, ok := value.Int()
		if !ok {
			return ErrUnsupportedValue
		}
		data := map[string]any{"humidity": humidity}
		return t.caller.CallService(ctx, "humidifier", "set_humidity", data, entityID)

	case accessory.CapHumMode:
		mode, ok := value.String()
		if !ok {
			return ErrUnsupportedValue
		}
		data := map[string]any{"mode": mode}
		return t.caller.CallService(ctx, "humidifier", "set_mode", data, entityID)

	default:
		t.logger.Warn("unknown humidifier capability", "entity_id", entityID, "capability", cap)
		return nil
	}
}

func (t *Translator) writeValve(ctx context.Context, entityID, cap string, value hass.Value) error {
	switch cap {
	case accessory.CapActive:
		active, ok := value.Bool()
		if !ok {
			if code, intOK := value.Int(); intOK {
				active, ok = code == 1, true
			}
		}
		if !ok {
			return ErrUnsupportedValue
		}
		service := "close_valve"
		if active {
			service = "open_valve"
		}
		return t.caller.CallService(ctx, "valve", service, nil, entityID)

	case accessory.CapPosition, accessory.CapTargetPosition:
		position, ok := value.Int()
		if !ok {
			return ErrUnsupportedValue
		}
		if position == -1 {
			return t.caller.CallService(ctx, "valve", "stop_valve", nil, entityID)
		}
		data := map[string]any{"position": clamp(position, 0, 100)}
		return t.caller.CallService(ctx, "valve", "set_valve_position", data, entityID)

	default:
		t.logger.Warn("unknown valve capability", "entity_id", entityID, "capability", cap)
		return nil
	}
}

// armRequest is the structured alarm write form carrying a mode and an
// optional code.
type armRequest struct {
	Mode string `json:"mode"`
	Code string `json:"code"`
}

func (t *Translator) writeAlarm(ctx context.Context, entityID string, value hass.Value) error {
	var req armRequest

	if s, ok := value.String(); ok {
		req.Mode = s
	} else if code, ok := value.Int(); ok {
		switch code {
		case 0:
			req.Mode = "armed_home"
		case 1:
			req.Mode = "armed_away"
		case 2:
			req.Mode = "armed_night"
		case 3:
			req.Mode = "disarmed"
		default:
			return nil
		}
	} else if value.Kind() == hass.KindRaw {
		raw, err := json.Marshal(value)
		if err != nil {
			return ErrUnsupportedValue
		}
		if err := json.Unmarshal(raw, &req); err != nil || req.Mode == "" {
			return ErrUnsupportedValue
		}
	} else {
		return ErrUnsupportedValue
	}

	service, ok := alarmService(req.Mode)
	if !ok {
		return nil
	}
	if service != "alarm_disarm" && req.Code == "" && t.mapper.AlarmRequiresCode(entityID) {
		return ErrCodeRequired
	}

	var data map[string]any
	if req.Code != "" {
		data = map[string]any{"code": req.Code}
	}
	return t.caller.CallService(ctx, "alarm_control_panel", service, data, entityID)
}

func alarmService(mode string) (string, bool) {
	switch mode {
	case "armed_home":
		return "alarm_arm_home", true
	case "armed_away":
		return "alarm_arm_away", true
	case "armed_night":
		return "alarm_arm_night", true
	case "armed_vacation":
		return "alarm_arm_vacation", true
	case "armed_custom_bypass":
		return "alarm_arm_custom_bypass", true
	case "disarmed":
		return "alarm_disarm", true
	default:
		return "", false
	}
}

// cachedFloat reads the entity's current projected value for a
// capability, falling back when the projection has none.
func (t *Translator) cachedFloat(entityID, cap string, fallback float64) float64 {
	values := t.mapper.Values(entityID)
	if v, ok := values[accessory.CharacteristicID(entityID, cap)]; ok {
		if f, ok := v.Float(); ok {
			return f
		}
	}
	return fallback
}

func entityDomain(entityID string) string {
	domain, _, _ := strings.Cut(entityID, ".")
	return domain
}

func onOffService(on bool) string {
	if on {
		return "turn_on"
	}
	return "turn_off"
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
