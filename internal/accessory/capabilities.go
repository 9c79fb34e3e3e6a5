package accessory

import "github.com/nickustinov/itsyhome-bridge/internal/bridges/hass"

// Capability names. Each maps one optional entity feature to exactly
// one characteristic identifier.
const (
	CapPower          = "power"
	CapBrightness     = "brightness"
	CapHue            = "hue"
	CapSaturation     = "saturation"
	CapColorTemp      = "color_temp"
	CapCurrentTemp    = "current_temp"
	CapTargetTemp     = "target_temp"
	CapHVACAction     = "hvac_action"
	CapHVACMode       = "hvac_mode"
	CapLockState      = "lock_state"
	CapLockTarget     = "lock_target"
	CapPosition       = "position"
	CapTargetPosition = "target_position"
	CapTilt           = "tilt"
	CapTargetTilt     = "target_tilt"
	CapDoorState      = "door_state"
	CapTargetDoor     = "target_door"
	CapSpeed          = "speed"
	CapOscillating    = "oscillating"
	CapDirection      = "direction"
	CapAlarmState     = "alarm_state"
	CapAlarmTarget    = "alarm_target"
	CapTargetTempHigh = "target_temp_high"
	CapTargetTempLow  = "target_temp_low"
	CapHumidity       = "humidity"
	CapTargetHumidity = "target_humidity"
	CapHumAction      = "hum_action"
	CapHumMode        = "hum_mode"
	CapActive         = "active"
	CapSwingMode      = "swing_mode"
)

// capabilityVocabulary is the full set of capability names. Reverse
// indices are built eagerly across this vocabulary for every entity.
var capabilityVocabulary = []string{
	CapPower, CapBrightness, CapHue, CapSaturation, CapColorTemp,
	CapCurrentTemp, CapTargetTemp, CapHVACAction, CapHVACMode,
	CapLockState, CapLockTarget, CapPosition, CapTargetPosition,
	CapTilt, CapTargetTilt, CapDoorState, CapTargetDoor,
	CapSpeed, CapOscillating, CapDirection, CapAlarmState, CapAlarmTarget,
	CapTargetTempHigh, CapTargetTempLow, CapHumidity, CapTargetHumidity,
	CapHumAction, CapHumMode, CapActive, CapSwingMode,
}

// Service types in the normalized accessory model.
const (
	TypeLightbulb              = "lightbulb"
	TypeOutlet                 = "outlet"
	TypeSwitch                 = "switch"
	TypeThermostat             = "thermostat"
	TypeGarageDoorOpener       = "garage_door_opener"
	TypeDoor                   = "door"
	TypeWindow                 = "window"
	TypeWindowCovering         = "window_covering"
	TypeLock                   = "lock"
	TypeFan                    = "fan"
	TypeHumidifierDehumidifier = "humidifier_dehumidifier"
	TypeValve                  = "valve"
	TypeTemperatureSensor      = "temperature_sensor"
	TypeHumiditySensor         = "humidity_sensor"
	TypeSecuritySystem         = "security_system"
)

// supportedDomains are the entity domains the mapper considers at all.
var supportedDomains = map[string]bool{
	"light": true, "switch": true, "climate": true, "cover": true,
	"lock": true, "fan": true, "humidifier": true, "valve": true,
	"sensor": true, "binary_sensor": true, "alarm_control_panel": true,
}

// serviceType resolves a capability type from (domain, device class).
// Unmapped domains, and binary_sensor always, map to nothing.
func serviceType(domain, deviceClass string) (string, bool) {
	switch domain {
	case "light":
		return TypeLightbulb, true
	case "switch":
		if deviceClass == "outlet" {
			return TypeOutlet, true
		}
		return TypeSwitch, true
	case "climate":
		return TypeThermostat, true
	case "cover":
		switch deviceClass {
		case "garage":
			return TypeGarageDoorOpener, true
		case "door":
			return TypeDoor, true
		case "window":
			return TypeWindow, true
		default:
			return TypeWindowCovering, true
		}
	case "lock":
		return TypeLock, true
	case "fan":
		return TypeFan, true
	case "humidifier":
		return TypeHumidifierDehumidifier, true
	case "valve":
		return TypeValve, true
	case "sensor":
		switch deviceClass {
		case "temperature":
			return TypeTemperatureSensor, true
		case "humidity":
			return TypeHumiditySensor, true
		default:
			return "", false
		}
	case "alarm_control_panel":
		return TypeSecuritySystem, true
	default:
		return "", false
	}
}

// powerDomains are the domains whose primary state maps to a power
// characteristic.
var powerDomains = map[string]bool{
	"light": true, "switch": true, "fan": true, "humidifier": true,
}

func hasPowerState(state *hass.EntityState) bool {
	return powerDomains[state.Domain()]
}

// Cover supported_features bits used by the mapping rules.
const (
	coverSetPosition     = 4
	coverSetTiltPosition = 128
)

// isTiltOnlyCover reports whether a cover supports tilt positioning
// but not position. Such covers reuse the position characteristic for
// their tilt, and get no separate tilt ids.
func isTiltOnlyCover(state *hass.EntityState) bool {
	if state.Domain() != "cover" {
		return false
	}
	features := state.SupportedFeatures()
	return features&coverSetPosition == 0 && features&coverSetTiltPosition != 0
}
