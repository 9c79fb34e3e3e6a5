package accessory

import (
	"testing"

	"github.com/nickustinov/itsyhome-bridge/internal/bridges/hass"
	"github.com/nickustinov/itsyhome-bridge/internal/snapshot"
)

func newStore(states []hass.EntityState, entries []hass.RegistryEntry, devices []hass.Device, areas []hass.Area) *snapshot.Store {
	s := snapshot.New()
	s.Load(states, entries, devices, areas, nil)
	return s
}

func mapperFor(store *snapshot.Store) *Mapper {
	m := NewMapper(nil)
	m.Reset(store)
	return m
}

func findService(t *testing.T, g *Graph, name string) *Service {
	t.Helper()
	for i := range g.Accessories {
		for j := range g.Accessories[i].Services {
			if g.Accessories[i].Services[j].Name == name {
				return &g.Accessories[i].Services[j]
			}
		}
	}
	t.Fatalf("service %q not found in graph", name)
	return nil
}

func TestHSLightMapping(t *testing.T) {
	store := newStore([]hass.EntityState{{
		EntityID: "light.kitchen",
		State:    "on",
		Attributes: hass.Attributes{
			"supported_color_modes": hass.StringsValue([]string{"hs"}),
			"hs_color":              hass.NumbersValue([]float64{200, 50}),
		},
	}}, nil, nil, nil)

	m := mapperFor(store)
	g := m.Graph()

	if len(g.Accessories) != 1 {
		t.Fatalf("len(Accessories) = %d", len(g.Accessories))
	}
	acc := g.Accessories[0]
	if acc.Name != "Kitchen" {
		t.Errorf("accessory name = %q, want Kitchen", acc.Name)
	}
	if acc.RoomID != nil {
		t.Error("accessory should be room-less")
	}

	svc := findService(t, g, "Kitchen")
	if svc.Type != TypeLightbulb {
		t.Errorf("service type = %q", svc.Type)
	}

	for _, cap := range []string{CapPower, CapBrightness, CapHue, CapSaturation} {
		if _, ok := svc.Characteristics[cap]; !ok {
			t.Errorf("missing %s characteristic", cap)
		}
	}
	if _, ok := svc.Characteristics[CapColorTemp]; ok {
		t.Error("color_temp characteristic should be absent for hs-only light")
	}
}

func TestOnOffLightSparsity(t *testing.T) {
	store := newStore([]hass.EntityState{{
		EntityID: "light.closet",
		State:    "off",
		Attributes: hass.Attributes{
			"supported_color_modes": hass.StringsValue([]string{"onoff"}),
		},
	}}, nil, nil, nil)

	svc := findService(t, mapperFor(store).Graph(), "Closet")

	if _, ok := svc.Characteristics[CapPower]; !ok {
		t.Error("power characteristic missing")
	}
	for _, cap := range []string{CapBrightness, CapHue, CapSaturation, CapColorTemp} {
		if _, ok := svc.Characteristics[cap]; ok {
			t.Errorf("%s characteristic should be absent for onoff-only light", cap)
		}
	}
}

func TestFullColorLight(t *testing.T) {
	store := newStore([]hass.EntityState{{
		EntityID: "light.lounge",
		State:    "on",
		Attributes: hass.Attributes{
			"supported_color_modes": hass.StringsValue([]string{"hs", "color_temp"}),
		},
	}}, nil, nil, nil)

	svc := findService(t, mapperFor(store).Graph(), "Lounge")

	for _, cap := range []string{CapPower, CapBrightness, CapHue, CapSaturation, CapColorTemp} {
		if _, ok := svc.Characteristics[cap]; !ok {
			t.Errorf("missing %s characteristic", cap)
		}
	}
	if !svc.NeedsColorModeSwitch {
		t.Error("NeedsColorModeSwitch should be set for hs+color_temp light")
	}
}

func TestBinarySensorDropped(t *testing.T) {
	store := newStore([]hass.EntityState{{
		EntityID:   "binary_sensor.motion",
		State:      "off",
		Attributes: hass.Attributes{"device_class": hass.StringValue("motion")},
	}}, nil, nil, nil)

	g := mapperFor(store).Graph()
	if len(g.Accessories) != 0 {
		t.Errorf("binary_sensor should never map: %d accessories", len(g.Accessories))
	}
}

func TestSensorMapping(t *testing.T) {
	store := newStore([]hass.EntityState{
		{
			EntityID:   "sensor.bedroom_temp",
			State:      "21.5",
			Attributes: hass.Attributes{"device_class": hass.StringValue("temperature")},
		},
		{
			EntityID:   "sensor.power_draw",
			State:      "130",
			Attributes: hass.Attributes{"device_class": hass.StringValue("power")},
		},
	}, nil, nil, nil)

	g := mapperFor(store).Graph()
	if len(g.Accessories) != 1 {
		t.Fatalf("len(Accessories) = %d, want only the temperature sensor", len(g.Accessories))
	}
	if g.Accessories[0].Services[0].Type != TypeTemperatureSensor {
		t.Errorf("type = %q", g.Accessories[0].Services[0].Type)
	}
}

func TestDeviceGroupingAndRooms(t *testing.T) {
	store := newStore(
		[]hass.EntityState{
			{EntityID: "light.strip", State: "on", Attributes: hass.Attributes{
				"supported_color_modes": hass.StringsValue([]string{"brightness"}),
			}},
			{EntityID: "switch.strip_power", State: "on", Attributes: hass.Attributes{}},
		},
		[]hass.RegistryEntry{
			{EntityID: "light.strip", DeviceID: "dev_strip"},
			{EntityID: "switch.strip_power", DeviceID: "dev_strip"},
		},
		[]hass.Device{{ID: "dev_strip", Name: "LED Strip", AreaID: "office"}},
		[]hass.Area{{AreaID: "office", Name: "Office"}},
	)

	g := mapperFor(store).Graph()

	if len(g.Rooms) != 1 || g.Rooms[0].Name != "Office" {
		t.Fatalf("rooms = %+v", g.Rooms)
	}
	if g.Rooms[0].ID != DeterministicID("office") {
		t.Error("room id not derived from area id")
	}

	if len(g.Accessories) != 1 {
		t.Fatalf("len(Accessories) = %d, want 1 grouped accessory", len(g.Accessories))
	}
	acc := g.Accessories[0]
	if acc.Name != "LED Strip" {
		t.Errorf("accessory name = %q", acc.Name)
	}
	if acc.ID != DeterministicID("dev_strip") {
		t.Error("grouped accessory id should hash the device id")
	}
	if acc.RoomID == nil || *acc.RoomID != DeterministicID("office") {
		t.Error("accessory room should resolve through the device area")
	}
	if len(acc.Services) != 2 {
		t.Errorf("len(Services) = %d", len(acc.Services))
	}
}

func TestEntityAreaOverridesDeviceArea(t *testing.T) {
	store := newStore(
		[]hass.EntityState{{EntityID: "switch.heater", State: "off", Attributes: hass.Attributes{}}},
		[]hass.RegistryEntry{{EntityID: "switch.heater", DeviceID: "dev1", AreaID: "bedroom"}},
		[]hass.Device{{ID: "dev1", AreaID: "kitchen"}},
		[]hass.Area{{AreaID: "kitchen", Name: "Kitchen"}, {AreaID: "bedroom", Name: "Bedroom"}},
	)

	acc := mapperFor(store).Graph().Accessories[0]
	if acc.RoomID == nil || *acc.RoomID != DeterministicID("bedroom") {
		t.Error("entity-level area should override the device area")
	}
}

func TestHiddenAndDisabledSkipped(t *testing.T) {
	store := newStore(
		[]hass.EntityState{
			{EntityID: "light.hidden", State: "on", Attributes: hass.Attributes{}},
			{EntityID: "light.disabled", State: "on", Attributes: hass.Attributes{}},
		},
		[]hass.RegistryEntry{
			{EntityID: "light.hidden", HiddenBy: "user"},
			{EntityID: "light.disabled", DisabledBy: "integration"},
		},
		nil, nil,
	)

	g := mapperFor(store).Graph()
	if len(g.Accessories) != 0 {
		t.Errorf("hidden/disabled entities should be skipped: %d accessories", len(g.Accessories))
	}
}

func TestTiltOnlyCoverCollapsing(t *testing.T) {
	// Tilt open/close/stop/set-position bits without position-set:
	// 16+32+64+128 = 240.
	store := newStore([]hass.EntityState{{
		EntityID: "cover.venetian",
		State:    "open",
		Attributes: hass.Attributes{
			"supported_features":    hass.NumberValue(240),
			"current_tilt_position": hass.NumberValue(40),
		},
	}}, nil, nil, nil)

	m := mapperFor(store)
	svc := findService(t, m.Graph(), "Venetian")

	if _, ok := svc.Characteristics[CapTargetPosition]; !ok {
		t.Error("tilt-only cover should expose target_position")
	}
	if _, ok := svc.Characteristics[CapTargetTilt]; ok {
		t.Error("tilt-only cover should not expose target_tilt")
	}
	if _, ok := svc.Characteristics[CapTilt]; ok {
		t.Error("tilt-only cover should not expose tilt")
	}

	// The projected position reuses the raw tilt position.
	values := m.Values("cover.venetian")
	pos, ok := values[CharacteristicID("cover.venetian", CapPosition)].Float()
	if !ok || pos != 40 {
		t.Errorf("projected position = %v, %v, want 40", pos, ok)
	}
}

func TestPositionalCover(t *testing.T) {
	// open+close+set-position+stop = 1+2+4+8 = 15.
	store := newStore([]hass.EntityState{{
		EntityID: "cover.blinds",
		State:    "open",
		Attributes: hass.Attributes{
			"supported_features": hass.NumberValue(15),
			"current_position":   hass.NumberValue(75),
		},
	}}, nil, nil, nil)

	m := mapperFor(store)
	svc := findService(t, m.Graph(), "Blinds")

	if _, ok := svc.Characteristics[CapTargetPosition]; !ok {
		t.Error("positional cover should expose target_position")
	}

	values := m.Values("cover.blinds")
	pos, ok := values[CharacteristicID("cover.blinds", CapPosition)].Float()
	if !ok || pos != 75 {
		t.Errorf("projected position = %v, %v, want 75", pos, ok)
	}
}

func TestAlarmPanelMapping(t *testing.T) {
	store := newStore([]hass.EntityState{{
		EntityID: "alarm_control_panel.home",
		State:    "disarmed",
		Attributes: hass.Attributes{
			"supported_features": hass.NumberValue(3),
			"code_arm_required":  hass.BoolValue(false),
		},
	}}, nil, nil, nil)

	m := mapperFor(store)
	svc := findService(t, m.Graph(), "Home")

	if svc.Type != TypeSecuritySystem {
		t.Errorf("type = %q", svc.Type)
	}
	want := []string{"disarmed", "armed_home", "armed_away"}
	if len(svc.AlarmModes) != len(want) {
		t.Fatalf("AlarmModes = %v, want %v", svc.AlarmModes, want)
	}
	for i, mode := range want {
		if svc.AlarmModes[i] != mode {
			t.Errorf("AlarmModes[%d] = %q, want %q", i, svc.AlarmModes[i], mode)
		}
	}
	if svc.AlarmRequiresCode {
		t.Error("AlarmRequiresCode should be false")
	}
	if m.AlarmRequiresCode("alarm_control_panel.home") {
		t.Error("AlarmRequiresCode query should be false")
	}
}

func TestScenesAndCameras(t *testing.T) {
	s := snapshot.New()
	s.Load(
		[]hass.EntityState{
			{EntityID: "scene.bedtime", State: "scening", Attributes: hass.Attributes{
				"friendly_name": hass.StringValue("Bedtime"),
				"id":            hass.StringValue("bedtime_internal"),
			}},
			{EntityID: "camera.front_door", State: "streaming", Attributes: hass.Attributes{
				"friendly_name": hass.StringValue("Front Door"),
			}},
		},
		nil, nil, nil,
		map[string]*hass.SceneConfig{
			"scene.bedtime": {
				ID:   "bedtime_internal",
				Name: "Bedtime",
				Entities: map[string]hass.Attributes{
					"light.bedroom": {
						"state":      hass.StringValue("on"),
						"brightness": hass.NumberValue(128),
					},
				},
			},
		},
	)

	g := mapperFor(s).Graph()

	if len(g.Scenes) != 1 {
		t.Fatalf("len(Scenes) = %d", len(g.Scenes))
	}
	scene := g.Scenes[0]
	if scene.Name != "Bedtime" {
		t.Errorf("scene name = %q", scene.Name)
	}
	if len(scene.Actions) != 2 {
		t.Fatalf("len(Actions) = %d, want power + brightness", len(scene.Actions))
	}

	if len(g.Cameras) != 1 || g.Cameras[0].Name != "Front Door" {
		t.Errorf("cameras = %+v", g.Cameras)
	}
	if g.Cameras[0].EntityID != "camera.front_door" {
		t.Errorf("camera entity id = %q", g.Cameras[0].EntityID)
	}
}

func TestReverseIndices(t *testing.T) {
	store := newStore([]hass.EntityState{
		{EntityID: "light.kitchen", State: "on", Attributes: hass.Attributes{}},
		{EntityID: "lock.front", State: "locked", Attributes: hass.Attributes{}},
	}, nil, nil, nil)

	m := mapperFor(store)

	entityID, ok := m.EntityForService(DeterministicID("light.kitchen"))
	if !ok || entityID != "light.kitchen" {
		t.Errorf("EntityForService = %q, %v", entityID, ok)
	}

	// Built eagerly across the whole vocabulary, even capabilities the
	// entity does not expose.
	entityID, ok = m.EntityForCharacteristic(CharacteristicID("lock.front", CapBrightness))
	if !ok || entityID != "lock.front" {
		t.Errorf("EntityForCharacteristic = %q, %v", entityID, ok)
	}

	if _, ok := m.EntityForCharacteristic(CharacteristicID("light.unknown", CapPower)); ok {
		t.Error("unknown entity should not resolve")
	}

	name := m.CharacteristicName(CharacteristicID("light.kitchen", CapPower), "light.kitchen")
	if name != CapPower {
		t.Errorf("CharacteristicName = %q", name)
	}
}

func TestHashStableAcrossReload(t *testing.T) {
	states := []hass.EntityState{{EntityID: "light.kitchen", State: "on", Attributes: hass.Attributes{}}}

	m := mapperFor(newStore(states, nil, nil, nil))
	before := CharacteristicID("light.kitchen", CapPower)

	entityID, ok := m.EntityForCharacteristic(before)
	if !ok || entityID != "light.kitchen" {
		t.Fatal("characteristic id not resolvable before reload")
	}

	// Full snapshot reload, same entity set.
	m.Reset(newStore(states, nil, nil, nil))

	after := CharacteristicID("light.kitchen", CapPower)
	if before != after {
		t.Error("characteristic id changed across reload")
	}
	entityID, ok = m.EntityForCharacteristic(after)
	if !ok || entityID != "light.kitchen" {
		t.Error("characteristic id not resolvable after reload")
	}
}

func TestEmptyAccessoriesDropped(t *testing.T) {
	// A device whose only entity maps to no service yields no accessory.
	store := newStore(
		[]hass.EntityState{{
			EntityID:   "sensor.wifi_signal",
			State:      "-60",
			Attributes: hass.Attributes{"device_class": hass.StringValue("signal_strength")},
		}},
		[]hass.RegistryEntry{{EntityID: "sensor.wifi_signal", DeviceID: "dev_router"}},
		[]hass.Device{{ID: "dev_router", Name: "Router"}},
		nil,
	)

	g := mapperFor(store).Graph()
	if len(g.Accessories) != 0 {
		t.Errorf("accessory with zero services should be dropped: %+v", g.Accessories)
	}
}

func TestAccessoriesSortedByName(t *testing.T) {
	store := newStore([]hass.EntityState{
		{EntityID: "switch.zebra", State: "on", Attributes: hass.Attributes{"friendly_name": hass.StringValue("Zebra")}},
		{EntityID: "switch.apple", State: "on", Attributes: hass.Attributes{"friendly_name": hass.StringValue("Apple")}},
	}, nil, nil, nil)

	g := mapperFor(store).Graph()
	if len(g.Accessories) != 2 {
		t.Fatalf("len(Accessories) = %d", len(g.Accessories))
	}
	if g.Accessories[0].Name != "Apple" || g.Accessories[1].Name != "Zebra" {
		t.Errorf("accessories not sorted: %q, %q", g.Accessories[0].Name, g.Accessories[1].Name)
	}
}
