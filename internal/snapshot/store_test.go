package snapshot

import (
	"testing"

	"github.com/nickustinov/itsyhome-bridge/internal/bridges/hass"
)

func loadedStore() *Store {
	s := New()
	s.Load(
		[]hass.EntityState{
			{EntityID: "light.kitchen", State: "on"},
			{EntityID: "sensor.temp", State: "21.5"},
		},
		[]hass.RegistryEntry{
			{EntityID: "light.kitchen", DeviceID: "dev1"},
			{EntityID: "sensor.temp", DeviceID: "dev2", AreaID: "bedroom"},
		},
		[]hass.Device{
			{ID: "dev1", Name: "Hue Bulb", AreaID: "kitchen"},
			{ID: "dev2", Name: "Thermometer"},
		},
		[]hass.Area{
			{AreaID: "kitchen", Name: "Kitchen"},
			{AreaID: "bedroom", Name: "Bedroom"},
		},
		map[string]*hass.SceneConfig{
			"scene.bedtime": {ID: "internal1", Name: "Bedtime"},
		},
	)
	return s
}

func TestLoadAndLookup(t *testing.T) {
	s := loadedStore()

	st, ok := s.State("light.kitchen")
	if !ok || st.State != "on" {
		t.Errorf("State(light.kitchen) = %+v, %v", st, ok)
	}
	if _, ok := s.State("light.missing"); ok {
		t.Error("State(light.missing) should not exist")
	}

	entry, ok := s.Entry("sensor.temp")
	if !ok || entry.DeviceID != "dev2" {
		t.Errorf("Entry(sensor.temp) = %+v, %v", entry, ok)
	}

	dev, ok := s.Device("dev1")
	if !ok || dev.Name != "Hue Bulb" {
		t.Errorf("Device(dev1) = %+v, %v", dev, ok)
	}

	area, ok := s.Area("kitchen")
	if !ok || area.Name != "Kitchen" {
		t.Errorf("Area(kitchen) = %+v, %v", area, ok)
	}

	cfg, ok := s.SceneConfig("scene.bedtime")
	if !ok || cfg.Name != "Bedtime" {
		t.Errorf("SceneConfig(scene.bedtime) = %+v, %v", cfg, ok)
	}
}

func TestStatesSorted(t *testing.T) {
	s := loadedStore()
	states := s.States()
	if len(states) != 2 {
		t.Fatalf("len(States()) = %d", len(states))
	}
	if states[0].EntityID != "light.kitchen" || states[1].EntityID != "sensor.temp" {
		t.Errorf("States() not sorted: %v, %v", states[0].EntityID, states[1].EntityID)
	}
}

func TestApplyUpdate(t *testing.T) {
	s := loadedStore()

	changed := s.Apply(hass.StateChange{
		EntityID: "light.kitchen",
		Old:      &hass.EntityState{EntityID: "light.kitchen", State: "on"},
		New:      &hass.EntityState{EntityID: "light.kitchen", State: "off"},
	})
	if changed {
		t.Error("plain update should not report an entity set change")
	}

	st, _ := s.State("light.kitchen")
	if st.State != "off" {
		t.Errorf("State = %q after update", st.State)
	}
}

func TestApplyNewEntity(t *testing.T) {
	s := loadedStore()

	changed := s.Apply(hass.StateChange{
		EntityID: "switch.fan",
		New:      &hass.EntityState{EntityID: "switch.fan", State: "on"},
	})
	if !changed {
		t.Error("new entity should report an entity set change")
	}
	if _, ok := s.State("switch.fan"); !ok {
		t.Error("new entity not stored")
	}
}

func TestApplyRemoval(t *testing.T) {
	s := loadedStore()

	changed := s.Apply(hass.StateChange{
		EntityID: "light.kitchen",
		Old:      &hass.EntityState{EntityID: "light.kitchen", State: "on"},
		New:      nil,
	})
	if !changed {
		t.Error("removal should report an entity set change")
	}
	if _, ok := s.State("light.kitchen"); ok {
		t.Error("removed entity still present")
	}

	// Removing an unknown entity is a no-op.
	if s.Apply(hass.StateChange{EntityID: "light.kitchen", New: nil}) {
		t.Error("removing absent entity should not report a change")
	}
}

func TestAreaForEntity(t *testing.T) {
	s := loadedStore()

	// Device area.
	area, ok := s.AreaForEntity("light.kitchen")
	if !ok || area.AreaID != "kitchen" {
		t.Errorf("AreaForEntity(light.kitchen) = %+v, %v", area, ok)
	}

	// Entity-level override wins over the device's (absent) area.
	area, ok = s.AreaForEntity("sensor.temp")
	if !ok || area.AreaID != "bedroom" {
		t.Errorf("AreaForEntity(sensor.temp) = %+v, %v", area, ok)
	}

	if _, ok := s.AreaForEntity("light.unregistered"); ok {
		t.Error("AreaForEntity should fail for unregistered entity")
	}
}

func TestLoadReplacesContents(t *testing.T) {
	s := loadedStore()
	s.Load(nil, nil, nil, nil, nil)

	if len(s.States()) != 0 {
		t.Error("Load(nil...) should clear states")
	}
	if _, ok := s.Area("kitchen"); ok {
		t.Error("Load(nil...) should clear areas")
	}
}
