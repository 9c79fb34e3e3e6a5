package accessory

import (
	"fmt"
	"testing"
)

func TestDeterministicIDStable(t *testing.T) {
	seeds := []string{"light.kitchen", "light.kitchen.power", "area_1", "", "a"}
	for _, seed := range seeds {
		a := DeterministicID(seed)
		b := DeterministicID(seed)
		if a != b {
			t.Errorf("DeterministicID(%q) not stable: %v != %v", seed, a, b)
		}
	}
}

func TestDeterministicIDVersionVariant(t *testing.T) {
	id := DeterministicID("light.kitchen.power")
	if id[6]&0xF0 != 0x40 {
		t.Errorf("version nibble = %x, want 4", id[6]>>4)
	}
	if id[8]&0xC0 != 0x80 {
		t.Errorf("variant bits = %x, want 10xxxxxx", id[8])
	}
}

func TestDeterministicIDKnownValue(t *testing.T) {
	// Single byte 'a' lands in block position 0; everything else is
	// zero except the forced version/variant bits.
	id := DeterministicID("a")
	if id[0] != 'a' {
		t.Errorf("id[0] = %x, want %x", id[0], 'a')
	}
	if id[6] != 0x40 {
		t.Errorf("id[6] = %x, want 0x40", id[6])
	}
	if id[8] != 0x80 {
		t.Errorf("id[8] = %x, want 0x80", id[8])
	}
}

func TestCharacteristicIDMatchesSeed(t *testing.T) {
	if CharacteristicID("light.kitchen", "power") != DeterministicID("light.kitchen.power") {
		t.Error("CharacteristicID seed is not entityId.capability")
	}
}

func TestNoCollisionsAcrossFixtureSet(t *testing.T) {
	// 1000+ synthetic (entity, capability) pairs must all derive
	// distinct ids.
	seen := make(map[[16]byte]string)
	domains := []string{"light", "switch", "cover", "climate", "lock", "fan", "sensor"}

	count := 0
	for _, domain := range domains {
		for i := 0; i < 5; i++ {
			entityID := fmt.Sprintf("%s.fixture_room_%d_unit_%d", domain, i, i*7)
			for _, cap := range capabilityVocabulary {
				id := CharacteristicID(entityID, cap)
				key := [16]byte(id)
				if prev, dup := seen[key]; dup {
					t.Fatalf("collision: %s.%s and %s derive the same id", entityID, cap, prev)
				}
				seen[key] = entityID + "." + cap
				count++
			}
		}
	}

	if count < 1000 {
		t.Fatalf("fixture set too small: %d ids", count)
	}
}
