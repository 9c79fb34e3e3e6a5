package accessory

import "github.com/google/uuid"

// DeterministicID derives a stable 128-bit identifier from a seed
// string by XOR-folding its UTF-8 bytes into a 16-byte block, then
// forcing the UUID version and variant bits.
//
// This folding is not cryptographic. It is a fast, stable scheme
// chosen for reproducibility across sessions; collisions are unlikely
// across realistic entity vocabularies but carry no uniform-hashing
// guarantee.
func DeterministicID(seed string) uuid.UUID {
	var hash [16]byte
	for i := 0; i < len(seed); i++ {
		hash[i%16] ^= seed[i]
	}

	hash[6] = (hash[6] & 0x0F) | 0x40
	hash[8] = (hash[8] & 0x3F) | 0x80

	return uuid.UUID(hash)
}

// CharacteristicID derives the identifier for one (entity, capability)
// pair. The seed is "<entityId>.<capability>".
func CharacteristicID(entityID, capability string) uuid.UUID {
	return DeterministicID(entityID + "." + capability)
}
