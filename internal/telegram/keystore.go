package telegram

import "github.com/wmbus-tools/wmbusgw/internal/wmbuscrypto"

// MeterKeys is the confidentiality key material the caller supplies for one
// meter id. An empty MeterKeys (HasConfidentiality false) behaves as "no key
// known" rather than an all-zero key.
type MeterKeys struct {
	ConfidentialityKey wmbuscrypto.Key
	HasConfidentiality bool
}

// Zero overwrites the key material. Call once a MeterKeys is no longer
// needed.
func (k *MeterKeys) Zero() {
	k.ConfidentialityKey.Zero()
	k.HasConfidentiality = false
}

// Keystore resolves a meter id (as rendered by DLL/ELL/TPL, e.g.
// "12345678") to its key material.
type Keystore interface {
	Lookup(id string) (MeterKeys, bool)
}

// MapKeystore is the common case: an explicit id -> MeterKeys table.
type MapKeystore map[string]MeterKeys

func (m MapKeystore) Lookup(id string) (MeterKeys, bool) {
	var k, ok = m[id]
	return k, ok
}

// OnlyOneKeystore wraps a single MeterKeys and returns it for every id, the
// "only_one_key" convenience: when a user configures exactly one
// confidentiality key on the command line, apply it to whichever single
// meter id the gateway talks to without requiring the id to be named.
type OnlyOneKeystore struct {
	Keys MeterKeys
}

func (o OnlyOneKeystore) Lookup(string) (MeterKeys, bool) {
	return o.Keys, o.Keys.HasConfidentiality
}

// NoKeystore never has a key for any id.
type NoKeystore struct{}

func (NoKeystore) Lookup(string) (MeterKeys, bool) {
	return MeterKeys{}, false
}
