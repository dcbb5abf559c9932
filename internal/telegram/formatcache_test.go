package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapFormatCacheStoreLookup(t *testing.T) {
	var c = NewMapFormatCache()
	var _, ok = c.Lookup("12345678", 0xABCD)
	assert.False(t, ok)

	c.Store("12345678", 0xABCD, []byte{0x01, 0x02})
	var b, found = c.Lookup("12345678", 0xABCD)
	assert.True(t, found)
	assert.Equal(t, []byte{0x01, 0x02}, b)

	// Different id, same signature, is a distinct entry.
	var _, crossOK = c.Lookup("87654321", 0xABCD)
	assert.False(t, crossOK)
}

func TestMapFormatCacheEviction(t *testing.T) {
	var c = NewMapFormatCache()
	for i := 0; i < formatCacheCap+10; i++ {
		c.Store("id", uint16(i), []byte{byte(i)})
	}
	var _, ok = c.Lookup("id", 0)
	assert.False(t, ok, "oldest entry should have been evicted")
	var _, stillThere = c.Lookup("id", uint16(formatCacheCap+9))
	assert.True(t, stillThere)
}

func TestNoFormatCacheAlwaysMisses(t *testing.T) {
	var c = NoFormatCache{}
	c.Store("id", 1, []byte{0x01})
	var _, ok = c.Lookup("id", 1)
	assert.False(t, ok)
}
