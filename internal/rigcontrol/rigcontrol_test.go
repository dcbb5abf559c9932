package rigcontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopControllerIsInert(t *testing.T) {
	var c Controller = NoopController{}
	assert.NoError(t, c.SetFrequency(868950000))
	assert.NoError(t, c.Close())
}
