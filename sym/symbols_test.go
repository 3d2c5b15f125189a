package sym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForState(t *testing.T) {
	assert.Equal(t, Input, ForState("pending"))
	assert.Equal(t, Input, ForState("processing"))
	assert.Equal(t, Publish, ForState("published"))
	assert.Equal(t, Archive, ForState("completed"))
	assert.Empty(t, ForState("unknown"))
}
