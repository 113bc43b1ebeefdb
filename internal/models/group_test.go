package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroup_AddRemove(t *testing.T) {
	g := &Group{ChatID: 1}

	assert.True(t, g.Add(1))
	assert.True(t, g.Add(2))
	assert.False(t, g.Add(1))
	assert.Equal(t, []int64{1, 2}, g.Members)

	assert.False(t, g.Remove(3))
	assert.True(t, g.Remove(1))
	assert.False(t, g.Has(1))
	assert.Equal(t, []int64{2}, g.Members)
}
