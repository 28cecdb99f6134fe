package namelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsKeepInsertionOrder(t *testing.T) {
	o := NewOptions()
	o.Set("b", 1)
	o.Set("a", 2)
	o.Set("c", 3)
	o.Set("b", 4)

	assert.Equal(t, []string{"b", "a", "c"}, o.Keys())
	v, ok := o.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 4, v)

	o.Delete("a")
	assert.Equal(t, []string{"b", "c"}, o.Keys())
	assert.Equal(t, 2, o.Len())
}

func TestNilOptionsReadAsEmpty(t *testing.T) {
	var o *Options
	assert.Equal(t, 0, o.Len())
	assert.False(t, o.Has("x"))
	assert.Nil(t, o.Keys())
	assert.Equal(t, 0, o.Clone().Len())
}

func TestOptionsCloneIsDeep(t *testing.T) {
	o := NewOptions()
	o.Set("x_ctrl", ArrayOf(1.0, 2.0))
	c := o.Clone()

	v, _ := c.Get("x_ctrl")
	v.(Array)[1] = 99.0

	orig, _ := o.Get("x_ctrl")
	assert.Equal(t, 1.0, orig.(Array)[1])
}

func TestGroups(t *testing.T) {
	g := NewGroups()
	g.Ensure("controls").Set("initial_mass", 1.0)
	g.Ensure("star_job")
	g.Ensure("controls").Set("initial_z", 0.02)

	assert.Equal(t, []string{"controls", "star_job"}, g.Names())
	assert.Equal(t, 2, g.Group("controls").Len())
	assert.Nil(t, g.Group("pgstar"))

	c := g.Clone()
	c.Group("controls").Set("initial_mass", 5.0)
	v, _ := g.Group("controls").Get("initial_mass")
	assert.Equal(t, 1.0, v)

	g.Delete("controls")
	assert.Equal(t, []string{"star_job"}, g.Names())
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(2, 2.0))
	assert.True(t, Equal(1.5, 1.5))
	assert.False(t, Equal(1.5, "1.5"))
	assert.True(t, Equal("a", "a"))
	assert.True(t, Equal(true, true))
	assert.False(t, Equal(true, 1))
	assert.True(t, Equal(ArrayOf(1, 2.0), ArrayOf(1.0, 2)))
	assert.False(t, Equal(ArrayOf(1, 2), ArrayOf(1)))
	assert.False(t, Equal(ArrayOf(1), 1))
	assert.True(t, Equal(complex(1, 2), complex(1, 2)))
}
