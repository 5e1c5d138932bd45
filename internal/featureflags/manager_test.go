package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,over=150%")

	assert.True(t, m.Enabled("always", 0))
	assert.True(t, m.Enabled("over", 1))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("canary", 0), "percentage rollout requires a user")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42), "rollout must be deterministic per user")
	}

	on := 0
	for uid := uint(1); uid <= 1000; uid++ {
		if m.Enabled("canary", uid) {
			on++
		}
	}
	assert.InDelta(t, 250, on, 100)
}

func TestDefaults(t *testing.T) {
	m := NewManager("")
	assert.True(t, m.Enabled(AnonymousPosts, 0))
	assert.True(t, m.Enabled(HotPosts, 7))

	m = NewManager("ANONYMOUS_POSTS = off")
	assert.False(t, m.Enabled(AnonymousPosts, 7))
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off,w=maybe,=on")

	raw := m.Raw()
	assert.Equal(t, "on", raw["x"])
	assert.Equal(t, "20%", raw["y"])
	assert.Equal(t, "off", raw["z"])
	assert.NotContains(t, raw, "w")
	assert.NotContains(t, raw, "bad")

	assert.Equal(t, []string{AnonymousPosts, HotPosts, "x", "y", "z"}, m.Names())
	assert.Len(t, m.Snapshot(123), 5)
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(AnonymousPosts, 1))
}
