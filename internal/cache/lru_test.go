package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRU_GetPut(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	// "b" is now least recently used
	c.Put("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_Replace(t *testing.T) {
	c := NewLRU[string, []string](0)
	c.Put("k", []string{"x"})
	c.Put("k", nil)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_Unbounded(t *testing.T) {
	c := NewLRU[int, int](0)
	for i := 0; i < 100; i++ {
		c.Put(i, i)
	}
	assert.Equal(t, 100, c.Len())
}
