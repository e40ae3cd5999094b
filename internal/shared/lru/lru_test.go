package lru

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(3)

	assert.Equal(t, NoEviction, c.Put(30))
	assert.Equal(t, NoEviction, c.Put(31))
	assert.Equal(t, NoEviction, c.Put(32))
	assert.Equal(t, int32(30), c.Put(33))
	assert.Equal(t, NoEviction, c.Put(33))

	assert.False(t, c.Visit(30))
	assert.True(t, c.Visit(33))
	assert.Equal(t, 3, c.Len())
}

func TestVisitRefreshesRecency(t *testing.T) {
	c := New(2)
	c.Put(1)
	c.Put(2)

	assert.True(t, c.Visit(1))
	assert.Equal(t, int32(2), c.Put(3))
	assert.Equal(t, []int32{3, 1}, c.Keys())
}

func TestVisitAbsentDoesNotMutate(t *testing.T) {
	c := New(2)
	c.Put(1)

	assert.False(t, c.Visit(9))
	assert.Equal(t, []int32{1}, c.Keys())
}

func TestRemove(t *testing.T) {
	c := New(2)
	c.Put(1)
	c.Put(2)

	c.Remove(1)
	c.Remove(42)

	assert.False(t, c.Visit(1))
	assert.Equal(t, NoEviction, c.Put(3))
	assert.Equal(t, 2, c.Len())
}

func TestZeroCapacityKeepsOne(t *testing.T) {
	c := New(0)
	assert.Equal(t, NoEviction, c.Put(5))
	assert.Equal(t, int32(5), c.Put(6))
}

func TestConcurrentAccess(t *testing.T) {
	c := New(16)
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(base int32) {
			defer wg.Done()
			for i := int32(0); i < 100; i++ {
				c.Put(base*100 + i)
				c.Visit(base*100 + i/2)
				c.Remove(base*100 + i - 1)
			}
		}(int32(g))
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
}
