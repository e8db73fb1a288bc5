package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RichardoC/chat-relay/internal/models"
)

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry(0)

	a1 := r.GetOrCreate("a")
	a2 := r.GetOrCreate("a")
	b := r.GetOrCreate("b")

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, "a", a1.ID())
	assert.Equal(t, 2, r.Len())
	assert.Empty(t, a1.Log().Messages())
	assert.False(t, a1.Loaded())
}

func TestRegistryDefaultID(t *testing.T) {
	r := NewRegistry(0)

	s := r.GetOrCreate("")
	assert.Equal(t, models.DefaultSessionID, s.ID())
	assert.Same(t, s, r.GetOrCreate(models.DefaultSessionID))
}

func TestRegistrySessionsAreIsolated(t *testing.T) {
	r := NewRegistry(0)

	a := r.GetOrCreate("a")
	a.Log().Append(models.NewMessage(models.RoleUser, "for a"))

	b := r.GetOrCreate("b")
	assert.Empty(t, b.Log().Messages())
	assert.Len(t, a.Log().Messages(), 1)
}

func TestRegistryMaxSizeAppliesToLogs(t *testing.T) {
	r := NewRegistry(2)
	assert.Equal(t, 2, r.GetOrCreate("x").Log().Max())
	assert.Equal(t, DefaultMaxSize, NewRegistry(0).GetOrCreate("y").Log().Max())
}

func TestSessionInvalidate(t *testing.T) {
	s := NewRegistry(0).GetOrCreate("x")
	s.Log().Append(models.NewMessage(models.RoleUser, "hi"))
	s.MarkLoaded()

	s.Invalidate()
	assert.False(t, s.Loaded())
	assert.Empty(t, s.Log().Messages())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := r.GetOrCreate(fmt.Sprintf("s%d", i%5))
			s.Lock()
			s.Log().Append(models.NewMessage(models.RoleUser, "x"))
			s.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, r.Len())
	for i := 0; i < 5; i++ {
		assert.Equal(t, 10, r.GetOrCreate(fmt.Sprintf("s%d", i)).Log().Len())
	}
}
