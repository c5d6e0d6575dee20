package dialogue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserLocksReleaseEntries(t *testing.T) {
	l := newUserLocks()

	unlockA := l.lock("a")
	unlockB := l.lock("b")
	assert.Equal(t, 2, l.size())

	unlockA()
	assert.Equal(t, 1, l.size())
	unlockB()
	assert.Equal(t, 0, l.size())
}

func TestUserLocksSerializeSameUser(t *testing.T) {
	l := newUserLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock("same")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, l.size())
}
