package jobqueue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetManagerSingleton() {
	globalManager = nil
	managerOnce = sync.Once{}
}

func TestGetManager_Singleton(t *testing.T) {
	resetManagerSingleton()
	t.Cleanup(resetManagerSingleton)

	first := GetManager()
	second := GetManager()

	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.NotNil(t, first.GetQueue())
}

func TestGetManager_DefaultWorkerCount(t *testing.T) {
	resetManagerSingleton()
	t.Cleanup(resetManagerSingleton)

	// app settings are not loaded in unit tests, so the default applies
	m := GetManager()
	assert.Equal(t, defaultWorkerCount, m.GetQueue().workers)
}

func TestManager_IsRunningInitiallyFalse(t *testing.T) {
	resetManagerSingleton()
	t.Cleanup(resetManagerSingleton)

	m := GetManager()
	assert.False(t, m.IsRunning())
}

func TestManager_StopBeforeStart(t *testing.T) {
	resetManagerSingleton()
	t.Cleanup(resetManagerSingleton)

	m := GetManager()
	m.Stop()
	assert.False(t, m.IsRunning())
}
