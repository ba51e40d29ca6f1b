package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueue_WorkerCount(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"explicit count", 8, 8},
		{"zero falls back", 0, 3},
		{"negative falls back", -2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(tt.workers)
			require.NotNil(t, q)
			assert.Equal(t, tt.want, q.workers)
			assert.False(t, q.running)
		})
	}
}

func TestQueue_StopBeforeStart(t *testing.T) {
	q := NewQueue(1)
	// must not close channels or block when nothing was started
	q.Stop()
	assert.False(t, q.running)
}

func TestQueue_EnqueueRejectsUnencodablePayload(t *testing.T) {
	q := NewQueue(1)
	job, err := q.Enqueue(JobTypeEmail, func() {})
	assert.Error(t, err)
	assert.Nil(t, job)
}
