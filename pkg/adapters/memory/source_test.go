package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

func TestSource_Contract(t *testing.T) {
	ports.RunItemStoreContract(t, memory.NewSource())
}

func TestSource_Watch(t *testing.T) {
	src := memory.NewSource()
	ctx, cancel := context.WithCancel(context.Background())

	events, err := src.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, src.PutGroup(ctx, domain.Group{Name: "Work"}, nil))
	require.NoError(t, src.DeleteGroup(ctx, "Work"))

	for _, want := range []string{"Work", "Work"} {
		select {
		case got := <-events:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for change")
		}
	}

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should close with the context")
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed")
	}
}
