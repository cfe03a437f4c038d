package changefeed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubDeliversMatchingChanges(t *testing.T) {
	hub := NewHub()
	var got []Change
	unsubscribe := hub.Subscribe(Filter{Email: "Jane@Example.com"}, func(c Change) {
		got = append(got, c)
	})
	defer unsubscribe()

	ctx := context.Background()
	_ = hub.Publish(ctx, Change{Table: "appointments", Op: OpUpdate, ID: "1", Email: "jane@example.com"})
	_ = hub.Publish(ctx, Change{Table: "appointments", Op: OpUpdate, ID: "2", Email: "other@example.com"})
	_ = hub.Publish(ctx, Change{Table: "appointments", Op: OpInsert, ID: "3"})

	if assert.Len(t, got, 2) {
		assert.Equal(t, "1", got[0].ID)
		assert.Equal(t, "3", got[1].ID)
		assert.False(t, got[0].At.IsZero())
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	calls := 0
	unsubscribe := hub.Subscribe(Filter{}, func(Change) { calls++ })
	_ = hub.Publish(context.Background(), Change{ID: "0"})
	assert.Equal(t, 1, calls)

	unsubscribe()
	unsubscribe()
	_ = hub.Publish(context.Background(), Change{ID: "1"})

	assert.Equal(t, 1, calls)
}

func TestFilterMatches(t *testing.T) {
	assert.True(t, Filter{}.Matches(Change{Email: "a@b.c"}))
	assert.True(t, Filter{Email: "a@b.c"}.Matches(Change{}))
	assert.True(t, Filter{Email: " A@B.C "}.Matches(Change{Email: "a@b.c"}))
	assert.False(t, Filter{Email: "a@b.c"}.Matches(Change{Email: "x@b.c"}))
}
