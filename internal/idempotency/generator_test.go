package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerator(t *testing.T) {
	g := NewGenerator()

	t.Run("same params produce the same key", func(t *testing.T) {
		params := map[string]interface{}{"event_id": "evt_1", "tenant": "t1"}
		assert.Equal(t, g.GenerateKey(ScopeWebhook, params), g.GenerateKey(ScopeWebhook, params))
	})

	t.Run("key is independent of param order", func(t *testing.T) {
		a := g.GenerateKey(ScopeSweep, map[string]interface{}{"a": 1, "b": 2})
		b := g.GenerateKey(ScopeSweep, map[string]interface{}{"b": 2, "a": 1})
		assert.Equal(t, a, b)
	})

	t.Run("different scopes produce different keys", func(t *testing.T) {
		params := map[string]interface{}{"id": "x"}
		assert.NotEqual(t, g.GenerateKey(ScopeWebhook, params), g.GenerateKey(ScopeSweep, params))
	})

	t.Run("validate round trips", func(t *testing.T) {
		params := map[string]interface{}{"id": "x"}
		key := g.GenerateKey(ScopeStep, params)
		assert.True(t, g.ValidateKey(ScopeStep, params, key))
		assert.False(t, g.ValidateKey(ScopeStep, map[string]interface{}{"id": "y"}, key))
	})

	t.Run("step key is stable across calls", func(t *testing.T) {
		a := g.StepKey("task_01", "dns")
		b := g.StepKey("task_01", "dns")
		assert.Equal(t, a, b)
		assert.NotEqual(t, a, g.StepKey("task_01", "ssl"))
		assert.NotEqual(t, a, g.StepKey("task_02", "dns"))
	})
}
