package externalsystems

import (
	"context"
	"testing"
	"time"

	"github.com/maisonlane/concierge/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAll(t *testing.T) {
	registry := tools.NewRegistry()
	backends := NewBackends()

	require.NoError(t, backends.RegisterAll(registry))
	assert.Equal(t, 24, registry.Count())

	for _, name := range []string{
		"get_order", "cancel_order", "swap_item",
		"schedule_appointment", "reschedule_appointment",
		"search_products", "get_product", "search_policies",
		"get_user_by_email", "get_all_users",
	} {
		assert.NotNil(t, registry.Get(name), name)
	}
}

func TestRegisteredToolsThroughExecutor(t *testing.T) {
	registry := tools.NewRegistry()
	backends := NewBackends()
	require.NoError(t, backends.RegisterAll(registry))
	executor := tools.NewExecutor(registry, 5*time.Second)

	t.Run("get_order_status", func(t *testing.T) {
		result := executor.Execute(context.Background(), tools.Call{
			ID:        "c1",
			Name:      "get_order_status",
			Arguments: map[string]interface{}{"order_id": "ORD-001"},
		})
		require.True(t, result.Success)
		assert.Equal(t, "shipped", result.Output)
	})

	t.Run("cancel delivered order degrades to message", func(t *testing.T) {
		result := executor.Execute(context.Background(), tools.Call{
			ID:        "c2",
			Name:      "cancel_order",
			Arguments: map[string]interface{}{"order_id": "ORD-003"},
		})
		require.True(t, result.Success)
		action := result.Output.(ActionResult)
		assert.False(t, action.Success)
		assert.Contains(t, action.Message, "Cannot cancel")
	})

	t.Run("search_products", func(t *testing.T) {
		result := executor.Execute(context.Background(), tools.Call{
			ID:        "c3",
			Name:      "search_products",
			Arguments: map[string]interface{}{"query": "chelsea boots"},
		})
		require.True(t, result.Success)
		products := result.Output.([]Product)
		require.NotEmpty(t, products)
		assert.Equal(t, "PROD-008", products[0].ProductID)
	})

	t.Run("missing argument rejected by schema", func(t *testing.T) {
		result := executor.Execute(context.Background(), tools.Call{
			ID:   "c4",
			Name: "get_order",
		})
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "parameter validation failed")
	})

	t.Run("unknown product yields empty output", func(t *testing.T) {
		result := executor.Execute(context.Background(), tools.Call{
			ID:        "c5",
			Name:      "get_product",
			Arguments: map[string]interface{}{"product_id": "PROD-999"},
		})
		require.True(t, result.Success)
		assert.Nil(t, result.Output)
	})
}
