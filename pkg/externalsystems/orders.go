// Package externalsystems provides the retail backends the concierge consults:
// orders, appointments, the product and policy catalog, and user lookup. All
// backends are seeded in-memory mocks with the business rules of their real
// counterparts, safe for concurrent use.
package externalsystems

import (
	"fmt"
	"sync"
	"time"
)

// OrderItem is one line item within an order
type OrderItem struct {
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// OrderDetails holds the full state of one order
type OrderDetails struct {
	OrderID     string      `json:"order_id"`
	UserID      string      `json:"user_id"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"total_amount"`
	Status      string      `json:"status"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
}

// ActionResult reports the outcome of a state-changing backend operation
type ActionResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	AppointmentID string `json:"appointment_id,omitempty"`
}

// OrdersAPI manages order queries and modifications
type OrdersAPI struct {
	mu     sync.Mutex
	orders map[string]*OrderDetails
}

// NewOrdersAPI creates an OrdersAPI seeded with mock orders
func NewOrdersAPI() *OrdersAPI {
	return &OrdersAPI{
		orders: map[string]*OrderDetails{
			"ORD-001": {
				OrderID: "ORD-001",
				UserID:  "user_123",
				Items: []OrderItem{
					{ItemID: "ITEM-001", Name: "Wireless Headphones", Quantity: 1, Price: 99.99},
					{ItemID: "ITEM-002", Name: "Phone Case", Quantity: 2, Price: 19.99},
				},
				TotalAmount: 139.97,
				Status:      "shipped",
				CreatedAt:   "2025-11-25T10:30:00",
				UpdatedAt:   "2025-11-26T14:20:00",
			},
			"ORD-002": {
				OrderID: "ORD-002",
				UserID:  "user_456",
				Items: []OrderItem{
					{ItemID: "ITEM-003", Name: "Laptop Stand", Quantity: 1, Price: 49.99},
				},
				TotalAmount: 49.99,
				Status:      "processing",
				CreatedAt:   "2025-11-28T09:15:00",
				UpdatedAt:   "2025-11-28T09:15:00",
			},
			"ORD-003": {
				OrderID: "ORD-003",
				UserID:  "user_789",
				Items: []OrderItem{
					{ItemID: "ITEM-004", Name: "USB-C Cable", Quantity: 3, Price: 12.99},
					{ItemID: "ITEM-005", Name: "Keyboard", Quantity: 1, Price: 79.99},
				},
				TotalAmount: 118.96,
				Status:      "delivered",
				CreatedAt:   "2025-11-20T16:45:00",
				UpdatedAt:   "2025-11-24T11:30:00",
			},
			"ORD-004": {
				OrderID: "ORD-004",
				UserID:  "user_123",
				Items: []OrderItem{
					{ItemID: "ITEM-006", Name: "Monitor", Quantity: 1, Price: 299.99},
				},
				TotalAmount: 299.99,
				Status:      "pending",
				CreatedAt:   "2025-11-30T13:20:00",
				UpdatedAt:   "2025-11-30T13:20:00",
			},
		},
	}
}

// GetOrder retrieves order details by order id
func (api *OrdersAPI) GetOrder(orderID string) (OrderDetails, bool) {
	api.mu.Lock()
	defer api.mu.Unlock()

	order, ok := api.orders[orderID]
	if !ok {
		return OrderDetails{}, false
	}
	return copyOrder(order), true
}

// GetOrderStatus returns the status of an order
func (api *OrdersAPI) GetOrderStatus(orderID string) (string, bool) {
	api.mu.Lock()
	defer api.mu.Unlock()

	order, ok := api.orders[orderID]
	if !ok {
		return "", false
	}
	return order.Status, true
}

// SwapItem replaces an item in an order with another item. Only pending or
// processing orders can be modified; the old item must exist in the order.
// Quantity and price carry over from the replaced item.
func (api *OrdersAPI) SwapItem(orderID, oldItemID, newItemID, newItemName string) ActionResult {
	api.mu.Lock()
	defer api.mu.Unlock()

	order, ok := api.orders[orderID]
	if !ok {
		return ActionResult{Message: fmt.Sprintf("Order %s not found", orderID)}
	}

	if order.Status != "pending" && order.Status != "processing" {
		return ActionResult{
			Message: fmt.Sprintf("Cannot modify order with status '%s'. Only pending or processing orders can be modified.", order.Status),
		}
	}

	itemIndex := -1
	for idx, item := range order.Items {
		if item.ItemID == oldItemID {
			itemIndex = idx
			break
		}
	}
	if itemIndex < 0 {
		return ActionResult{Message: fmt.Sprintf("Item %s not found in order %s", oldItemID, orderID)}
	}

	oldItem := order.Items[itemIndex]
	order.Items[itemIndex] = OrderItem{
		ItemID:   newItemID,
		Name:     newItemName,
		Quantity: oldItem.Quantity,
		Price:    oldItem.Price,
	}
	order.UpdatedAt = time.Now().Format("2006-01-02T15:04:05")

	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("Successfully swapped %s with %s in order %s", oldItem.Name, newItemName, orderID),
	}
}

// CancelOrder cancels an order. Shipped and delivered orders cannot be
// cancelled and are redirected to the returns flow.
func (api *OrdersAPI) CancelOrder(orderID string) ActionResult {
	api.mu.Lock()
	defer api.mu.Unlock()

	order, ok := api.orders[orderID]
	if !ok {
		return ActionResult{Message: fmt.Sprintf("Order %s not found", orderID)}
	}

	if order.Status == "shipped" || order.Status == "delivered" {
		return ActionResult{
			Message: fmt.Sprintf("Cannot cancel order with status '%s'. Please contact support for returns.", order.Status),
		}
	}
	if order.Status == "cancelled" {
		return ActionResult{Message: fmt.Sprintf("Order %s is already cancelled", orderID)}
	}

	order.Status = "cancelled"
	order.UpdatedAt = time.Now().Format("2006-01-02T15:04:05")

	return ActionResult{Success: true, Message: fmt.Sprintf("Order %s has been cancelled", orderID)}
}

// UpdateOrderStatus sets an order's status to any valid value
func (api *OrdersAPI) UpdateOrderStatus(orderID, newStatus string) ActionResult {
	validStatuses := []string{"pending", "processing", "shipped", "delivered", "cancelled"}
	valid := false
	for _, s := range validStatuses {
		if s == newStatus {
			valid = true
			break
		}
	}
	if !valid {
		return ActionResult{
			Message: "Invalid status. Must be one of: pending, processing, shipped, delivered, cancelled",
		}
	}

	api.mu.Lock()
	defer api.mu.Unlock()

	order, ok := api.orders[orderID]
	if !ok {
		return ActionResult{Message: fmt.Sprintf("Order %s not found", orderID)}
	}

	oldStatus := order.Status
	order.Status = newStatus
	order.UpdatedAt = time.Now().Format("2006-01-02T15:04:05")

	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("Order %s status updated from '%s' to '%s'", orderID, oldStatus, newStatus),
	}
}

func copyOrder(order *OrderDetails) OrderDetails {
	out := *order
	out.Items = make([]OrderItem, len(order.Items))
	copy(out.Items, order.Items)
	return out
}
