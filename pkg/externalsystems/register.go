package externalsystems

import (
	"context"
	"fmt"

	"github.com/maisonlane/concierge/pkg/tools"
)

// Backends bundles the retail systems exposed to the model
type Backends struct {
	Orders       *OrdersAPI
	Appointments *AppointmentsAPI
	Catalog      *CatalogAPI
	Users        *UsersAPI
}

// NewBackends creates the full set of mock backends
func NewBackends() *Backends {
	return &Backends{
		Orders:       NewOrdersAPI(),
		Appointments: NewAppointmentsAPI(),
		Catalog:      NewCatalogAPI(),
		Users:        NewUsersAPI(),
	}
}

func stringArg(params map[string]interface{}, name string) (string, error) {
	v, ok := params[name]
	if !ok {
		return "", fmt.Errorf("missing required argument: %s", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %s must be a string", name)
	}
	return s, nil
}

// RegisterAll registers every backend operation as a model-callable tool
func (b *Backends) RegisterAll(registry *tools.Registry) error {
	defs := []tools.Definition{
		{
			Name:        "get_order",
			Description: "Retrieve full order details by order_id, including items, total amount, and status.",
			Parameters: []tools.Parameter{
				{Name: "order_id", Type: "string", Description: "The unique order identifier (e.g. ORD-001)", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				orderID, err := stringArg(params, "order_id")
				if err != nil {
					return nil, err
				}
				order, ok := b.Orders.GetOrder(orderID)
				if !ok {
					return nil, nil
				}
				return order, nil
			},
		},
		{
			Name:        "get_order_status",
			Description: "Get the current status of an order (pending, processing, shipped, delivered, or cancelled).",
			Parameters: []tools.Parameter{
				{Name: "order_id", Type: "string", Description: "The unique order identifier", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				orderID, err := stringArg(params, "order_id")
				if err != nil {
					return nil, err
				}
				status, ok := b.Orders.GetOrderStatus(orderID)
				if !ok {
					return nil, nil
				}
				return status, nil
			},
		},
		{
			Name:        "swap_item",
			Description: "Swap an item in an order with another item. Only pending or processing orders can be modified.",
			Parameters: []tools.Parameter{
				{Name: "order_id", Type: "string", Description: "The unique order identifier", Required: true},
				{Name: "old_item_id", Type: "string", Description: "ID of the item to replace", Required: true},
				{Name: "new_item_id", Type: "string", Description: "ID of the new item", Required: true},
				{Name: "new_item_name", Type: "string", Description: "Name of the new item", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				orderID, err := stringArg(params, "order_id")
				if err != nil {
					return nil, err
				}
				oldItemID, err := stringArg(params, "old_item_id")
				if err != nil {
					return nil, err
				}
				newItemID, err := stringArg(params, "new_item_id")
				if err != nil {
					return nil, err
				}
				newItemName, err := stringArg(params, "new_item_name")
				if err != nil {
					return nil, err
				}
				return b.Orders.SwapItem(orderID, oldItemID, newItemID, newItemName), nil
			},
		},
		{
			Name:        "cancel_order",
			Description: "Cancel an order. Shipped or delivered orders cannot be cancelled; direct the client to returns instead.",
			Parameters: []tools.Parameter{
				{Name: "order_id", Type: "string", Description: "The unique order identifier", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				orderID, err := stringArg(params, "order_id")
				if err != nil {
					return nil, err
				}
				return b.Orders.CancelOrder(orderID), nil
			},
		},
		{
			Name:        "update_order_status",
			Description: "Update the status of an order to a new value.",
			Parameters: []tools.Parameter{
				{Name: "order_id", Type: "string", Description: "The unique order identifier", Required: true},
				{Name: "new_status", Type: "string", Description: "New status value", Required: true,
					Enum: []string{"pending", "processing", "shipped", "delivered", "cancelled"}},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				orderID, err := stringArg(params, "order_id")
				if err != nil {
					return nil, err
				}
				newStatus, err := stringArg(params, "new_status")
				if err != nil {
					return nil, err
				}
				return b.Orders.UpdateOrderStatus(orderID, newStatus), nil
			},
		},
		{
			Name:        "get_appointment",
			Description: "Retrieve appointment details by appointment_id.",
			Parameters: []tools.Parameter{
				{Name: "appointment_id", Type: "string", Description: "The unique appointment identifier (e.g. APT-001)", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				appointmentID, err := stringArg(params, "appointment_id")
				if err != nil {
					return nil, err
				}
				apt, ok := b.Appointments.GetAppointment(appointmentID)
				if !ok {
					return nil, nil
				}
				return apt, nil
			},
		},
		{
			Name:        "get_appointments_by_email",
			Description: "Retrieve all appointments for a client by email address.",
			Parameters: []tools.Parameter{
				{Name: "email", Type: "string", Description: "Client's email address", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				email, err := stringArg(params, "email")
				if err != nil {
					return nil, err
				}
				return b.Appointments.GetAppointmentsByEmail(email), nil
			},
		},
		{
			Name:        "get_appointments_by_phone",
			Description: "Retrieve all appointments for a client by phone number.",
			Parameters: []tools.Parameter{
				{Name: "phone", Type: "string", Description: "Client's phone number (format: +1-555-0101)", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				phone, err := stringArg(params, "phone")
				if err != nil {
					return nil, err
				}
				return b.Appointments.GetAppointmentsByPhone(phone), nil
			},
		},
		{
			Name:        "schedule_appointment",
			Description: "Schedule a new appointment. Fails if the client already has an active appointment at the same date and time.",
			Parameters: []tools.Parameter{
				{Name: "email", Type: "string", Description: "Client's email address", Required: true},
				{Name: "phone", Type: "string", Description: "Client's phone number", Required: true},
				{Name: "date", Type: "string", Description: "Appointment date in YYYY-MM-DD format", Required: true},
				{Name: "time", Type: "string", Description: "Appointment time in HH:MM format", Required: true},
				{Name: "service_type", Type: "string", Description: "Type of service requested", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				email, err := stringArg(params, "email")
				if err != nil {
					return nil, err
				}
				phone, err := stringArg(params, "phone")
				if err != nil {
					return nil, err
				}
				date, err := stringArg(params, "date")
				if err != nil {
					return nil, err
				}
				timeOfDay, err := stringArg(params, "time")
				if err != nil {
					return nil, err
				}
				serviceType, err := stringArg(params, "service_type")
				if err != nil {
					return nil, err
				}
				return b.Appointments.ScheduleAppointment(email, phone, date, timeOfDay, serviceType), nil
			},
		},
		{
			Name:        "reschedule_appointment",
			Description: "Move an existing appointment to a new date and time. Cancelled or completed appointments cannot be rescheduled.",
			Parameters: []tools.Parameter{
				{Name: "appointment_id", Type: "string", Description: "The unique appointment identifier", Required: true},
				{Name: "new_date", Type: "string", Description: "New date in YYYY-MM-DD format", Required: true},
				{Name: "new_time", Type: "string", Description: "New time in HH:MM format", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				appointmentID, err := stringArg(params, "appointment_id")
				if err != nil {
					return nil, err
				}
				newDate, err := stringArg(params, "new_date")
				if err != nil {
					return nil, err
				}
				newTime, err := stringArg(params, "new_time")
				if err != nil {
					return nil, err
				}
				return b.Appointments.RescheduleAppointment(appointmentID, newDate, newTime), nil
			},
		},
		{
			Name:        "cancel_appointment",
			Description: "Cancel an appointment that is not already cancelled or completed.",
			Parameters: []tools.Parameter{
				{Name: "appointment_id", Type: "string", Description: "The unique appointment identifier", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				appointmentID, err := stringArg(params, "appointment_id")
				if err != nil {
					return nil, err
				}
				return b.Appointments.CancelAppointment(appointmentID), nil
			},
		},
		{
			Name:        "confirm_appointment",
			Description: "Confirm a scheduled appointment.",
			Parameters: []tools.Parameter{
				{Name: "appointment_id", Type: "string", Description: "The unique appointment identifier", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				appointmentID, err := stringArg(params, "appointment_id")
				if err != nil {
					return nil, err
				}
				return b.Appointments.ConfirmAppointment(appointmentID), nil
			},
		},
		{
			Name: "search_products",
			Description: "Search products by name, description, category, or features. Use this when clients mention product " +
				"names or descriptions (e.g. \"merino jacket\", \"leather bag\", \"winter coats\"). Returns full product details " +
				"including product_id, sorted by relevance. ALWAYS use this first when clients describe what they're looking for, " +
				"rather than trying to construct or guess a product_id.",
			Parameters: []tools.Parameter{
				{Name: "query", Type: "string", Description: "Search query (product name, description, category, or feature keywords)", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				query, err := stringArg(params, "query")
				if err != nil {
					return nil, err
				}
				return b.Catalog.SearchProducts(query), nil
			},
		},
		{
			Name: "get_product",
			Description: "Get a specific product by its exact product_id in format PROD-XXX (e.g. \"PROD-001\"). " +
				"Do not use slugified names or product names as the product_id; use search_products first to find the correct id.",
			Parameters: []tools.Parameter{
				{Name: "product_id", Type: "string", Description: "Exact product identifier in format PROD-XXX", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				productID, err := stringArg(params, "product_id")
				if err != nil {
					return nil, err
				}
				product, ok := b.Catalog.GetProduct(productID)
				if !ok {
					return nil, nil
				}
				return product, nil
			},
		},
		{
			Name:        "get_products",
			Description: "Get all products in the catalog.",
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				return b.Catalog.GetProducts(), nil
			},
		},
		{
			Name:        "get_products_by_category",
			Description: "Get all products in a category (e.g. Outerwear, Knitwear, Accessories, Footwear).",
			Parameters: []tools.Parameter{
				{Name: "category", Type: "string", Description: "Product category", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				category, err := stringArg(params, "category")
				if err != nil {
					return nil, err
				}
				return b.Catalog.GetProductsByCategory(category), nil
			},
		},
		{
			Name:        "get_available_products",
			Description: "Get all products currently in stock.",
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				return b.Catalog.GetAvailableProducts(), nil
			},
		},
		{
			Name: "search_policies",
			Description: "Search company policies and service documents. Use this to find information about shipping, returns, " +
				"warranty, privacy, fitting services, styling sessions, VIP programs, and other policies.",
			Parameters: []tools.Parameter{
				{Name: "query", Type: "string", Description: "Search query (e.g. \"shipping\", \"returns\", \"fitting appointment\")", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				query, err := stringArg(params, "query")
				if err != nil {
					return nil, err
				}
				return b.Catalog.SearchPolicies(query), nil
			},
		},
		{
			Name:        "get_policy",
			Description: "Get a specific policy document by its doc_id (e.g. POL-001).",
			Parameters: []tools.Parameter{
				{Name: "doc_id", Type: "string", Description: "Policy document identifier", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				docID, err := stringArg(params, "doc_id")
				if err != nil {
					return nil, err
				}
				policy, ok := b.Catalog.GetPolicy(docID)
				if !ok {
					return nil, nil
				}
				return policy, nil
			},
		},
		{
			Name:        "get_policies_by_category",
			Description: "Get all policy documents in a category (shipping, returns, warranty, services, membership, privacy).",
			Parameters: []tools.Parameter{
				{Name: "category", Type: "string", Description: "Policy category", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				category, err := stringArg(params, "category")
				if err != nil {
					return nil, err
				}
				return b.Catalog.GetPoliciesByCategory(category), nil
			},
		},
		{
			Name:        "get_user_by_email",
			Description: "Get a client profile by email address (case-insensitive). Returns user_id, name, email, and phone.",
			Parameters: []tools.Parameter{
				{Name: "email", Type: "string", Description: "Client's email address", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				email, err := stringArg(params, "email")
				if err != nil {
					return nil, err
				}
				user, ok := b.Users.GetUserByEmail(email)
				if !ok {
					return nil, nil
				}
				return user, nil
			},
		},
		{
			Name:        "get_user_by_phone",
			Description: "Get a client profile by phone number. Returns user_id, name, email, and phone.",
			Parameters: []tools.Parameter{
				{Name: "phone", Type: "string", Description: "Client's phone number (format: +1-555-0101)", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				phone, err := stringArg(params, "phone")
				if err != nil {
					return nil, err
				}
				user, ok := b.Users.GetUserByPhone(phone)
				if !ok {
					return nil, nil
				}
				return user, nil
			},
		},
		{
			Name:        "get_user_by_id",
			Description: "Get a client profile by user_id.",
			Parameters: []tools.Parameter{
				{Name: "user_id", Type: "string", Description: "The unique user identifier", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				userID, err := stringArg(params, "user_id")
				if err != nil {
					return nil, err
				}
				user, ok := b.Users.GetUserByID(userID)
				if !ok {
					return nil, nil
				}
				return user, nil
			},
		},
		{
			Name:        "get_all_users",
			Description: "Get all client profiles in the system.",
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				return b.Users.GetAllUsers(), nil
			},
		},
	}

	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return fmt.Errorf("failed to register %s: %w", def.Name, err)
		}
	}
	return nil
}
