package domain

// Order Statuses
const (
	OrderStatusPending   = "pendiente"
	OrderStatusPaid      = "pagado"
	OrderStatusShipped   = "enviado"
	OrderStatusDelivered = "entregado"
	OrderStatusCancelled = "cancelado"
)

var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func IsValidOrderStatus(status string) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

const (
	RoleAdmin    = "admin"
	RoleCustomer = "cliente"
)

// Persisted session keys
const (
	SessionTokenKey = "token"
	SessionUserKey  = "user"
)

// EventAuthChanged is published whenever the persisted session changes.
const EventAuthChanged = "auth_changed"
