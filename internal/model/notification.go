package model

import (
	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationNewAppointment NotificationType = "new_appointment"
	NotificationLowStockAlert  NotificationType = "low_stock_alert"
)

// Notification is the event shape pushed to the notification port: one
// message per recipient.
type Notification struct {
	Type      NotificationType       `json:"type"`
	Recipient uuid.UUID              `json:"recipient"`
	Data      map[string]interface{} `json:"data"`
}
