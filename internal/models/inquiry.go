package models

import "time"

type InquiryKind string

const (
	InquiryContact InquiryKind = "contact"
	InquiryQuote   InquiryKind = "quote"
)

type Inquiry struct {
	ID         string                 `json:"id"`
	Kind       InquiryKind            `json:"kind"`
	Fields     map[string]interface{} `json:"fields"`
	ReceivedAt time.Time              `json:"receivedAt"`
}

type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryPartial DeliveryStatus = "partial" // email sent, alert failed
	DeliveryLogged  DeliveryStatus = "logged"  // email disabled
)
