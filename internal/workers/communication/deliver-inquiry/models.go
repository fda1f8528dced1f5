package deliverinquiry

import "storefront-services/internal/models"

type Input struct {
	Kind   models.InquiryKind     `json:"kind"`
	Fields map[string]interface{} `json:"fields"`
}

type Output struct {
	InquiryID string                `json:"inquiryId"`
	Status    models.DeliveryStatus `json:"status"`
}
