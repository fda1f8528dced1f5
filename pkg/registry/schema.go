package registry

// FormRegistry describes the public forms the site accepts and the JSON
// schema each submission must satisfy.
type FormRegistry struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Forms       []Form `json:"forms"`
}

type Form struct {
	ID          string                 `json:"id"`
	DisplayName string                 `json:"displayName"`
	Subject     string                 `json:"subject"`
	ReplyTo     string                 `json:"replyTo,omitempty"` // field whose value becomes Reply-To
	Alert       bool                   `json:"alert"`             // also publish an SNS alert
	Schema      map[string]interface{} `json:"schema"`
}
