package inquiry

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	awsclient "storefront-services/internal/common/aws"
	"storefront-services/internal/common/config"
	"storefront-services/internal/common/errors"
	"storefront-services/internal/common/logger"
	"storefront-services/internal/common/metrics"
	"storefront-services/internal/models"
)

var ErrDeliveryFailed = stderrors.New("INQUIRY_DELIVERY_FAILED")

type Config struct {
	FromEmail     string
	Recipients    []string
	EmailEnabled  bool
	AlertsEnabled bool
	TopicARN      string
	Timeout       time.Duration
}

func ConfigFrom(cfg config.NotificationConfig) Config {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return Config{
		FromEmail:     cfg.Email.FromEmail,
		Recipients:    cfg.Email.Recipients,
		EmailEnabled:  cfg.Email.Enabled,
		AlertsEnabled: cfg.SMS.Enabled && cfg.SMS.TopicARN != "",
		TopicARN:      cfg.SMS.TopicARN,
		Timeout:       timeout,
	}
}

type Receipt struct {
	ID     string                `json:"id"`
	Status models.DeliveryStatus `json:"status"`
}

type Deliverer struct {
	config Config
	forms  *Forms
	email  awsclient.EmailSender
	alerts awsclient.AlertPublisher
	logger logger.Logger
	now    func() time.Time
}

// NewDeliverer wires the SES sender and the optional SNS publisher. Either
// may be nil when the matching channel is disabled.
func NewDeliverer(cfg Config, forms *Forms, email awsclient.EmailSender, alerts awsclient.AlertPublisher, log logger.Logger) *Deliverer {
	return &Deliverer{
		config: cfg,
		forms:  forms,
		email:  email,
		alerts: alerts,
		logger: log.WithFields(map[string]interface{}{"component": "inquiry"}),
		now:    time.Now,
	}
}

// Submit validates fields against the form for kind and delivers them.
func (d *Deliverer) Submit(ctx context.Context, kind models.InquiryKind, fields map[string]interface{}) (*Receipt, error) {
	if err := d.forms.Validate(string(kind), fields); err != nil {
		metrics.Inquiries.WithLabelValues(string(kind), "invalid").Inc()
		return nil, err
	}
	inq := models.Inquiry{
		ID:         uuid.New().String(),
		Kind:       kind,
		Fields:     fields,
		ReceivedAt: d.now().UTC(),
	}
	status, err := d.Deliver(ctx, inq)
	if err != nil {
		return nil, err
	}
	return &Receipt{ID: inq.ID, Status: status}, nil
}

// Deliver emails an already validated inquiry to the configured recipients.
// Forms flagged for alerts also publish to SNS; an alert failure downgrades
// the status to partial but is not an error.
func (d *Deliverer) Deliver(ctx context.Context, inq models.Inquiry) (models.DeliveryStatus, error) {
	form, ok := d.forms.Form(string(inq.Kind))
	if !ok {
		return "", errors.NewInvalidRequestError(fmt.Sprintf("unknown form %q", inq.Kind))
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	log := d.logger.WithFields(map[string]interface{}{
		"inquiryId": inq.ID,
		"kind":      string(inq.Kind),
	})

	body := FormatBody(form.DisplayName, inq)
	if !d.config.EmailEnabled || d.email == nil {
		log.Info("email delivery disabled, inquiry logged", map[string]interface{}{"body": body})
		metrics.Inquiries.WithLabelValues(string(inq.Kind), string(models.DeliveryLogged)).Inc()
		return models.DeliveryLogged, nil
	}

	replyTo := ""
	if form.ReplyTo != "" {
		replyTo, _ = inq.Fields[form.ReplyTo].(string)
	}
	input := awsclient.BuildEmail(d.config.FromEmail, d.config.Recipients, replyTo, form.Subject, body)
	if _, err := d.email.SendEmail(ctx, input); err != nil {
		log.Error("inquiry email failed", map[string]interface{}{"error": err.Error()})
		metrics.Inquiries.WithLabelValues(string(inq.Kind), "failed").Inc()
		return "", fmt.Errorf("%w: %w", ErrDeliveryFailed, errors.NewInquiryDeliveryFailedError(string(inq.Kind), err))
	}

	status := models.DeliverySent
	if form.Alert && d.config.AlertsEnabled && d.alerts != nil {
		alert := awsclient.BuildAlert(d.config.TopicARN, form.Subject, alertSummary(form.DisplayName, inq))
		if _, err := d.alerts.Publish(ctx, alert); err != nil {
			log.Warn("inquiry alert failed", map[string]interface{}{"error": err.Error()})
			status = models.DeliveryPartial
		}
	}

	log.Info("inquiry delivered", map[string]interface{}{"status": string(status)})
	metrics.Inquiries.WithLabelValues(string(inq.Kind), string(status)).Inc()
	return status, nil
}

// FormatBody renders one "field: value" line per submitted field, sorted by
// field name. Non-string values are written as JSON.
func FormatBody(title string, inq models.Inquiry) string {
	keys := make([]string, 0, len(inq.Fields))
	for k := range inq.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", title)
	fmt.Fprintf(&b, "Reference: %s\n", inq.ID)
	fmt.Fprintf(&b, "Received: %s\n\n", inq.ReceivedAt.Format(time.RFC3339))
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, formatValue(inq.Fields[k]))
	}
	return b.String()
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func alertSummary(title string, inq models.Inquiry) string {
	name, _ := inq.Fields["name"].(string)
	summary := fmt.Sprintf("%s from %s", title, name)
	if items, ok := inq.Fields["products"].([]interface{}); ok {
		summary += fmt.Sprintf(" (%d products)", len(items))
	}
	return summary
}
