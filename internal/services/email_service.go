package services

import (
	"context"
	"fmt"
	"strings"

	brevo "github.com/getbrevo/brevo-go/lib"

	"fulfillment-api/internal/config"
	"fulfillment-api/internal/database"
	"fulfillment-api/internal/marketplace"
	"fulfillment-api/pkg/logging"
)

// EmailService sends lifecycle notifications through the Brevo transactional
// email API. Recipients come from the plan's configured event rows, the
// subject/body from the persisted templates.
type EmailService struct {
	api              *brevo.APIClient
	fromEmail        string
	fromName         string
	templates        *database.EmailTemplateStore
	plans            *database.PlanStore
	autoProvisioning bool
	logger           logging.Logger
}

// NewEmailService wires the Brevo client from configuration.
func NewEmailService(cfg *config.Config, templates *database.EmailTemplateStore, plans *database.PlanStore, logger logging.Logger) *EmailService {
	apiCfg := brevo.NewConfiguration()
	apiCfg.AddDefaultHeader("api-key", cfg.BrevoAPIKey)

	return &EmailService{
		api:              brevo.NewAPIClient(apiCfg),
		fromEmail:        cfg.BrevoFromEmail,
		fromName:         cfg.BrevoFromName,
		templates:        templates,
		plans:            plans,
		autoProvisioning: cfg.AutoProvisioningSupported,
		logger:           logger,
	}
}

// SendLifecycleNotification emails the recipients configured for the named
// plan event. succeeded selects between the event's success and failure
// recipient lists; the template is chosen by the subscription's status.
// A missing template or empty recipient list is not an error.
func (s *EmailService) SendLifecycleNotification(ctx context.Context, eventName string, sub *marketplace.Subscription, planInternalID uint, succeeded bool) error {
	tpl, err := s.templates.GetByStatus(string(sub.Status))
	if err != nil {
		return fmt.Errorf("failed to load template for status %s: %w", sub.Status, err)
	}
	if tpl == nil {
		s.logger.Infof("No email template configured for status %s, skipping notification", sub.Status)
		return nil
	}

	recipients, copyToCustomer, err := s.resolveRecipients(planInternalID, eventName, succeeded)
	if err != nil {
		return err
	}
	if copyToCustomer && sub.Purchaser.Email != "" {
		recipients = append(recipients, sub.Purchaser.Email)
	}
	if len(recipients) == 0 {
		s.logger.Infof("No recipients configured for plan event %s, skipping notification", eventName)
		return nil
	}

	body := tpl.Body
	if tpl.InsertMerge {
		body = fmt.Sprintf(tpl.Body, sub.Name, sub.PlanID)
	}

	to := make([]brevo.SendSmtpEmailTo, 0, len(recipients))
	for _, email := range recipients {
		to = append(to, brevo.SendSmtpEmailTo{Email: email})
	}

	_, _, err = s.api.TransactionalEmailsApi.SendTransacEmail(ctx, brevo.SendSmtpEmail{
		Sender:      &brevo.SendSmtpEmailSender{Name: s.fromName, Email: s.fromEmail},
		To:          to,
		Subject:     tpl.Subject,
		TextContent: body,
	})
	if err != nil {
		return fmt.Errorf("brevo send failed: %w", err)
	}

	s.logger.Infof("Lifecycle notification %s sent for subscription %s to %d recipients", eventName, sub.ID, len(to))
	return nil
}

// resolveRecipients reads the plan's event configuration and returns the
// matching recipient list plus the copy-to-customer flag.
func (s *EmailService) resolveRecipients(planInternalID uint, eventName string, succeeded bool) ([]string, bool, error) {
	if planInternalID == 0 {
		return nil, false, nil
	}

	events, err := s.plans.GetEventsByPlan(planInternalID, s.autoProvisioning)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load plan events: %w", err)
	}

	for _, event := range events {
		if event.EventName != eventName {
			continue
		}
		list := event.SuccessStateEmails
		if !succeeded {
			list = event.FailureStateEmails
		}
		return splitEmails(list), event.CopyToCustomer, nil
	}
	return nil, false, nil
}

func splitEmails(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if email := strings.TrimSpace(part); email != "" {
			out = append(out, email)
		}
	}
	return out
}
