package service

import (
	"bytes"
	"fmt"
	"text/template"

	"restaurant-fulfillment/internal/messaging"
)

type rendered struct {
	Subject string
	Email   string
	SMS     string
}

var (
	confirmationEmail = template.Must(template.New("confirmation_email").Parse(
		`Hi {{.Recipient.Name}},

Your order {{.OrderNumber}} has been received and is {{.Status}}.
Total: {{.Total}} {{.Currency}}
Pickup code: {{.OTP}}
{{if gt .PointsEarned 0}}You earned {{.PointsEarned}} loyalty points.
{{end}}`))
	confirmationSMS = template.Must(template.New("confirmation_sms").Parse(
		`Order {{.OrderNumber}} received. Code {{.OTP}}. Total {{.Total}} {{.Currency}}.`))

	feedbackEmail = template.Must(template.New("feedback_email").Parse(
		`Hi {{.Recipient.Name}},

Thanks for ordering with us. How was order {{.OrderNumber}}? Reply to this message to tell us.
`))
	feedbackSMS = template.Must(template.New("feedback_sms").Parse(
		`How was order {{.OrderNumber}}? Reply to let us know.`))
)

func render(m messaging.Message) (rendered, error) {
	var (
		data       any
		email, sms *template.Template
		out        rendered
	)
	switch {
	case m.Kind == messaging.KindOrderConfirmation && m.Confirmation != nil:
		data, email, sms = m.Confirmation, confirmationEmail, confirmationSMS
		out.Subject = "Order " + m.Confirmation.OrderNumber + " confirmed"
	case m.Kind == messaging.KindFeedbackRequest && m.Feedback != nil:
		data, email, sms = m.Feedback, feedbackEmail, feedbackSMS
		out.Subject = "How was your order?"
	default:
		return out, fmt.Errorf("unsupported message kind %q", m.Kind)
	}

	var buf bytes.Buffer
	if err := email.Execute(&buf, data); err != nil {
		return out, fmt.Errorf("render email: %w", err)
	}
	out.Email = buf.String()
	buf.Reset()
	if err := sms.Execute(&buf, data); err != nil {
		return out, fmt.Errorf("render sms: %w", err)
	}
	out.SMS = buf.String()
	return out, nil
}
