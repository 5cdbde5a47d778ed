package brevo

import "time"

const (
	DefaultSubject    = "Payment Reminder"
	DefaultSenderName = "Freelancer Cashflow Guard"
)

// Config contains Brevo transactional email API parameters.
type Config struct {
	APIKey      string        `envconfig:"BREVO_API_KEY"`
	SenderEmail string        `envconfig:"BREVO_SENDER_EMAIL"`
	SenderName  string        `envconfig:"BREVO_SENDER_NAME" default:"Freelancer Cashflow Guard"`
	BaseURL     string        `envconfig:"BREVO_BASE_URL" default:"https://api.brevo.com"`
	Timeout     time.Duration `envconfig:"BREVO_TIMEOUT" default:"15s"`
}
