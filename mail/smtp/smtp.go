package smtp

import "time"

// Config contains SMTP connection parameters. Username and Password are the
// relay credentials and are filled from the sender credentials, not from SMTP_* variables.
type Config struct {
	Host     string        `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	Port     int           `envconfig:"SMTP_PORT" default:"465"`
	SSL      bool          `envconfig:"SMTP_SSL" default:"true"`       // implicit TLS from the first byte (port 465)
	StartTLS bool          `envconfig:"SMTP_STARTTLS" default:"false"` // upgrade a plain session, ignored when SSL is set
	Insecure bool          `envconfig:"SMTP_INSECURE" default:"false"` // skip certificate verification
	Timeout  time.Duration `envconfig:"SMTP_TIMEOUT" default:"15s"`    // whole session deadline
	Username string        `ignored:"true"`
	Password string        `ignored:"true"`
}
