package config

// NotifyCfg configures the notification fan-out: optional channel targets
// plus per-category toggles. A disabled category is a silent no-op.
type NotifyCfg struct {
	WebhookURL  string
	NatsSubject string

	CompletionNotifications bool
	FailureAlerts           bool
	CostAlerts              bool
}

func NewNotifyCfg() *NotifyCfg {
	return &NotifyCfg{
		WebhookURL:              envStr("NOTIFY_WEBHOOK_URL", ""),
		NatsSubject:             envStr("NOTIFY_NATS_SUBJECT", "sessions.lifecycle"),
		CompletionNotifications: envBool("NOTIFY_COMPLETIONS", true),
		FailureAlerts:           envBool("NOTIFY_FAILURES", true),
		CostAlerts:              envBool("NOTIFY_COSTS", true),
	}
}
