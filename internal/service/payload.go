package service

// ProvisionJobPayload is carried by provisioning jobs. TemporaryPassword is
// present so the notify step can transmit it exactly once; it is stored only
// inside the job payload and must never be logged or written to the step-log.
type ProvisionJobPayload struct {
	TaskID            string `json:"task_id"`
	SubscriptionID    string `json:"subscription_id"`
	CustomerID        string `json:"customer_id"`
	Domain            string `json:"domain"`
	Username          string `json:"username"`
	TemporaryPassword string `json:"temporary_password"`
}

// SuspendJobPayload is carried by suspension jobs
type SuspendJobPayload struct {
	SubscriptionID string `json:"subscription_id"`
	Reason         string `json:"reason"`
}

// InvoiceJobPayload is carried by renewal invoicing jobs
type InvoiceJobPayload struct {
	SubscriptionID string `json:"subscription_id"`
}

// SSLReminderJobPayload is carried by certificate expiry reminder jobs
type SSLReminderJobPayload struct {
	CertificateID string `json:"certificate_id"`
}

// BackupCleanupJobPayload is carried by backup retention jobs
type BackupCleanupJobPayload struct {
	RetentionDays int `json:"retention_days"`
}
