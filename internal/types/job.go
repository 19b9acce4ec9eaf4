package types

import ierr "github.com/hoststack/hoststack/internal/errors"

// QueueName is the name of a durable job queue
type QueueName string

const (
	QueueProvisioning QueueName = "provisioning"
	QueueEmails       QueueName = "emails"
	QueueInvoices     QueueName = "invoices"
	QueueBackups      QueueName = "backups"
)

// QueueNames lists every queue the process runs workers for
var QueueNames = []QueueName{QueueProvisioning, QueueEmails, QueueInvoices, QueueBackups}

func (q QueueName) Validate() error {
	switch q {
	case QueueProvisioning, QueueEmails, QueueInvoices, QueueBackups:
		return nil
	}
	return ierr.NewError("invalid queue name").
		WithHintf("Unknown queue name: %s", q).
		Mark(ierr.ErrValidation)
}

// JobStatus is the status of a queue element
type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusReserved JobStatus = "reserved"
	JobStatusDone     JobStatus = "done"
	JobStatusFailed   JobStatus = "failed"
)

// JobKind identifies the handler a job is dispatched to within its queue
type JobKind string

const (
	JobKindProvisionSubscription JobKind = "provision_subscription"
	JobKindSuspendSubscription   JobKind = "suspend_subscription"
	JobKindGenerateInvoice       JobKind = "generate_invoice"
	JobKindSSLExpiryReminder     JobKind = "ssl_expiry_reminder"
	JobKindBackupCleanup         JobKind = "backup_cleanup"
)

const (
	// DefaultJobPriority is used when the caller does not specify one; lower runs sooner.
	DefaultJobPriority = 10

	// ProvisioningJobPriority is the priority of webhook-triggered provisioning jobs.
	ProvisioningJobPriority = 5
)
