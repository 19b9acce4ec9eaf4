package types

import ierr "github.com/hoststack/hoststack/internal/errors"

// ProvisioningTaskStatus is the status of one workflow execution for one subscription
type ProvisioningTaskStatus string

const (
	ProvisioningTaskStatusQueued       ProvisioningTaskStatus = "queued"
	ProvisioningTaskStatusRunning      ProvisioningTaskStatus = "running"
	ProvisioningTaskStatusSucceeded    ProvisioningTaskStatus = "succeeded"
	ProvisioningTaskStatusFailed       ProvisioningTaskStatus = "failed"
	ProvisioningTaskStatusDeadLettered ProvisioningTaskStatus = "dead_lettered"
)

func (s ProvisioningTaskStatus) Validate() error {
	switch s {
	case ProvisioningTaskStatusQueued,
		ProvisioningTaskStatusRunning,
		ProvisioningTaskStatusSucceeded,
		ProvisioningTaskStatusFailed,
		ProvisioningTaskStatusDeadLettered:
		return nil
	}
	return ierr.NewError("invalid provisioning task status").
		WithHintf("Unknown provisioning task status: %s", s).
		Mark(ierr.ErrValidation)
}

// IsTerminal reports whether a task in this status can never transition again
func (s ProvisioningTaskStatus) IsTerminal() bool {
	switch s {
	case ProvisioningTaskStatusSucceeded, ProvisioningTaskStatusFailed, ProvisioningTaskStatusDeadLettered:
		return true
	}
	return false
}

// StepKind is one stage of the fixed six-stage provisioning workflow
type StepKind string

const (
	StepKindAccount  StepKind = "account"
	StepKindDNS      StepKind = "dns"
	StepKindSSL      StepKind = "ssl"
	StepKindEmail    StepKind = "email"
	StepKindDatabase StepKind = "database"
	StepKindNotify   StepKind = "notify"
)

// ProvisioningSteps is the fixed workflow order. The orchestrator iterates this
// slice and resumes from the first non-succeeded step on retry.
var ProvisioningSteps = []StepKind{
	StepKindAccount,
	StepKindDNS,
	StepKindSSL,
	StepKindEmail,
	StepKindDatabase,
	StepKindNotify,
}

func (k StepKind) Validate() error {
	switch k {
	case StepKindAccount, StepKindDNS, StepKindSSL, StepKindEmail, StepKindDatabase, StepKindNotify:
		return nil
	}
	return ierr.NewError("invalid step kind").
		WithHintf("Unknown step kind: %s", k).
		Mark(ierr.ErrValidation)
}

// StepStatus is the status of one attempt at one step within a task
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusSucceeded StepStatus = "succeeded"
	StepStatusSkipped   StepStatus = "skipped"
	StepStatusFailed    StepStatus = "failed"
)

// StepRecordKind distinguishes forward execution entries from compensation entries
// in the append-only step log.
type StepRecordKind string

const (
	StepRecordKindExecute    StepRecordKind = "execute"
	StepRecordKindCompensate StepRecordKind = "compensate"
)
