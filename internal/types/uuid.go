package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex task_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

// initializeSID initializes the shortid generator once
func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateShortIDWithPrefix returns a short ID with a prefix.
// Total length is capped at 12 characters, e.g., `wk_xYZ12A8Q`.
func GenerateShortIDWithPrefix(prefix string) string {
	once.Do(initializeSID)

	id, err := sidGenerator.Generate()
	if err != nil {
		return ""
	}
	id = strings.ReplaceAll(id, "-", "")

	availableLen := 12 - len(prefix)
	if availableLen <= 0 {
		return ""
	}

	if len(id) > availableLen {
		id = id[:availableLen]
	}

	shortId := strings.ToUpper(fmt.Sprintf("%s%s", prefix, id))

	return shortId
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_CHECKOUT_SESSION  = "sess"
	UUID_PREFIX_CUSTOMER          = "cust"
	UUID_PREFIX_USER_CREDENTIAL   = "cred"
	UUID_PREFIX_SUBSCRIPTION      = "subs"
	UUID_PREFIX_SERVER            = "srv"
	UUID_PREFIX_WEBSITE           = "site"
	UUID_PREFIX_PROVISIONING_TASK = "task"
	UUID_PREFIX_STEP_RECORD       = "step"
	UUID_PREFIX_JOB               = "job"
	UUID_PREFIX_INVOICE           = "inv"
	UUID_PREFIX_BACKUP            = "bkp"
	UUID_PREFIX_PAYMENT_EVENT     = "pevt"
	UUID_PREFIX_WORKER            = "wk"
	UUID_PREFIX_TENANT            = "tenant"
)
