package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hoststack/hoststack/internal/adapter/cert"
	"github.com/hoststack/hoststack/internal/adapter/dbengine"
	"github.com/hoststack/hoststack/internal/adapter/dns"
	"github.com/hoststack/hoststack/internal/adapter/hosting"
	"github.com/hoststack/hoststack/internal/adapter/mail"
	"github.com/hoststack/hoststack/internal/adapter/notify"
	"github.com/hoststack/hoststack/internal/domain/server"
	ierr "github.com/hoststack/hoststack/internal/errors"
)

// RetryableAdapterError builds an error classified as retryable, as a
// timeout or 5xx from a backend would be.
func RetryableAdapterError(msg string) error {
	return ierr.NewError(msg).Mark(ierr.ErrAdapterRetryable)
}

// FatalAdapterError builds an error classified as fatal, as a 4xx from a
// backend would be.
func FatalAdapterError(msg string) error {
	return ierr.NewError(msg).Mark(ierr.ErrAdapterFatal)
}

// AdapterCall records one invocation against a fake backend
type AdapterCall struct {
	Op             string
	Target         string
	IdempotencyKey string
}

// fakeBackend provides call recording and error scripting shared by all
// fakes. ScriptError queues an error for the next call of the given op.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []AdapterCall
	scripts map[string][]error
}

func newFakeBackend() fakeBackend {
	return fakeBackend{scripts: make(map[string][]error)}
}

// ScriptError queues err to be returned by the next call of op. Multiple
// queued errors are consumed in order; later calls succeed again.
func (b *fakeBackend) ScriptError(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts[op] = append(b.scripts[op], err)
}

// record logs the call and pops a scripted error for the op, if any
func (b *fakeBackend) record(op, target, idemKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, AdapterCall{Op: op, Target: target, IdempotencyKey: idemKey})
	if queue := b.scripts[op]; len(queue) > 0 {
		err := queue[0]
		b.scripts[op] = queue[1:]
		return err
	}
	return nil
}

// Calls returns every recorded invocation in order
func (b *fakeBackend) Calls() []AdapterCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]AdapterCall(nil), b.calls...)
}

// CallsFor returns the invocations of one op in order
func (b *fakeBackend) CallsFor(op string) []AdapterCall {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []AdapterCall
	for _, c := range b.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func replayConflict(op, idemKey string) error {
	return ierr.NewError("resource already exists").
		WithHintf("Idempotency key %s was already used for %s", idemKey, op).
		Mark(ierr.ErrAlreadyExists)
}

// FakeHostingAdapter implements hosting.Adapter against in-memory state.
// Repeating CreateAccount with a known idempotency key returns the original
// account alongside an already-exists error, matching real backends.
type FakeHostingAdapter struct {
	fakeBackend

	accounts  map[string]*hosting.CreateAccountResult
	suspended map[string]bool
}

func NewFakeHostingAdapter() *FakeHostingAdapter {
	return &FakeHostingAdapter{
		fakeBackend: newFakeBackend(),
		accounts:    make(map[string]*hosting.CreateAccountResult),
		suspended:   make(map[string]bool),
	}
}

func (f *FakeHostingAdapter) CreateAccount(ctx context.Context, srv *server.Server, req hosting.CreateAccountRequest, idemKey string) (*hosting.CreateAccountResult, error) {
	if err := f.record("create_account", req.Domain, idemKey); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.accounts[idemKey]; ok {
		return existing, replayConflict("create_account", idemKey)
	}

	result := &hosting.CreateAccountResult{
		AccountID:       "acct_" + req.Username,
		ControlPanelURL: fmt.Sprintf("https://%s:2083", srv.Hostname),
	}
	f.accounts[idemKey] = result
	return result, nil
}

func (f *FakeHostingAdapter) Suspend(ctx context.Context, srv *server.Server, accountID string) error {
	if err := f.record("suspend", accountID, ""); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suspended[accountID] = true
	return nil
}

func (f *FakeHostingAdapter) Unsuspend(ctx context.Context, srv *server.Server, accountID string) error {
	if err := f.record("unsuspend", accountID, ""); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.suspended, accountID)
	return nil
}

func (f *FakeHostingAdapter) Terminate(ctx context.Context, srv *server.Server, accountID string) error {
	return f.record("terminate", accountID, "")
}

// IsSuspended reports whether the account is currently suspended
func (f *FakeHostingAdapter) IsSuspended(accountID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suspended[accountID]
}

// FakeHostingFactory implements hosting.AdapterFactory, serving the same
// fake adapter for every control panel kind.
type FakeHostingFactory struct {
	Adapter *FakeHostingAdapter
}

func NewFakeHostingFactory() *FakeHostingFactory {
	return &FakeHostingFactory{Adapter: NewFakeHostingAdapter()}
}

func (f *FakeHostingFactory) ForServer(srv *server.Server) (hosting.Adapter, error) {
	return f.Adapter, nil
}

// FakeDNSProvider implements dns.Provider against in-memory zones
type FakeDNSProvider struct {
	fakeBackend

	zones   map[string]*dns.Zone
	records map[string][]dns.Record
}

func NewFakeDNSProvider() *FakeDNSProvider {
	return &FakeDNSProvider{
		fakeBackend: newFakeBackend(),
		zones:       make(map[string]*dns.Zone),
		records:     make(map[string][]dns.Record),
	}
}

func (f *FakeDNSProvider) CreateZone(ctx context.Context, domain string, nameservers []string, idemKey string) (*dns.Zone, error) {
	if err := f.record("create_zone", domain, idemKey); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.zones[idemKey]; ok {
		return existing, replayConflict("create_zone", idemKey)
	}

	zone := &dns.Zone{
		ZoneID:      "zone_" + domain,
		Domain:      domain,
		Nameservers: append([]string(nil), nameservers...),
	}
	f.zones[idemKey] = zone
	return zone, nil
}

func (f *FakeDNSProvider) AddRecord(ctx context.Context, zoneID string, rec dns.Record, idemKey string) error {
	if err := f.record("add_record", zoneID, idemKey); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[zoneID] = append(f.records[zoneID], rec)
	return nil
}

func (f *FakeDNSProvider) DeleteZone(ctx context.Context, zoneID string) error {
	if err := f.record("delete_zone", zoneID, ""); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, zoneID)
	return nil
}

// Records returns the records added to a zone
func (f *FakeDNSProvider) Records(zoneID string) []dns.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dns.Record(nil), f.records[zoneID]...)
}

// FakeCertIssuer implements cert.Issuer with 90-day certificates
type FakeCertIssuer struct {
	fakeBackend

	certs map[string]*cert.Certificate
}

func NewFakeCertIssuer() *FakeCertIssuer {
	return &FakeCertIssuer{
		fakeBackend: newFakeBackend(),
		certs:       make(map[string]*cert.Certificate),
	}
}

func (f *FakeCertIssuer) Issue(ctx context.Context, domain, contactEmail, idemKey string) (*cert.Certificate, error) {
	if err := f.record("issue", domain, idemKey); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.certs[idemKey]; ok {
		return existing, replayConflict("issue", idemKey)
	}

	now := time.Now().UTC()
	crt := &cert.Certificate{
		CertID:    "ca_" + domain,
		Domain:    domain,
		NotBefore: now,
		NotAfter:  now.AddDate(0, 0, 90),
	}
	f.certs[idemKey] = crt
	return crt, nil
}

func (f *FakeCertIssuer) Renew(ctx context.Context, certID string) (*cert.Certificate, error) {
	if err := f.record("renew", certID, ""); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &cert.Certificate{
		CertID:    certID,
		NotBefore: now,
		NotAfter:  now.AddDate(0, 0, 90),
	}, nil
}

func (f *FakeCertIssuer) Revoke(ctx context.Context, certID string) error {
	return f.record("revoke", certID, "")
}

// FakeMailProvider implements mail.Provider
type FakeMailProvider struct {
	fakeBackend

	mailboxes map[string]*mail.Mailbox
}

func NewFakeMailProvider() *FakeMailProvider {
	return &FakeMailProvider{
		fakeBackend: newFakeBackend(),
		mailboxes:   make(map[string]*mail.Mailbox),
	}
}

func (f *FakeMailProvider) CreateMailbox(ctx context.Context, req mail.CreateMailboxRequest, idemKey string) (*mail.Mailbox, error) {
	if err := f.record("create_mailbox", req.Address, idemKey); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.mailboxes[idemKey]; ok {
		return existing, replayConflict("create_mailbox", idemKey)
	}

	mb := &mail.Mailbox{
		MailboxID:  "mbx_" + req.Address,
		Address:    req.Address,
		WebmailURL: "https://webmail.example.net",
	}
	f.mailboxes[idemKey] = mb
	return mb, nil
}

func (f *FakeMailProvider) ChangePassword(ctx context.Context, mailboxID, password string) error {
	return f.record("change_password", mailboxID, "")
}

func (f *FakeMailProvider) SetQuota(ctx context.Context, mailboxID string, quotaMB int) error {
	return f.record("set_quota", mailboxID, "")
}

func (f *FakeMailProvider) Delete(ctx context.Context, mailboxID string) error {
	return f.record("delete_mailbox", mailboxID, "")
}

// FakeDatabaseProvider implements dbengine.Provider
type FakeDatabaseProvider struct {
	fakeBackend

	databases map[string]*dbengine.Database
}

func NewFakeDatabaseProvider() *FakeDatabaseProvider {
	return &FakeDatabaseProvider{
		fakeBackend: newFakeBackend(),
		databases:   make(map[string]*dbengine.Database),
	}
}

func (f *FakeDatabaseProvider) CreateDatabase(ctx context.Context, req dbengine.CreateDatabaseRequest, idemKey string) (*dbengine.Database, error) {
	if err := f.record("create_database", req.Name, idemKey); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.databases[idemKey]; ok {
		return existing, replayConflict("create_database", idemKey)
	}

	db := &dbengine.Database{
		DatabaseID: "db_" + req.Name,
		Name:       req.Name,
		Host:       "db.internal.example.net",
		Port:       3306,
	}
	f.databases[idemKey] = db
	return db, nil
}

func (f *FakeDatabaseProvider) DropDatabase(ctx context.Context, databaseID string) error {
	return f.record("drop_database", databaseID, "")
}

// FakeNotifier implements notify.Notifier, capturing sent emails so tests
// can assert on delivery without a relay.
type FakeNotifier struct {
	fakeBackend

	welcomes  []notify.WelcomeEmail
	reminders []string
	overdues  []string
	seenKeys  map[string]bool
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{
		fakeBackend: newFakeBackend(),
		seenKeys:    make(map[string]bool),
	}
}

func (f *FakeNotifier) dedupe(op, idemKey string) error {
	if idemKey == "" {
		return nil
	}
	if f.seenKeys[op+":"+idemKey] {
		return replayConflict(op, idemKey)
	}
	f.seenKeys[op+":"+idemKey] = true
	return nil
}

func (f *FakeNotifier) SendWelcome(ctx context.Context, email notify.WelcomeEmail, idemKey string) error {
	if err := f.record("send_welcome", email.To, idemKey); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.dedupe("send_welcome", idemKey); err != nil {
		return err
	}
	f.welcomes = append(f.welcomes, email)
	return nil
}

func (f *FakeNotifier) SendSSLExpiryReminder(ctx context.Context, to, domain string, daysLeft int, idemKey string) error {
	if err := f.record("send_ssl_reminder", to, idemKey); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.dedupe("send_ssl_reminder", idemKey); err != nil {
		return err
	}
	f.reminders = append(f.reminders, domain)
	return nil
}

func (f *FakeNotifier) SendPaymentOverdue(ctx context.Context, to, domain string, idemKey string) error {
	if err := f.record("send_payment_overdue", to, idemKey); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.dedupe("send_payment_overdue", idemKey); err != nil {
		return err
	}
	f.overdues = append(f.overdues, domain)
	return nil
}

// Welcomes returns the captured welcome emails
func (f *FakeNotifier) Welcomes() []notify.WelcomeEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.WelcomeEmail(nil), f.welcomes...)
}

// Reminders returns the domains of captured ssl expiry reminders
func (f *FakeNotifier) Reminders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reminders...)
}

// Overdues returns the domains of captured overdue notices
func (f *FakeNotifier) Overdues() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.overdues...)
}
