package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"prospect-platform/backend/internal/lead/domain"
	"prospect-platform/backend/internal/lead/leadtest"
	"prospect-platform/backend/internal/lock"
	"prospect-platform/backend/internal/platform/background"
	propertydomain "prospect-platform/backend/internal/property/domain"
	"prospect-platform/backend/internal/security"
)

type countingRecorder struct {
	mu        sync.Mutex
	generated int
	conflicts int
}

func (r *countingRecorder) LoginAttempt(string) {}

func (r *countingRecorder) LeadGenerated() {
	r.mu.Lock()
	r.generated++
	r.mu.Unlock()
}

func (r *countingRecorder) LeadConflict() {
	r.mu.Lock()
	r.conflicts++
	r.mu.Unlock()
}

type fixture struct {
	svc        *LeadService
	leads      *leadtest.Leads
	properties *leadtest.Properties
	devices    *leadtest.Devices
	publisher  *leadtest.Publisher
	runner     *background.Runner
	recorder   *countingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		leads:      leadtest.NewLeads(),
		properties: leadtest.NewProperties(),
		devices:    leadtest.NewDevices(),
		publisher:  &leadtest.Publisher{},
		runner:     background.NewRunner(nil, time.Second),
		recorder:   &countingRecorder{},
	}
	f.svc = NewLeadService(Deps{
		Leads:      f.leads,
		Properties: f.properties,
		Devices:    f.devices,
		Locker:     lock.NewLocal(lock.Retry{Attempts: 200, Delay: time.Millisecond}),
		Signer:     security.PassthroughSigner{BaseURL: "https://cdn.example.com"},
		Publisher:  f.publisher,
		Metrics:    f.recorder,
		Runner:     f.runner,
	})
	return f
}

func (f *fixture) addProperty(owner, title string) string {
	return f.properties.Add(&propertydomain.Property{ListedByUserID: owner, Title: title, Logo: "logos/" + title + ".png"})
}

func TestCheckThenGenerateThenCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.addProperty("owner-1", "tower")

	exists, err := f.svc.CheckLeadExists(ctx, "user-1", pid)
	if err != nil {
		t.Fatalf("CheckLeadExists: %v", err)
	}
	if exists {
		t.Fatal("lead should not exist before generate")
	}

	l, err := f.svc.GenerateLead(ctx, "user-1", pid)
	if err != nil {
		t.Fatalf("GenerateLead: %v", err)
	}
	if l.ID == "" {
		t.Error("lead id should be set")
	}
	if l.ListedByUserID != "owner-1" || l.UserID != "user-1" || l.PropertyID != pid {
		t.Errorf("lead = %+v", l)
	}
	if l.Status != domain.StatusActive {
		t.Errorf("status = %q, want active", l.Status)
	}

	exists, err = f.svc.CheckLeadExists(ctx, "user-1", pid)
	if err != nil {
		t.Fatalf("CheckLeadExists: %v", err)
	}
	if !exists {
		t.Error("lead should exist after generate")
	}
	f.runner.Wait()
	if f.recorder.generated != 1 {
		t.Errorf("leads generated = %d, want 1", f.recorder.generated)
	}
}

func TestGenerateLead_UnknownProperty(t *testing.T) {
	f := newFixture(t)
	for _, pid := range []string{"000000000000000000000bad", "not-an-object-id", ""} {
		_, err := f.svc.GenerateLead(context.Background(), "user-1", pid)
		if !errors.Is(err, ErrPropertyNotFound) {
			t.Errorf("GenerateLead(%q) err = %v, want ErrPropertyNotFound", pid, err)
		}
	}
	if f.leads.Creates != 0 {
		t.Errorf("creates = %d, want 0", f.leads.Creates)
	}
}

func TestGenerateLead_DuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.addProperty("owner-1", "tower")

	if _, err := f.svc.GenerateLead(ctx, "user-1", pid); err != nil {
		t.Fatalf("first GenerateLead: %v", err)
	}
	if _, err := f.svc.GenerateLead(ctx, "user-1", pid); !errors.Is(err, ErrLeadExists) {
		t.Fatalf("second GenerateLead err = %v, want ErrLeadExists", err)
	}
	if f.leads.Count() != 1 {
		t.Errorf("leads = %d, want 1", f.leads.Count())
	}
	if _, err := f.svc.GenerateLead(ctx, "user-2", pid); err != nil {
		t.Errorf("other user GenerateLead: %v", err)
	}
	f.runner.Wait()
	if f.recorder.conflicts != 1 {
		t.Errorf("conflicts = %d, want 1", f.recorder.conflicts)
	}
}

func TestGenerateLead_ConcurrentCreatesOne(t *testing.T) {
	f := newFixture(t)
	pid := f.addProperty("owner-1", "tower")

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.GenerateLead(context.Background(), "user-1", pid)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrLeadExists):
				conflicts++
			default:
				t.Errorf("GenerateLead: %v", err)
			}
		}()
	}
	wg.Wait()
	if created != 1 || conflicts != n-1 {
		t.Errorf("created = %d, conflicts = %d, want 1 and %d", created, conflicts, n-1)
	}
	if f.leads.Count() != 1 {
		t.Errorf("stored leads = %d, want 1", f.leads.Count())
	}
}

func TestGenerateLead_NotifiesOwnerDevice(t *testing.T) {
	f := newFixture(t)
	pid := f.addProperty("owner-1", "tower")
	f.devices.Bind("owner-1", "fcm-token-1")

	l, err := f.svc.GenerateLead(context.Background(), "user-1", pid)
	if err != nil {
		t.Fatalf("GenerateLead: %v", err)
	}
	f.runner.Wait()
	sent := f.publisher.Sent()
	if len(sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(sent))
	}
	if sent[0].RecipientUserID != "owner-1" || sent[0].DeviceToken != "fcm-token-1" {
		t.Errorf("notification = %+v", sent[0])
	}
	if sent[0].Data["lead_id"] != l.ID {
		t.Errorf("lead_id = %q, want %q", sent[0].Data["lead_id"], l.ID)
	}
}

func TestGenerateLead_NoOwnerDeviceNoNotification(t *testing.T) {
	f := newFixture(t)
	pid := f.addProperty("owner-1", "tower")
	if _, err := f.svc.GenerateLead(context.Background(), "user-1", pid); err != nil {
		t.Fatalf("GenerateLead: %v", err)
	}
	f.runner.Wait()
	if n := len(f.publisher.Sent()); n != 0 {
		t.Errorf("notifications = %d, want 0", n)
	}
}

func TestGenerateLead_StoreFailure(t *testing.T) {
	f := newFixture(t)
	pid := f.addProperty("owner-1", "tower")
	f.leads.Err = errors.New("connection reset")
	_, err := f.svc.GenerateLead(context.Background(), "user-1", pid)
	if err == nil || errors.Is(err, ErrLeadExists) || errors.Is(err, ErrPropertyNotFound) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}

func TestListProjectsWithLeadsSummary_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		f.addProperty("owner-1", fmt.Sprintf("p%02d", i))
	}
	f.addProperty("owner-2", "other")

	tests := []struct {
		page, perPage int
		wantItems     int
	}{
		{1, 10, 10},
		{2, 10, 10},
		{3, 10, 5},
		{4, 10, 0},
	}
	for _, tt := range tests {
		got, err := f.svc.ListProjectsWithLeadsSummary(ctx, "owner-1", tt.page, tt.perPage)
		if err != nil {
			t.Fatalf("page %d: %v", tt.page, err)
		}
		if len(got.Projects) != tt.wantItems {
			t.Errorf("page %d items = %d, want %d", tt.page, len(got.Projects), tt.wantItems)
		}
		if got.TotalCount != 25 {
			t.Errorf("page %d total = %d, want 25", tt.page, got.TotalCount)
		}
	}
}

func TestListProjectsWithLeadsSummary_Enrichment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rising := f.addProperty("owner-1", "rising")
	flat := f.addProperty("owner-1", "flat")
	f.properties.SetCandles(rising, 100, 120, 150)
	f.properties.SetCandles(flat, 100)
	if _, err := f.svc.GenerateLead(ctx, "user-1", rising); err != nil {
		t.Fatalf("GenerateLead: %v", err)
	}
	if _, err := f.svc.GenerateLead(ctx, "user-2", rising); err != nil {
		t.Fatalf("GenerateLead: %v", err)
	}

	got, err := f.svc.ListProjectsWithLeadsSummary(ctx, "owner-1", 1, 10)
	if err != nil {
		t.Fatalf("ListProjectsWithLeadsSummary: %v", err)
	}
	if len(got.Projects) != 2 {
		t.Fatalf("projects = %d, want 2", len(got.Projects))
	}
	byTitle := map[string]ProjectSummary{}
	for _, p := range got.Projects {
		byTitle[p.Property.Title] = p
	}

	r := byTitle["rising"]
	if !r.Change.Change.Equal(decimal.NewFromInt(50)) || !r.Change.ChangePercent.Equal(decimal.NewFromInt(50)) {
		t.Errorf("rising change = %s / %s, want 50 / 50", r.Change.Change, r.Change.ChangePercent)
	}
	if r.ActiveLeads != 2 {
		t.Errorf("rising active leads = %d, want 2", r.ActiveLeads)
	}
	if r.LogoURL != "https://cdn.example.com/logos/rising.png" {
		t.Errorf("logo = %q", r.LogoURL)
	}
	if len(r.Candles) != 3 {
		t.Errorf("candles = %d, want 3", len(r.Candles))
	}

	fl := byTitle["flat"]
	if !fl.Change.Change.IsZero() || !fl.Change.ChangePercent.IsZero() {
		t.Errorf("flat change = %s / %s, want 0 / 0", fl.Change.Change, fl.Change.ChangePercent)
	}
	if fl.ActiveLeads != 0 {
		t.Errorf("flat active leads = %d, want 0", fl.ActiveLeads)
	}
}

func TestGetCandles(t *testing.T) {
	f := newFixture(t)
	pid := f.addProperty("owner-1", "tower")
	f.properties.SetCandles(pid, 200, 150)

	got, err := f.svc.GetCandles(context.Background(), pid)
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	if !got.Change.Change.Equal(decimal.NewFromInt(-50)) || !got.Change.ChangePercent.Equal(decimal.NewFromInt(-25)) {
		t.Errorf("change = %s / %s, want -50 / -25", got.Change.Change, got.Change.ChangePercent)
	}
	if _, err := f.svc.GetCandles(context.Background(), "missing"); !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("missing property err = %v, want ErrPropertyNotFound", err)
	}
}

func TestListLeadsAndGetLead_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.addProperty("owner-1", "tower")
	var ids []string
	for i := 0; i < 3; i++ {
		l, err := f.svc.GenerateLead(ctx, fmt.Sprintf("user-%d", i), pid)
		if err != nil {
			t.Fatalf("GenerateLead: %v", err)
		}
		ids = append(ids, l.ID)
	}

	page, err := f.svc.ListLeads(ctx, "owner-1", 1, 2)
	if err != nil {
		t.Fatalf("ListLeads: %v", err)
	}
	if len(page.Leads) != 2 || page.TotalCount != 3 {
		t.Errorf("page = %d leads, total %d; want 2, 3", len(page.Leads), page.TotalCount)
	}
	if page.Leads[0].ID != ids[2] {
		t.Errorf("first lead = %q, want newest %q", page.Leads[0].ID, ids[2])
	}

	empty, err := f.svc.ListLeads(ctx, "owner-2", 1, 10)
	if err != nil {
		t.Fatalf("ListLeads: %v", err)
	}
	if empty.Leads == nil || len(empty.Leads) != 0 || empty.TotalCount != 0 {
		t.Errorf("other owner page = %+v", empty)
	}

	if _, err := f.svc.GetLead(ctx, "owner-1", ids[0]); err != nil {
		t.Errorf("GetLead as owner: %v", err)
	}
	if _, err := f.svc.GetLead(ctx, "owner-2", ids[0]); !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("GetLead as non-owner err = %v, want ErrLeadNotFound", err)
	}
	if _, err := f.svc.GetLead(ctx, "owner-1", "nope"); !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("GetLead missing err = %v, want ErrLeadNotFound", err)
	}
}

func TestChangeLeadStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pid := f.addProperty("owner-1", "tower")
	first, err := f.svc.GenerateLead(ctx, "user-1", pid)
	if err != nil {
		t.Fatalf("GenerateLead: %v", err)
	}

	if _, err := f.svc.ChangeLeadStatus(ctx, "owner-1", first.ID, "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("invalid status err = %v, want ErrInvalidStatus", err)
	}
	if _, err := f.svc.ChangeLeadStatus(ctx, "owner-2", first.ID, "closed"); !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("non-owner err = %v, want ErrLeadNotFound", err)
	}

	closed, err := f.svc.ChangeLeadStatus(ctx, "owner-1", first.ID, "closed")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != domain.StatusClosed {
		t.Errorf("status = %q, want closed", closed.Status)
	}

	// Closing frees the pair for a new active lead.
	second, err := f.svc.GenerateLead(ctx, "user-1", pid)
	if err != nil {
		t.Fatalf("GenerateLead after close: %v", err)
	}

	if _, err := f.svc.ChangeLeadStatus(ctx, "owner-1", first.ID, "active"); !errors.Is(err, ErrLeadExists) {
		t.Errorf("reactivate with other active err = %v, want ErrLeadExists", err)
	}
	if _, err := f.svc.ChangeLeadStatus(ctx, "owner-1", second.ID, "converted"); err != nil {
		t.Fatalf("convert: %v", err)
	}
	reactivated, err := f.svc.ChangeLeadStatus(ctx, "owner-1", first.ID, "active")
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if reactivated.Status != domain.StatusActive {
		t.Errorf("status = %q, want active", reactivated.Status)
	}

	same, err := f.svc.ChangeLeadStatus(ctx, "owner-1", first.ID, "active")
	if err != nil || same.Status != domain.StatusActive {
		t.Errorf("no-op change = %+v, %v", same, err)
	}
}
