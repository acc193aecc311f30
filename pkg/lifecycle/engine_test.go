package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foshrdd/grievance/pkg/model"
	"github.com/foshrdd/grievance/pkg/store/postgres"
)

type fakeComplaints struct {
	byTicket map[string]*model.Complaint
	created  []*model.Complaint
	updates  map[uint]map[string]interface{}
	active   []model.Complaint
	byID     map[uint]model.Complaint
}

func newFakeComplaints() *fakeComplaints {
	return &fakeComplaints{
		byTicket: map[string]*model.Complaint{},
		updates:  map[uint]map[string]interface{}{},
		byID:     map[uint]model.Complaint{},
	}
}

func (f *fakeComplaints) Create(_ context.Context, c *model.Complaint) error {
	c.ID = uint(len(f.created) + 1)
	f.created = append(f.created, c)
	f.byTicket[c.TicketNumber] = c
	return nil
}

func (f *fakeComplaints) GetByTicket(_ context.Context, ticket string) (*model.Complaint, error) {
	c, ok := f.byTicket[ticket]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return c, nil
}

func (f *fakeComplaints) CountWithTicketPrefix(_ context.Context, prefix string) (int64, error) {
	var count int64
	for _, c := range f.created {
		if len(c.TicketNumber) >= len(prefix) && c.TicketNumber[:len(prefix)] == prefix {
			count++
		}
	}
	return count, nil
}

func (f *fakeComplaints) Update(_ context.Context, id uint, updates map[string]interface{}) error {
	f.updates[id] = updates
	return nil
}

func (f *fakeComplaints) ListActive(_ context.Context) ([]model.Complaint, error) {
	return f.active, nil
}

func (f *fakeComplaints) ListByIDs(_ context.Context, ids []uint) ([]model.Complaint, error) {
	var out []model.Complaint
	for _, id := range ids {
		if c, ok := f.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

type routedCall struct {
	record  *model.RoutingRecord
	updates map[string]interface{}
}

type assignCall struct {
	record       *model.RoutingRecord
	notification *model.Notification
	updates      map[string]interface{}
}

type fakeRouting struct {
	appended   []routedCall
	assigned   []assignCall
	pendingIDs []uint
	history    []model.RoutingRecord
}

func (f *fakeRouting) AppendWithStatus(_ context.Context, r *model.RoutingRecord, u map[string]interface{}) error {
	f.appended = append(f.appended, routedCall{record: r, updates: u})
	return nil
}

func (f *fakeRouting) AssignWithNotification(_ context.Context, r *model.RoutingRecord, n *model.Notification, u map[string]interface{}) error {
	f.assigned = append(f.assigned, assignCall{record: r, notification: n, updates: u})
	return nil
}

func (f *fakeRouting) HistoryForComplaint(_ context.Context, _ uint) ([]model.RoutingRecord, error) {
	return f.history, nil
}

func (f *fakeRouting) PendingComplaintIDs(_ context.Context, _ uint) ([]uint, error) {
	return f.pendingIDs, nil
}

type fakeAttachments struct {
	rows []*model.ComplaintFile
}

func (f *fakeAttachments) CreateBatch(_ context.Context, files []*model.ComplaintFile) error {
	f.rows = append(f.rows, files...)
	return nil
}

type fakeDirectory struct {
	employees map[uint]*model.Employee
	logins    map[uint]*model.Login
}

func (f *fakeDirectory) GetEmployee(_ context.Context, id uint) (*model.Employee, error) {
	if e, ok := f.employees[id]; ok {
		return e, nil
	}
	return nil, postgres.ErrNotFound
}

func (f *fakeDirectory) GetLoginByAccessID(_ context.Context, id uint) (*model.Login, error) {
	if l, ok := f.logins[id]; ok {
		return l, nil
	}
	return nil, postgres.ErrNotFound
}

type fakeEmitter struct {
	ok    bool
	calls []string
}

func (f *fakeEmitter) Send(recipient, _, _ string) bool {
	f.calls = append(f.calls, recipient)
	return f.ok
}

type fakeSMS struct {
	calls []string
}

func (f *fakeSMS) SendTicketConfirmation(mobile, _ string) bool {
	f.calls = append(f.calls, mobile)
	return true
}

func testEngine(complaints *fakeComplaints, routing *fakeRouting, attachments *fakeAttachments, directory *fakeDirectory, email *fakeEmitter, sms *fakeSMS) *Engine {
	e := NewEngine(complaints, routing, attachments, directory, email, sms, nil, "FOS", zap.NewNop())
	e.now = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	return e
}

func defaultDirectory() *fakeDirectory {
	return &fakeDirectory{
		employees: map[uint]*model.Employee{
			7: {ID: 7, Name: "Sana Khan", Gender: "female", Designation: "Operator", OfficeID: 150},
		},
		logins: map[uint]*model.Login{
			42: {AccessID: 42, Email: "io42@example.com", Role: "io"},
		},
	}
}

func TestCreateAllocatesSequentialTickets(t *testing.T) {
	complaints := newFakeComplaints()
	sms := &fakeSMS{}
	engine := testEngine(complaints, &fakeRouting{}, &fakeAttachments{}, defaultDirectory(), &fakeEmitter{ok: true}, sms)

	first, err := engine.Create(context.Background(), CreateInput{EmployeeID: 7, Categories: "Wages"})
	require.NoError(t, err)
	second, err := engine.Create(context.Background(), CreateInput{EmployeeID: 7, Categories: "Wages", MobileNumber: "03001234567"})
	require.NoError(t, err)

	assert.Equal(t, "FOS-20250314-001", first.TicketNumber)
	assert.Equal(t, "FOS-20250314-002", second.TicketNumber)
	assert.Equal(t, model.StatusUnprocessed, first.Status)

	// SMS only fires when a mobile number is present.
	assert.Equal(t, []string{"03001234567"}, sms.calls)
}

func TestCreateValidation(t *testing.T) {
	engine := testEngine(newFakeComplaints(), &fakeRouting{}, &fakeAttachments{}, defaultDirectory(), &fakeEmitter{ok: true}, nil)

	_, err := engine.Create(context.Background(), CreateInput{Categories: "Wages"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = engine.Create(context.Background(), CreateInput{EmployeeID: 7})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = engine.Create(context.Background(), CreateInput{EmployeeID: 999, Categories: "Wages"})
	assert.ErrorIs(t, err, postgres.ErrNotFound)
}

func strptr(s string) *string { return &s }

func TestSubmitRoundZeroForcesStatus(t *testing.T) {
	complaints := newFakeComplaints()
	complaints.byTicket["T-1"] = &model.Complaint{ID: 1, TicketNumber: "T-1", Status: model.StatusUnprocessed}
	engine := testEngine(complaints, &fakeRouting{}, &fakeAttachments{}, defaultDirectory(), &fakeEmitter{ok: true}, nil)

	// RCA-0 + CAPA-0 together force Submitted.
	_, err := engine.SubmitRounds(context.Background(), SubmitInput{
		TicketNumber: "T-1",
		Rounds:       [3]RoundSubmission{{RCA: strptr("root cause"), CAPA: strptr("fix")}},
	})
	require.NoError(t, err)
	updates := complaints.updates[1]
	assert.Equal(t, model.StatusSubmitted, updates["status"])
	assert.Equal(t, "root cause", updates["rca"])
	assert.Equal(t, "fix", updates["capa"])
	assert.NotNil(t, updates["rca_date"])
	assert.NotNil(t, updates["capa_date"])

	// RCA-0 alone forces In Process.
	_, err = engine.SubmitRounds(context.Background(), SubmitInput{
		TicketNumber: "T-1",
		Rounds:       [3]RoundSubmission{{RCA: strptr("root cause only")}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProcess, complaints.updates[1]["status"])
}

func TestSubmitDeadlineAloneLeavesStatusUnchanged(t *testing.T) {
	complaints := newFakeComplaints()
	complaints.byTicket["T-1"] = &model.Complaint{ID: 1, TicketNumber: "T-1", Status: model.StatusInProcess}
	engine := testEngine(complaints, &fakeRouting{}, &fakeAttachments{}, defaultDirectory(), &fakeEmitter{ok: true}, nil)

	deadline := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	_, err := engine.SubmitRounds(context.Background(), SubmitInput{
		TicketNumber: "T-1",
		Rounds:       [3]RoundSubmission{{CAPADeadline: &deadline}},
	})
	require.NoError(t, err)

	updates := complaints.updates[1]
	assert.Equal(t, deadline, updates["capa_deadline"])
	_, hasStatus := updates["status"]
	assert.False(t, hasStatus, "deadline-only submission must not change status")
}

func TestSubmitLaterRoundsResubmissionPolicy(t *testing.T) {
	complaints := newFakeComplaints()
	engine := testEngine(complaints, &fakeRouting{}, &fakeAttachments{}, defaultDirectory(), &fakeEmitter{ok: true}, nil)

	// A full round-1 resubmission from Bounced returns to Submitted.
	complaints.byTicket["T-1"] = &model.Complaint{ID: 1, TicketNumber: "T-1", Status: model.StatusBounced}
	_, err := engine.SubmitRounds(context.Background(), SubmitInput{
		TicketNumber: "T-1",
		Rounds:       [3]RoundSubmission{{}, {RCA: strptr("r1"), CAPA: strptr("c1")}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, complaints.updates[1]["status"])

	// A partial round-1 write never changes status.
	complaints.byTicket["T-2"] = &model.Complaint{ID: 2, TicketNumber: "T-2", Status: model.StatusBounced}
	_, err = engine.SubmitRounds(context.Background(), SubmitInput{
		TicketNumber: "T-2",
		Rounds:       [3]RoundSubmission{{}, {RCA: strptr("r1 only")}},
	})
	require.NoError(t, err)
	_, hasStatus := complaints.updates[2]["status"]
	assert.False(t, hasStatus)

	// Round-2 resubmission only applies from Bounced1.
	complaints.byTicket["T-3"] = &model.Complaint{ID: 3, TicketNumber: "T-3", Status: model.StatusInProcess}
	_, err = engine.SubmitRounds(context.Background(), SubmitInput{
		TicketNumber: "T-3",
		Rounds:       [3]RoundSubmission{{}, {}, {RCA: strptr("r2"), CAPA: strptr("c2")}},
	})
	require.NoError(t, err)
	_, hasStatus = complaints.updates[3]["status"]
	assert.False(t, hasStatus)
}

func TestSubmitUnknownTicket(t *testing.T) {
	engine := testEngine(newFakeComplaints(), &fakeRouting{}, &fakeAttachments{}, defaultDirectory(), &fakeEmitter{ok: true}, nil)
	_, err := engine.SubmitRounds(context.Background(), SubmitInput{TicketNumber: "missing"})
	assert.ErrorIs(t, err, postgres.ErrNotFound)
}

func TestClassifyAttachment(t *testing.T) {
	both := func(n int) [3]RoundSubmission {
		var r [3]RoundSubmission
		r[n] = RoundSubmission{RCA: strptr("r"), CAPA: strptr("c")}
		return r
	}

	assert.Equal(t, model.FileCategoryCAPA, ClassifyAttachment(both(0)))
	assert.Equal(t, model.FileCategoryCAPA1, ClassifyAttachment(both(1)))
	assert.Equal(t, model.FileCategoryCAPA2, ClassifyAttachment(both(2)))
	assert.Equal(t, model.FileCategoryProof, ClassifyAttachment([3]RoundSubmission{{RCA: strptr("r only")}}))
	assert.Equal(t, model.FileCategoryProof, ClassifyAttachment([3]RoundSubmission{}))

	// Round 0 wins when several rounds are complete in one request.
	mixed := both(0)
	mixed[1] = RoundSubmission{RCA: strptr("r1"), CAPA: strptr("c1")}
	assert.Equal(t, model.FileCategoryCAPA, ClassifyAttachment(mixed))
}

func TestAttachFiles(t *testing.T) {
	complaints := newFakeComplaints()
	complaints.byTicket["T-1"] = &model.Complaint{ID: 9, TicketNumber: "T-1"}
	attachments := &fakeAttachments{}
	engine := testEngine(complaints, &fakeRouting{}, attachments, defaultDirectory(), &fakeEmitter{ok: true}, nil)

	err := engine.AttachFiles(context.Background(), "T-1", model.FileCategoryCAPA, []AttachmentInput{
		{StorageName: "a.pdf", FileType: "pdf"},
		{StorageName: "b.jpg", FileType: "image"},
	})
	require.NoError(t, err)
	require.Len(t, attachments.rows, 2)
	assert.Equal(t, uint(9), attachments.rows[0].ComplaintID)
	assert.Equal(t, model.FileCategoryCAPA, attachments.rows[1].Category)

	err = engine.AttachFiles(context.Background(), "T-1", "evidence", []AttachmentInput{{StorageName: "x"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRouteViaEmailGatesOnDelivery(t *testing.T) {
	complaints := newFakeComplaints()
	complaints.byTicket["T-1"] = &model.Complaint{ID: 1, TicketNumber: "T-1", Status: model.StatusUnprocessed, Categories: "Wages"}
	routing := &fakeRouting{}
	email := &fakeEmitter{ok: false}
	engine := testEngine(complaints, routing, &fakeAttachments{}, defaultDirectory(), email, nil)

	in := RouteEmailInput{TicketNumber: "T-1", Recipient: "hr@example.com", Message: "please review", ByAccessID: 42, FromUnitID: 70}

	// Failed send: no routing record, no status change.
	err := engine.RouteViaEmail(context.Background(), in)
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Empty(t, routing.appended)
	assert.Empty(t, complaints.updates)

	// Successful send: exactly one Sent record and an In Process update.
	email.ok = true
	require.NoError(t, engine.RouteViaEmail(context.Background(), in))
	require.Len(t, routing.appended, 1)
	record := routing.appended[0].record
	assert.Equal(t, model.RouteMethodEmail, record.Method)
	assert.Equal(t, model.RouteStatusSent, record.Status)
	assert.Equal(t, "hr@example.com", record.Recipient)
	assert.Equal(t, uint(70), record.FromUnitID)
	assert.Equal(t, model.StatusInProcess, routing.appended[0].updates["status"])
}

func TestRouteViaPortal(t *testing.T) {
	complaints := newFakeComplaints()
	complaints.byTicket["T-1"] = &model.Complaint{ID: 1, TicketNumber: "T-1", Status: model.StatusUnprocessed}
	routing := &fakeRouting{}
	engine := testEngine(complaints, routing, &fakeAttachments{}, defaultDirectory(), &fakeEmitter{ok: true}, nil)

	err := engine.RouteViaPortal(context.Background(), RoutePortalInput{
		TicketNumber: "T-1", RecipientAccessID: 42, Message: "take over", ByAccessID: 9, FromUnitID: 70,
	})
	require.NoError(t, err)
	require.Len(t, routing.assigned, 1)

	call := routing.assigned[0]
	assert.Equal(t, model.RouteMethodPortal, call.record.Method)
	assert.Equal(t, model.RouteStatusAssigned, call.record.Status)
	assert.Equal(t, "io42@example.com", call.record.Recipient)
	assert.Equal(t, uint(42), call.record.ToUnitID)
	assert.Equal(t, uint(42), call.notification.UserID)
	assert.Contains(t, call.notification.Message, "T-1")
	assert.Equal(t, model.StatusInProcess, call.updates["status"])
	assert.Equal(t, uint(42), call.updates["assigned_to"])

	// Unknown recipient aborts before any write.
	err = engine.RouteViaPortal(context.Background(), RoutePortalInput{TicketNumber: "T-1", RecipientAccessID: 999})
	assert.ErrorIs(t, err, postgres.ErrNotFound)
	assert.Len(t, routing.assigned, 1)
}

func TestCloseAndBounceProgression(t *testing.T) {
	complaints := newFakeComplaints()
	c := &model.Complaint{ID: 1, TicketNumber: "T-1", Status: model.StatusSubmitted}
	complaints.byTicket["T-1"] = c
	engine := testEngine(complaints, &fakeRouting{}, &fakeAttachments{}, defaultDirectory(), &fakeEmitter{ok: true}, nil)

	require.NoError(t, engine.Bounce(context.Background(), "T-1", "needs more detail"))
	assert.Equal(t, model.StatusBounced, complaints.updates[1]["status"])
	assert.NotNil(t, complaints.updates[1]["bounced_date"])

	// Second bounce advances to the next slot.
	now := time.Now()
	c.BouncedDate = &now
	require.NoError(t, engine.Bounce(context.Background(), "T-1", ""))
	assert.Equal(t, model.StatusBounced1, complaints.updates[1]["status"])

	// Bounce is only legal from Submitted.
	c.Status = model.StatusInProcess
	err := engine.Bounce(context.Background(), "T-1", "")
	assert.ErrorIs(t, err, ErrValidation)

	c.Status = model.StatusSubmitted
	require.NoError(t, engine.Close(context.Background(), "T-1", "resolved"))
	assert.Equal(t, model.StatusClosed, complaints.updates[1]["status"])
	assert.Equal(t, "resolved", complaints.updates[1]["close_feedback"])
	assert.NotNil(t, complaints.updates[1]["closed_date"])
}

func TestBounceLimit(t *testing.T) {
	complaints := newFakeComplaints()
	now := time.Now()
	complaints.byTicket["T-1"] = &model.Complaint{
		ID: 1, TicketNumber: "T-1", Status: model.StatusSubmitted,
		BouncedDate: &now, Bounced1Date: &now, Bounced2Date: &now,
	}
	engine := testEngine(complaints, &fakeRouting{}, &fakeAttachments{}, defaultDirectory(), &fakeEmitter{ok: true}, nil)

	err := engine.Bounce(context.Background(), "T-1", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func listingFixtures() ([]model.Complaint, map[uint]model.Complaint) {
	office150 := &model.Office{ID: 150, Name: "Stitching Unit B", Company: &model.Company{ID: 14, Name: "Raya Textiles"}}
	female := &model.Employee{ID: 20000, Name: "Sana Khan", Gender: "female", Designation: "Operator", OfficeID: 150, Office: office150}
	male := &model.Employee{ID: 20001, Name: "Bilal Ahmed", Gender: "male", OfficeID: 150, Office: office150}
	outside := &model.Employee{ID: 20002, Name: "Far Away", Gender: "female", OfficeID: 400, Office: &model.Office{ID: 400, Name: "Elsewhere"}}

	active := []model.Complaint{
		{ID: 1, TicketNumber: "T-1", Categories: "Harassment", Status: model.StatusInProcess, Employee: female, EmployeeID: female.ID, MobileNumber: "0300111"},
		{ID: 2, TicketNumber: "T-2", Categories: "Wages", Status: model.StatusClosed, Employee: female, EmployeeID: female.ID},
		{ID: 3, TicketNumber: "T-3", Categories: "Wages", Status: model.StatusInProcess, Employee: male, EmployeeID: male.ID},
		{ID: 4, TicketNumber: "T-4", Categories: "Wages", Status: model.StatusInProcess, Employee: outside, EmployeeID: outside.ID, IsAnonymous: true, MobileNumber: "0300999"},
	}
	byID := map[uint]model.Complaint{4: active[3]}
	return active, byID
}

func TestListForUnitVisibilityAndRouting(t *testing.T) {
	active, byID := listingFixtures()
	complaints := newFakeComplaints()
	complaints.active = active
	complaints.byID = byID
	routing := &fakeRouting{pendingIDs: []uint{4}}
	engine := testEngine(complaints, routing, &fakeAttachments{}, defaultDirectory(), &fakeEmitter{ok: true}, nil)

	views, err := engine.ListForUnit(context.Background(), 146)
	require.NoError(t, err)

	byTicket := map[string]ComplaintView{}
	for _, v := range views {
		byTicket[v.TicketNumber] = v
	}

	// Harassment from office 150 matches the unit-146 rule (female filer).
	assert.Contains(t, byTicket, "T-1")
	// A closed complaint still lists, renamed to Submitted.
	require.Contains(t, byTicket, "T-2")
	assert.Equal(t, string(model.StatusSubmitted), byTicket["T-2"].Status)
	// Male non-harassment filer does not match unit 146.
	assert.NotContains(t, byTicket, "T-3")
	// Routed-in complaint appears even though its office is out of range.
	assert.Contains(t, byTicket, "T-4")

	// The routed complaint is anonymous: submitter fields are masked.
	routed := byTicket["T-4"]
	assert.Equal(t, "Anonymous", routed.EmployeeName)
	assert.Equal(t, "N/A", routed.MobileNumber)
	assert.Empty(t, routed.Designation)

	// Non-anonymous rows keep joined display fields.
	assert.Equal(t, "Sana Khan", byTicket["T-1"].EmployeeName)
	assert.Equal(t, "Stitching Unit B", byTicket["T-1"].OfficeName)
	assert.Equal(t, "Raya Textiles", byTicket["T-1"].CompanyName)
}

func TestListForUnitDeduplicatesRoutedMatches(t *testing.T) {
	active, _ := listingFixtures()
	complaints := newFakeComplaints()
	complaints.active = active
	// Complaint 1 both matches the rule and has a pending route to the unit.
	complaints.byID = map[uint]model.Complaint{1: active[0]}
	routing := &fakeRouting{pendingIDs: []uint{1}}
	engine := testEngine(complaints, routing, &fakeAttachments{}, defaultDirectory(), &fakeEmitter{ok: true}, nil)

	views, err := engine.ListForUnit(context.Background(), 146)
	require.NoError(t, err)

	count := 0
	for _, v := range views {
		if v.TicketNumber == "T-1" {
			count++
		}
	}
	assert.Equal(t, 1, count, "a complaint must not list twice")
}

func TestHistoryRequiresExistingTicket(t *testing.T) {
	routing := &fakeRouting{history: []model.RoutingRecord{{ID: 2}, {ID: 1}}}
	complaints := newFakeComplaints()
	complaints.byTicket["T-1"] = &model.Complaint{ID: 1, TicketNumber: "T-1"}
	engine := testEngine(complaints, routing, &fakeAttachments{}, defaultDirectory(), &fakeEmitter{ok: true}, nil)

	records, err := engine.History(context.Background(), "T-1")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = engine.History(context.Background(), "nope")
	assert.ErrorIs(t, err, postgres.ErrNotFound)
}

func TestErrNotFoundPropagation(t *testing.T) {
	engine := testEngine(newFakeComplaints(), &fakeRouting{}, &fakeAttachments{}, defaultDirectory(), &fakeEmitter{ok: true}, nil)

	err := engine.Close(context.Background(), "missing", "")
	assert.True(t, errors.Is(err, postgres.ErrNotFound))
}
