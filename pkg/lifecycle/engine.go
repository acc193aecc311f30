// Package lifecycle owns the complaint state machine: creation and ticket
// allocation, RCA/CAPA round submission, routing between units, closure and
// bounce, and listing assembly under the unit visibility rules.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/foshrdd/grievance/pkg/eventbus"
	"github.com/foshrdd/grievance/pkg/metrics"
	"github.com/foshrdd/grievance/pkg/model"
	"github.com/foshrdd/grievance/pkg/visibility"
)

var (
	// ErrValidation rejects a request before any store access.
	ErrValidation = errors.New("validation failed")
	// ErrSendFailed aborts the delivery-gated routing path.
	ErrSendFailed = errors.New("send failed")
)

type ComplaintStore interface {
	Create(ctx context.Context, complaint *model.Complaint) error
	GetByTicket(ctx context.Context, ticketNumber string) (*model.Complaint, error)
	CountWithTicketPrefix(ctx context.Context, prefix string) (int64, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
	ListActive(ctx context.Context) ([]model.Complaint, error)
	ListByIDs(ctx context.Context, ids []uint) ([]model.Complaint, error)
}

type RoutingStore interface {
	AppendWithStatus(ctx context.Context, record *model.RoutingRecord, updates map[string]interface{}) error
	AssignWithNotification(ctx context.Context, record *model.RoutingRecord, notification *model.Notification, updates map[string]interface{}) error
	HistoryForComplaint(ctx context.Context, complaintID uint) ([]model.RoutingRecord, error)
	PendingComplaintIDs(ctx context.Context, unitID uint) ([]uint, error)
}

type AttachmentStore interface {
	CreateBatch(ctx context.Context, files []*model.ComplaintFile) error
}

type Directory interface {
	GetEmployee(ctx context.Context, id uint) (*model.Employee, error)
	GetLoginByAccessID(ctx context.Context, accessID uint) (*model.Login, error)
}

// Emitter is the outbound email collaborator; a false return means the send
// did not happen but never carries an error past the boundary.
type Emitter interface {
	Send(recipient, subject, body string) bool
}

// TicketNotifier confirms complaint registration over SMS.
type TicketNotifier interface {
	SendTicketConfirmation(mobile, ticketNumber string) bool
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event eventbus.Event) error
}

type Engine struct {
	complaints  ComplaintStore
	routing     RoutingStore
	attachments AttachmentStore
	directory   Directory
	email       Emitter
	sms         TicketNotifier
	bus         Publisher
	logger      *zap.Logger

	ticketPrefix string
	now          func() time.Time
}

func NewEngine(
	complaints ComplaintStore,
	routing RoutingStore,
	attachments AttachmentStore,
	directory Directory,
	email Emitter,
	sms TicketNotifier,
	bus Publisher,
	ticketPrefix string,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		complaints:   complaints,
		routing:      routing,
		attachments:  attachments,
		directory:    directory,
		email:        email,
		sms:          sms,
		bus:          bus,
		logger:       logger,
		ticketPrefix: ticketPrefix,
		now:          time.Now,
	}
}

type CreateInput struct {
	EmployeeID          uint
	Categories          string
	IsUrgent            bool
	IsAnonymous         bool
	MobileNumber        string
	DateOfIssue         *time.Time
	AdditionalComments  string
	PersonInvolved      string
	ConcernedDepartment string
	PreviousHistory     string
	ProposedSolution    string
	LodgedByAgent       bool
	LodgedFromWeb       bool
}

// Create registers a complaint, allocating the next same-day ticket number
// and dispatching a best-effort SMS confirmation after the row is committed.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*model.Complaint, error) {
	if in.EmployeeID == 0 {
		return nil, fmt.Errorf("%w: employee id is required", ErrValidation)
	}
	if in.Categories == "" {
		return nil, fmt.Errorf("%w: complaint category is required", ErrValidation)
	}

	if _, err := e.directory.GetEmployee(ctx, in.EmployeeID); err != nil {
		return nil, err
	}

	ticket, err := e.allocateTicket(ctx)
	if err != nil {
		return nil, err
	}

	complaint := &model.Complaint{
		TicketNumber:        ticket,
		EmployeeID:          in.EmployeeID,
		Categories:          in.Categories,
		IsUrgent:            in.IsUrgent,
		IsAnonymous:         in.IsAnonymous,
		MobileNumber:        in.MobileNumber,
		DateOfIssue:         in.DateOfIssue,
		AdditionalComments:  in.AdditionalComments,
		PersonInvolved:      in.PersonInvolved,
		ConcernedDepartment: in.ConcernedDepartment,
		PreviousHistory:     in.PreviousHistory,
		ProposedSolution:    in.ProposedSolution,
		LodgedByAgent:       in.LodgedByAgent,
		LodgedFromWeb:       in.LodgedFromWeb,
		Status:              model.StatusUnprocessed,
	}

	if err := e.complaints.Create(ctx, complaint); err != nil {
		return nil, err
	}

	metrics.ComplaintsCreated.WithLabelValues(in.Categories, boolLabel(in.IsUrgent)).Inc()
	e.publishComplaint(ctx, "complaint_created", complaint.TicketNumber, model.StatusUnprocessed, 0)

	// Fire-and-forget: a failed SMS never rolls back the registration.
	if in.MobileNumber != "" && e.sms != nil {
		if ok := e.sms.SendTicketConfirmation(in.MobileNumber, ticket); !ok {
			e.logger.Warn("ticket confirmation sms failed", zap.String("ticket", ticket))
		}
	}

	return complaint, nil
}

// RoundSubmission carries the optional fields of one round in a submit
// request. Nil means the field is untouched.
type RoundSubmission struct {
	RCA          *string
	CAPA         *string
	CAPADeadline *time.Time
}

type SubmitInput struct {
	TicketNumber string
	Rounds       [3]RoundSubmission
}

// rcaColumns and capaColumns name the per-round columns; round 0 is
// unsuffixed for schema compatibility.
var (
	rcaColumns      = [3]string{"rca", "rca1", "rca2"}
	rcaDateColumns  = [3]string{"rca_date", "rca1_date", "rca2_date"}
	capaColumns     = [3]string{"capa", "capa1", "capa2"}
	capaDateColumns = [3]string{"capa_date", "capa1_date", "capa2_date"}
	deadlineColumns = [3]string{"capa_deadline", "capa_deadline1", "capa_deadline2"}
)

// SubmitRounds applies RCA/CAPA text and deadlines. Writing both RCA-0 and
// CAPA-0 in one request forces Submitted; RCA-0 alone forces In Process.
// A full round-1 or round-2 resubmission returns the matching bounced
// complaint to Submitted; partial later-round writes never change status.
func (e *Engine) SubmitRounds(ctx context.Context, in SubmitInput) (*model.Complaint, error) {
	if in.TicketNumber == "" {
		return nil, fmt.Errorf("%w: ticket number is required", ErrValidation)
	}

	complaint, err := e.complaints.GetByTicket(ctx, in.TicketNumber)
	if err != nil {
		return nil, err
	}

	now := e.now()
	updates := map[string]interface{}{}
	for n, round := range in.Rounds {
		if round.RCA != nil {
			updates[rcaColumns[n]] = *round.RCA
			updates[rcaDateColumns[n]] = now
		}
		if round.CAPA != nil {
			updates[capaColumns[n]] = *round.CAPA
			updates[capaDateColumns[n]] = now
		}
		if round.CAPADeadline != nil {
			updates[deadlineColumns[n]] = *round.CAPADeadline
		}
	}

	newStatus, changed := nextStatusForSubmission(complaint.Status, in.Rounds)
	if changed {
		updates["status"] = newStatus
		if newStatus == model.StatusInProcess {
			updates["in_process_date"] = now
		}
	}

	if len(updates) == 0 {
		return complaint, nil
	}

	if err := e.complaints.Update(ctx, complaint.ID, updates); err != nil {
		return nil, err
	}

	if changed {
		metrics.StatusTransitions.WithLabelValues(string(newStatus)).Inc()
		e.publishComplaint(ctx, "round_submitted", complaint.TicketNumber, newStatus, liveSubmissionRound(in.Rounds))
		complaint.Status = newStatus
	}
	return complaint, nil
}

func nextStatusForSubmission(current model.ComplaintStatus, rounds [3]RoundSubmission) (model.ComplaintStatus, bool) {
	switch {
	case rounds[0].RCA != nil && rounds[0].CAPA != nil:
		return model.StatusSubmitted, true
	case rounds[0].RCA != nil:
		return model.StatusInProcess, true
	case rounds[1].RCA != nil && rounds[1].CAPA != nil && current == model.StatusBounced:
		return model.StatusSubmitted, true
	case rounds[2].RCA != nil && rounds[2].CAPA != nil && current == model.StatusBounced1:
		return model.StatusSubmitted, true
	}
	return current, false
}

func liveSubmissionRound(rounds [3]RoundSubmission) int {
	for n := 2; n >= 0; n-- {
		if rounds[n].RCA != nil || rounds[n].CAPA != nil {
			return n
		}
	}
	return 0
}

// ClassifyAttachment decides the single category shared by every file of a
// submit request: the first round whose RCA and CAPA are both present in
// the request wins, else proof. The choice is request-scoped and never
// stored as a field on the complaint.
func ClassifyAttachment(rounds [3]RoundSubmission) model.FileCategory {
	switch {
	case rounds[0].RCA != nil && rounds[0].CAPA != nil:
		return model.FileCategoryCAPA
	case rounds[1].RCA != nil && rounds[1].CAPA != nil:
		return model.FileCategoryCAPA1
	case rounds[2].RCA != nil && rounds[2].CAPA != nil:
		return model.FileCategoryCAPA2
	default:
		return model.FileCategoryProof
	}
}

type AttachmentInput struct {
	StorageName string
	FileType    string
}

// AttachFiles records uploaded files for a complaint under one category.
func (e *Engine) AttachFiles(ctx context.Context, ticketNumber string, category model.FileCategory, files []AttachmentInput) error {
	if !model.ValidFileCategory(category) {
		return fmt.Errorf("%w: unknown file category %q", ErrValidation, category)
	}
	if len(files) == 0 {
		return nil
	}

	complaint, err := e.complaints.GetByTicket(ctx, ticketNumber)
	if err != nil {
		return err
	}

	rows := make([]*model.ComplaintFile, 0, len(files))
	for _, f := range files {
		rows = append(rows, &model.ComplaintFile{
			ComplaintID: complaint.ID,
			Category:    category,
			FileType:    f.FileType,
			StorageName: f.StorageName,
		})
	}
	return e.attachments.CreateBatch(ctx, rows)
}

type RouteEmailInput struct {
	TicketNumber string
	Recipient    string
	Message      string
	ByAccessID   uint
	FromUnitID   uint
}

// RouteViaEmail routes a complaint to an external recipient. The send gates
// the commit: a failed send leaves no routing record and no status change.
func (e *Engine) RouteViaEmail(ctx context.Context, in RouteEmailInput) error {
	if in.TicketNumber == "" || in.Recipient == "" {
		return fmt.Errorf("%w: ticket number and recipient are required", ErrValidation)
	}

	complaint, err := e.complaints.GetByTicket(ctx, in.TicketNumber)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Complaint Routing: %s", complaint.TicketNumber)
	body := fmt.Sprintf(
		"<h2>Complaint Routing</h2>"+
			"<p>Ticket Number: %s</p>"+
			"<p>Category: %s</p>"+
			"<p>Message: %s</p>"+
			"<p>Please review and take appropriate action.</p>",
		complaint.TicketNumber, complaint.Categories, in.Message,
	)

	if ok := e.email.Send(in.Recipient, subject, body); !ok {
		metrics.Routings.WithLabelValues(string(model.RouteMethodEmail), "failure").Inc()
		return fmt.Errorf("%w: routing email to %s", ErrSendFailed, in.Recipient)
	}

	record := &model.RoutingRecord{
		ComplaintID: complaint.ID,
		Method:      model.RouteMethodEmail,
		Recipient:   in.Recipient,
		Message:     in.Message,
		Status:      model.RouteStatusSent,
		CreatedBy:   in.ByAccessID,
		FromUnitID:  in.FromUnitID,
	}
	updates := map[string]interface{}{
		"status":          model.StatusInProcess,
		"in_process_date": e.now(),
	}
	if err := e.routing.AppendWithStatus(ctx, record, updates); err != nil {
		return err
	}

	metrics.Routings.WithLabelValues(string(model.RouteMethodEmail), "success").Inc()
	metrics.StatusTransitions.WithLabelValues(string(model.StatusInProcess)).Inc()
	e.publishRouting(ctx, complaint.TicketNumber, model.RouteMethodEmail, in.Recipient)
	return nil
}

type RoutePortalInput struct {
	TicketNumber      string
	RecipientAccessID uint
	Message           string
	ByAccessID        uint
	FromUnitID        uint
}

// RouteViaPortal assigns a complaint to another IO user. The notification,
// routing record and status/assignee update commit atomically.
func (e *Engine) RouteViaPortal(ctx context.Context, in RoutePortalInput) error {
	if in.TicketNumber == "" || in.RecipientAccessID == 0 {
		return fmt.Errorf("%w: ticket number and recipient are required", ErrValidation)
	}

	complaint, err := e.complaints.GetByTicket(ctx, in.TicketNumber)
	if err != nil {
		return err
	}
	target, err := e.directory.GetLoginByAccessID(ctx, in.RecipientAccessID)
	if err != nil {
		return err
	}

	notification := &model.Notification{
		UserID:  in.RecipientAccessID,
		Message: fmt.Sprintf("New complaint #%s has been assigned to you. %s", complaint.TicketNumber, in.Message),
	}
	record := &model.RoutingRecord{
		ComplaintID: complaint.ID,
		Method:      model.RouteMethodPortal,
		Recipient:   target.Email,
		Message:     in.Message,
		Status:      model.RouteStatusAssigned,
		CreatedBy:   in.ByAccessID,
		FromUnitID:  in.FromUnitID,
		ToUnitID:    in.RecipientAccessID,
	}
	updates := map[string]interface{}{
		"status":          model.StatusInProcess,
		"assigned_to":     in.RecipientAccessID,
		"in_process_date": e.now(),
	}

	if err := e.routing.AssignWithNotification(ctx, record, notification, updates); err != nil {
		metrics.Routings.WithLabelValues(string(model.RouteMethodPortal), "failure").Inc()
		return err
	}

	metrics.Routings.WithLabelValues(string(model.RouteMethodPortal), "success").Inc()
	metrics.StatusTransitions.WithLabelValues(string(model.StatusInProcess)).Inc()
	e.publishRouting(ctx, complaint.TicketNumber, model.RouteMethodPortal, target.Email)
	return nil
}

// Close moves a complaint to its terminal Closed state.
func (e *Engine) Close(ctx context.Context, ticketNumber, feedback string) error {
	complaint, err := e.complaints.GetByTicket(ctx, ticketNumber)
	if err != nil {
		return err
	}

	now := e.now()
	updates := map[string]interface{}{
		"status":         model.StatusClosed,
		"closed_date":    now,
		"completed_date": now,
	}
	if feedback != "" {
		updates["close_feedback"] = feedback
	}
	if err := e.complaints.Update(ctx, complaint.ID, updates); err != nil {
		return err
	}

	metrics.StatusTransitions.WithLabelValues(string(model.StatusClosed)).Inc()
	e.publishComplaint(ctx, "complaint_closed", complaint.TicketNumber, model.StatusClosed, 0)
	return nil
}

// Bounce returns a submitted complaint for rework, advancing it to the
// next unused bounce slot. A complaint can bounce at most three times.
func (e *Engine) Bounce(ctx context.Context, ticketNumber, feedback string) error {
	complaint, err := e.complaints.GetByTicket(ctx, ticketNumber)
	if err != nil {
		return err
	}
	if complaint.Status != model.StatusSubmitted {
		return fmt.Errorf("%w: only submitted complaints can be bounced (status %s)", ErrValidation, complaint.Status)
	}

	now := e.now()
	var status model.ComplaintStatus
	updates := map[string]interface{}{}
	switch {
	case complaint.BouncedDate == nil:
		status = model.StatusBounced
		updates["bounced_date"] = now
	case complaint.Bounced1Date == nil:
		status = model.StatusBounced1
		updates["bounced1_date"] = now
	case complaint.Bounced2Date == nil:
		status = model.StatusBounced2
		updates["bounced2_date"] = now
	default:
		return fmt.Errorf("%w: bounce limit reached", ErrValidation)
	}
	updates["status"] = status
	if feedback != "" {
		updates["feedback"] = feedback
	}

	if err := e.complaints.Update(ctx, complaint.ID, updates); err != nil {
		return err
	}

	metrics.StatusTransitions.WithLabelValues(string(status)).Inc()
	e.publishComplaint(ctx, "complaint_bounced", complaint.TicketNumber, status, 0)
	return nil
}

// ListForUnit assembles the unit's portal listing: rule-matching complaints
// plus complaints routed to the unit from elsewhere, deduplicated, with
// anonymity masking and display renames applied.
func (e *Engine) ListForUnit(ctx context.Context, unitID uint) ([]ComplaintView, error) {
	rule := visibility.Resolve(unitID)

	active, err := e.complaints.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[uint]bool{}
	views := make([]ComplaintView, 0, len(active))
	for i := range active {
		c := &active[i]
		if c.Employee == nil || !rule.Matches(c, c.Employee) {
			continue
		}
		seen[c.ID] = true
		views = append(views, newComplaintView(c))
	}

	routedIDs, err := e.routing.PendingComplaintIDs(ctx, unitID)
	if err != nil {
		return nil, err
	}
	missing := make([]uint, 0, len(routedIDs))
	for _, id := range routedIDs {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	routed, err := e.complaints.ListByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for i := range routed {
		views = append(views, newComplaintView(&routed[i]))
	}

	return views, nil
}

// Get returns a single complaint's portal view.
func (e *Engine) Get(ctx context.Context, ticketNumber string) (ComplaintView, error) {
	complaint, err := e.complaints.GetByTicket(ctx, ticketNumber)
	if err != nil {
		return ComplaintView{}, err
	}
	return newComplaintView(complaint), nil
}

// History returns a complaint's routing records, newest first.
func (e *Engine) History(ctx context.Context, ticketNumber string) ([]model.RoutingRecord, error) {
	complaint, err := e.complaints.GetByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	return e.routing.HistoryForComplaint(ctx, complaint.ID)
}

// allocateTicket builds PREFIX-YYYYMMDD-NNN with NNN = same-day count + 1.
// The count-then-insert pair is not atomic; two same-day creations racing
// can compute the same sequence (open correctness gap, kept deliberately).
func (e *Engine) allocateTicket(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("%s-%s", e.ticketPrefix, e.now().Format("20060102"))
	count, err := e.complaints.CountWithTicketPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%03d", prefix, count+1), nil
}

func (e *Engine) publishComplaint(ctx context.Context, eventType, ticket string, status model.ComplaintStatus, round int) {
	if e.bus == nil {
		return
	}
	event, err := eventbus.NewEvent(eventType, eventbus.ComplaintEvent{
		TicketNumber: ticket,
		Status:       string(status),
		Round:        round,
	})
	if err != nil {
		return
	}
	if err := e.bus.Publish(ctx, eventbus.ChannelComplaint, event); err != nil {
		e.logger.Warn("failed to publish complaint event", zap.String("ticket", ticket), zap.Error(err))
	}
}

func (e *Engine) publishRouting(ctx context.Context, ticket string, method model.RoutingMethod, recipient string) {
	if e.bus == nil {
		return
	}
	event, err := eventbus.NewEvent("complaint_routed", eventbus.RoutingEvent{
		TicketNumber: ticket,
		Method:       string(method),
		Recipient:    recipient,
	})
	if err != nil {
		return
	}
	if err := e.bus.Publish(ctx, eventbus.ChannelRouting, event); err != nil {
		e.logger.Warn("failed to publish routing event", zap.String("ticket", ticket), zap.Error(err))
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
