package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foshrdd/grievance/pkg/apiserver/middleware"
	"github.com/foshrdd/grievance/pkg/lifecycle"
	"github.com/foshrdd/grievance/pkg/model"
	"github.com/foshrdd/grievance/pkg/store/postgres"
)

const deadlineLayout = "2006-01-02"

type ComplaintHandler struct {
	engine    *lifecycle.Engine
	db        *postgres.Store
	uploadDir string
	logger    *zap.Logger
}

func NewComplaintHandler(engine *lifecycle.Engine, db *postgres.Store, uploadDir string, logger *zap.Logger) *ComplaintHandler {
	return &ComplaintHandler{engine: engine, db: db, uploadDir: uploadDir, logger: logger}
}

type complaintCreateRequest struct {
	EmployeeID          uint   `json:"employee_id" binding:"required"`
	Categories          string `json:"complaint_categories" binding:"required"`
	IsUrgent            bool   `json:"is_urgent"`
	IsAnonymous         bool   `json:"is_anonymous"`
	MobileNumber        string `json:"mobile_number"`
	DateOfIssue         string `json:"date_of_issue"`
	AdditionalComments  string `json:"additional_comments"`
	PersonInvolved      string `json:"person_issue"`
	ConcernedDepartment string `json:"concerned_department"`
	PreviousHistory     string `json:"previous_history"`
	ProposedSolution    string `json:"proposed_solution"`
	LodgedByAgent       bool   `json:"lodged_by_agent"`
	LodgedFromWeb       bool   `json:"lodged_from_web"`
}

// Create registers a complaint and returns its ticket number.
func (h *ComplaintHandler) Create(c *gin.Context) {
	var req complaintCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	input := lifecycle.CreateInput{
		EmployeeID:          req.EmployeeID,
		Categories:          req.Categories,
		IsUrgent:            req.IsUrgent,
		IsAnonymous:         req.IsAnonymous,
		MobileNumber:        req.MobileNumber,
		AdditionalComments:  req.AdditionalComments,
		PersonInvolved:      req.PersonInvolved,
		ConcernedDepartment: req.ConcernedDepartment,
		PreviousHistory:     req.PreviousHistory,
		ProposedSolution:    req.ProposedSolution,
		LodgedByAgent:       req.LodgedByAgent,
		LodgedFromWeb:       req.LodgedFromWeb,
	}
	if req.DateOfIssue != "" {
		issued, err := time.Parse(deadlineLayout, req.DateOfIssue)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_of_issue"})
			return
		}
		input.DateOfIssue = &issued
	}

	complaint, err := h.engine.Create(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err, "failed to create complaint")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"ticket_number": complaint.TicketNumber,
		"status":        string(complaint.Status),
	})
}

// List returns the portal listing for the caller's unit.
func (h *ComplaintHandler) List(c *gin.Context) {
	principal, ok := middleware.Principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	views, err := h.engine.ListForUnit(c.Request.Context(), principal.UnitID())
	if err != nil {
		h.fail(c, err, "failed to list complaints")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"complaints": views,
		"total":      len(views),
	})
}

func (h *ComplaintHandler) Get(c *gin.Context) {
	view, err := h.engine.Get(c.Request.Context(), c.Param("ticket"))
	if err != nil {
		h.fail(c, err, "failed to get complaint")
		return
	}
	c.JSON(http.StatusOK, view)
}

// Submit accepts the multipart RCA/CAPA form. Text fields land on the
// matching round columns; uploaded files are stored under one category
// decided from which round the request completes.
func (h *ComplaintHandler) Submit(c *gin.Context) {
	ticket := c.Param("ticket")

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form", "details": err.Error()})
		return
	}

	input := lifecycle.SubmitInput{TicketNumber: ticket}
	rcaFields := [3]string{"rca", "rca1", "rca2"}
	capaFields := [3]string{"capa", "capa1", "capa2"}
	deadlineFields := [3]string{"capa_deadline", "capa_deadline1", "capa_deadline2"}
	for n := 0; n < 3; n++ {
		if value, ok := formValue(form, rcaFields[n]); ok {
			input.Rounds[n].RCA = &value
		}
		if value, ok := formValue(form, capaFields[n]); ok {
			input.Rounds[n].CAPA = &value
		}
		if value, ok := formValue(form, deadlineFields[n]); ok {
			deadline, err := time.Parse(deadlineLayout, value)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", deadlineFields[n])})
				return
			}
			input.Rounds[n].CAPADeadline = &deadline
		}
	}

	complaint, err := h.engine.SubmitRounds(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err, "failed to submit complaint form")
		return
	}

	files := form.File["files"]
	if len(files) > 0 {
		category := lifecycle.ClassifyAttachment(input.Rounds)
		attachments := make([]lifecycle.AttachmentInput, 0, len(files))
		for _, file := range files {
			storageName := uuid.NewString() + filepath.Ext(file.Filename)
			if err := c.SaveUploadedFile(file, filepath.Join(h.uploadDir, storageName)); err != nil {
				h.logger.Error("failed to store upload",
					zap.String("ticket", ticket), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store files"})
				return
			}
			attachments = append(attachments, lifecycle.AttachmentInput{
				StorageName: storageName,
				FileType:    strings.TrimPrefix(filepath.Ext(file.Filename), "."),
			})
		}
		if err := h.engine.AttachFiles(c.Request.Context(), ticket, category, attachments); err != nil {
			h.fail(c, err, "failed to record attachments")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"ticket_number": complaint.TicketNumber,
		"status":        string(complaint.Status.DisplayStatus()),
	})
}

// Attachments lists a complaint's files for one category.
func (h *ComplaintHandler) Attachments(c *gin.Context) {
	category := model.FileCategory(c.DefaultQuery("category", string(model.FileCategoryProof)))
	if !model.ValidFileCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}

	repo := postgres.NewComplaintRepository(h.db.DB())
	complaint, err := repo.GetByTicket(c.Request.Context(), c.Param("ticket"))
	if err != nil {
		h.fail(c, err, "failed to get complaint")
		return
	}

	files, err := postgres.NewAttachmentRepository(h.db.DB()).
		ListByCategory(c.Request.Context(), complaint.ID, category)
	if err != nil {
		h.fail(c, err, "failed to list attachments")
		return
	}

	type fileResponse struct {
		StorageName string `json:"file_url"`
		FileType    string `json:"file_type"`
		Category    string `json:"file_category"`
	}
	response := make([]fileResponse, 0, len(files))
	for _, file := range files {
		response = append(response, fileResponse{
			StorageName: file.StorageName,
			FileType:    file.FileType,
			Category:    string(file.Category),
		})
	}
	c.JSON(http.StatusOK, response)
}

type routeEmailRequest struct {
	Recipient string `json:"recipient" binding:"required"`
	Message   string `json:"message"`
}

func (h *ComplaintHandler) RouteViaEmail(c *gin.Context) {
	principal, _ := middleware.Principal(c)

	var req routeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	err := h.engine.RouteViaEmail(c.Request.Context(), lifecycle.RouteEmailInput{
		TicketNumber: c.Param("ticket"),
		Recipient:    req.Recipient,
		Message:      req.Message,
		ByAccessID:   principal.AccessID,
		FromUnitID:   principal.UnitID(),
	})
	if err != nil {
		h.fail(c, err, "failed to route complaint")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "routed"})
}

type routePortalRequest struct {
	RecipientAccessID uint   `json:"recipient_access_id" binding:"required"`
	Message           string `json:"message"`
}

func (h *ComplaintHandler) RouteViaPortal(c *gin.Context) {
	principal, _ := middleware.Principal(c)

	var req routePortalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	err := h.engine.RouteViaPortal(c.Request.Context(), lifecycle.RoutePortalInput{
		TicketNumber:      c.Param("ticket"),
		RecipientAccessID: req.RecipientAccessID,
		Message:           req.Message,
		ByAccessID:        principal.AccessID,
		FromUnitID:        principal.UnitID(),
	})
	if err != nil {
		h.fail(c, err, "failed to assign complaint")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}

func (h *ComplaintHandler) History(c *gin.Context) {
	records, err := h.engine.History(c.Request.Context(), c.Param("ticket"))
	if err != nil {
		h.fail(c, err, "failed to load routing history")
		return
	}

	type historyResponse struct {
		Method    string `json:"method"`
		Recipient string `json:"recipient"`
		Message   string `json:"message"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	}
	response := make([]historyResponse, 0, len(records))
	for _, record := range records {
		response = append(response, historyResponse{
			Method:    string(record.Method),
			Recipient: record.Recipient,
			Message:   record.Message,
			Status:    string(record.Status),
			CreatedAt: record.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}

type closeRequest struct {
	Feedback string `json:"feedback"`
}

func (h *ComplaintHandler) Close(c *gin.Context) {
	var req closeRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.engine.Close(c.Request.Context(), c.Param("ticket"), req.Feedback); err != nil {
		h.fail(c, err, "failed to close complaint")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

type bounceRequest struct {
	Feedback string `json:"feedback"`
}

func (h *ComplaintHandler) Bounce(c *gin.Context) {
	var req bounceRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.engine.Bounce(c.Request.Context(), c.Param("ticket"), req.Feedback); err != nil {
		h.fail(c, err, "failed to bounce complaint")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "bounced"})
}

// IOUsers returns the routing directory for the portal assignment picker.
func (h *ComplaintHandler) IOUsers(c *gin.Context) {
	users, err := postgres.NewDirectoryRepository(h.db.DB()).ListIOUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to list io users")
		return
	}
	c.JSON(http.StatusOK, users)
}

// StatusCounts aggregates complaints by status for the dashboard.
func (h *ComplaintHandler) StatusCounts(c *gin.Context) {
	statuses := []model.ComplaintStatus{
		model.StatusUnprocessed, model.StatusInProcess,
		model.StatusBounced, model.StatusBounced1, model.StatusBounced2,
		model.StatusSubmitted, model.StatusClosed,
	}

	var since *time.Time
	if value := strings.TrimSpace(c.Query("since")); value != "" {
		parsed, err := time.Parse(deadlineLayout, value)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
		since = &parsed
	}

	counts, err := postgres.NewComplaintRepository(h.db.DB()).
		CountByStatus(c.Request.Context(), statuses, since)
	if err != nil {
		h.fail(c, err, "failed to count complaints")
		return
	}

	response := gin.H{}
	for _, count := range counts {
		response[string(count.Status)] = count.Count
	}
	c.JSON(http.StatusOK, response)
}

func (h *ComplaintHandler) fail(c *gin.Context, err error, message string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err))
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func formValue(form *multipart.Form, key string) (string, bool) {
	values := form.Value[key]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}
