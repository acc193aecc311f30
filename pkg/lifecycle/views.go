package lifecycle

import (
	"time"

	"github.com/foshrdd/grievance/pkg/model"
)

const displayTimeLayout = "Mon, 02 Jan 2006 03:04 PM"

// ComplaintView is the listing row handed to the portal. Submitter fields
// are masked for anonymous complaints and office/company names are joined
// fresh from the employee chain, never cached on the complaint row.
type ComplaintView struct {
	TicketNumber        string  `json:"ticket_number"`
	IsUrgent            bool    `json:"is_urgent"`
	IsAnonymous         bool    `json:"is_anonymous"`
	MobileNumber        string  `json:"mobile_number"`
	DateOfIssue         *string `json:"date_of_issue"`
	Categories          string  `json:"complaint_categories"`
	AdditionalComments  string  `json:"additional_comments"`
	PersonInvolved      string  `json:"person_issue"`
	ConcernedDepartment string  `json:"concerned_department"`
	PreviousHistory     string  `json:"previous_history"`
	ProposedSolution    string  `json:"proposed_solution"`
	Status              string  `json:"status"`
	EmployeeName        string  `json:"employee_name"`
	Gender              string  `json:"gender"`
	Designation         string  `json:"designation"`
	OfficeName          string  `json:"office_name"`
	CompanyName         string  `json:"company_name"`
	DateEntry           *string `json:"date_entry"`
	InProcessDate       *string `json:"in_process_date"`
	ClosedDate          *string `json:"closed_date"`
	CompletedDate       *string `json:"completed_date"`

	RCA          string  `json:"rca"`
	RCADate      *string `json:"rca_date"`
	CAPA         string  `json:"capa"`
	CAPADate     *string `json:"capa_date"`
	CAPADeadline *string `json:"capa_deadline"`
	BouncedDate  *string `json:"bounced_date"`

	RCA1          string  `json:"rca1"`
	RCA1Date      *string `json:"rca1_date"`
	CAPA1         string  `json:"capa1"`
	CAPA1Date     *string `json:"capa1_date"`
	CAPADeadline1 *string `json:"capa_deadline1"`
	Bounced1Date  *string `json:"bounced1_date"`

	RCA2          string  `json:"rca2"`
	RCA2Date      *string `json:"rca2_date"`
	CAPA2         string  `json:"capa2"`
	CAPA2Date     *string `json:"capa2_date"`
	CAPADeadline2 *string `json:"capa_deadline2"`
	Bounced2Date  *string `json:"bounced2_date"`

	Feedback      string `json:"feedback"`
	CloseFeedback string `json:"close_feedback"`
	LodgedByAgent bool   `json:"lodged_by_agent"`
	LodgedFromWeb bool   `json:"lodged_from_web"`
}

const (
	maskedName   = "Anonymous"
	maskedMobile = "N/A"
)

func newComplaintView(c *model.Complaint) ComplaintView {
	view := ComplaintView{
		TicketNumber:        c.TicketNumber,
		IsUrgent:            c.IsUrgent,
		IsAnonymous:         c.IsAnonymous,
		DateOfIssue:         formatTime(c.DateOfIssue),
		Categories:          c.Categories,
		AdditionalComments:  c.AdditionalComments,
		PersonInvolved:      c.PersonInvolved,
		ConcernedDepartment: c.ConcernedDepartment,
		PreviousHistory:     c.PreviousHistory,
		ProposedSolution:    c.ProposedSolution,
		Status:              string(c.Status.DisplayStatus()),
		DateEntry:           formatTime(&c.CreatedAt),
		InProcessDate:       formatTime(c.InProcessDate),
		ClosedDate:          formatTime(c.ClosedDate),
		CompletedDate:       formatTime(c.CompletedDate),

		RCA:          c.RCA,
		RCADate:      formatTime(c.RCADate),
		CAPA:         c.CAPA,
		CAPADate:     formatTime(c.CAPADate),
		CAPADeadline: formatTime(c.CAPADeadline),
		BouncedDate:  formatTime(c.BouncedDate),

		RCA1:          c.RCA1,
		RCA1Date:      formatTime(c.RCA1Date),
		CAPA1:         c.CAPA1,
		CAPA1Date:     formatTime(c.CAPA1Date),
		CAPADeadline1: formatTime(c.CAPADeadline1),
		Bounced1Date:  formatTime(c.Bounced1Date),

		RCA2:          c.RCA2,
		RCA2Date:      formatTime(c.RCA2Date),
		CAPA2:         c.CAPA2,
		CAPA2Date:     formatTime(c.CAPA2Date),
		CAPADeadline2: formatTime(c.CAPADeadline2),
		Bounced2Date:  formatTime(c.Bounced2Date),

		Feedback:      c.Feedback,
		CloseFeedback: c.CloseFeedback,
		LodgedByAgent: c.LodgedByAgent,
		LodgedFromWeb: c.LodgedFromWeb,
	}

	if c.IsAnonymous {
		view.EmployeeName = maskedName
		view.MobileNumber = maskedMobile
		view.Designation = ""
		view.Gender = ""
	} else if c.Employee != nil {
		view.EmployeeName = c.Employee.Name
		view.MobileNumber = c.MobileNumber
		view.Designation = c.Employee.Designation
		view.Gender = c.Employee.Gender
	} else {
		view.MobileNumber = c.MobileNumber
	}

	if c.Employee != nil && c.Employee.Office != nil {
		view.OfficeName = c.Employee.Office.Name
		if c.Employee.Office.Company != nil {
			view.CompanyName = c.Employee.Office.Company.Name
		}
	}

	return view
}

func formatTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	formatted := t.Format(displayTimeLayout)
	return &formatted
}
