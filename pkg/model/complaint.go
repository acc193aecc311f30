package model

import (
	"time"

	"gorm.io/gorm"
)

type ComplaintStatus string

const (
	StatusUnprocessed ComplaintStatus = "Unprocessed"
	StatusInProcess   ComplaintStatus = "In Process"
	StatusBounced     ComplaintStatus = "Bounced"
	StatusBounced1    ComplaintStatus = "Bounced1"
	StatusBounced2    ComplaintStatus = "Bounced2"
	StatusSubmitted   ComplaintStatus = "Submitted"
	StatusClosed      ComplaintStatus = "Closed"
	StatusRejected    ComplaintStatus = "Rejected"
	StatusUnapproved  ComplaintStatus = "Unapproved"
)

// DisplayStatus maps the stored status to what the portal shows.
// Closed complaints render as "Submitted"; everything else is verbatim.
func (s ComplaintStatus) DisplayStatus() ComplaintStatus {
	if s == StatusClosed {
		return StatusSubmitted
	}
	return s
}

// Excluded reports whether a complaint is hidden from every listing.
func (s ComplaintStatus) Excluded() bool {
	return s == StatusUnapproved || s == StatusRejected
}

// Round holds one RCA/CAPA iteration. A complaint carries up to three of
// these; round 0 columns are unsuffixed for compatibility with the portal's
// historical schema.
type Round struct {
	RCA          string
	RCADate      *time.Time
	CAPA         string
	CAPADate     *time.Time
	CAPADeadline *time.Time
	BouncedDate  *time.Time
}

type Complaint struct {
	ID           uint   `gorm:"primaryKey"`
	TicketNumber string `gorm:"type:varchar(50);uniqueIndex;not null"`

	Categories   string `gorm:"column:complaint_categories;not null"`
	IsUrgent     bool
	IsAnonymous  bool
	MobileNumber string
	DateOfIssue  *time.Time

	EmployeeID uint      `gorm:"not null;index"`
	Employee   *Employee `gorm:"foreignKey:EmployeeID"`

	AdditionalComments  string `gorm:"type:text"`
	PersonInvolved      string `gorm:"column:person_issue"`
	ConcernedDepartment string
	PreviousHistory     string `gorm:"type:text"`
	ProposedSolution    string `gorm:"type:text"`

	Status     ComplaintStatus `gorm:"type:varchar(20);default:'Unprocessed';index"`
	AssignedTo *uint           `gorm:"index"`

	RCA          string `gorm:"type:text"`
	RCADate      *time.Time
	CAPA         string `gorm:"type:text"`
	CAPADate     *time.Time
	CAPADeadline *time.Time
	BouncedDate  *time.Time

	RCA1          string `gorm:"type:text"`
	RCA1Date      *time.Time
	CAPA1         string `gorm:"type:text"`
	CAPA1Date     *time.Time
	CAPADeadline1 *time.Time
	Bounced1Date  *time.Time

	RCA2          string `gorm:"type:text"`
	RCA2Date      *time.Time
	CAPA2         string `gorm:"type:text"`
	CAPA2Date     *time.Time
	CAPADeadline2 *time.Time
	Bounced2Date  *time.Time

	ClosedDate    *time.Time
	CompletedDate *time.Time
	InProcessDate *time.Time
	Feedback      string `gorm:"type:text"`
	CloseFeedback string `gorm:"type:text"`

	LodgedByAgent bool
	LodgedFromWeb bool

	Files []ComplaintFile `gorm:"foreignKey:ComplaintID"`

	CreatedAt time.Time `gorm:"column:date_entry"`
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// RoundAt returns a copy of round n (0..2).
func (c *Complaint) RoundAt(n int) Round {
	switch n {
	case 1:
		return Round{RCA: c.RCA1, RCADate: c.RCA1Date, CAPA: c.CAPA1, CAPADate: c.CAPA1Date, CAPADeadline: c.CAPADeadline1, BouncedDate: c.Bounced1Date}
	case 2:
		return Round{RCA: c.RCA2, RCADate: c.RCA2Date, CAPA: c.CAPA2, CAPADate: c.CAPA2Date, CAPADeadline: c.CAPADeadline2, BouncedDate: c.Bounced2Date}
	default:
		return Round{RCA: c.RCA, RCADate: c.RCADate, CAPA: c.CAPA, CAPADate: c.CAPADate, CAPADeadline: c.CAPADeadline, BouncedDate: c.BouncedDate}
	}
}

// LiveRound resolves which round a complaint's current status is waiting on.
// Only these three statuses have an outstanding round; the boolean is false
// for every other status.
func (c *Complaint) LiveRound() (int, bool) {
	switch c.Status {
	case StatusInProcess:
		return 0, true
	case StatusBounced:
		return 1, true
	case StatusBounced1:
		return 2, true
	}
	return 0, false
}

// LiveDeadline returns the CAPA deadline of the live round, if the status
// implies one and the deadline is set.
func (c *Complaint) LiveDeadline() (*time.Time, int, bool) {
	round, ok := c.LiveRound()
	if !ok {
		return nil, 0, false
	}
	deadline := c.RoundAt(round).CAPADeadline
	if deadline == nil {
		return nil, 0, false
	}
	return deadline, round, true
}

func (Complaint) TableName() string {
	return "complaints"
}
