package utils

import (
	"time"

	"rawdahkids_go/models"
)

// Compact representations used across APIs
type UserShort struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

type ChildShort struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname,omitempty"`
	ClassName string `json:"class_name,omitempty"`
}

// ReportListItem is the compact row returned by the admin report list and
// the Excel export: identity, ownership, status and the derived completion
// rate, without the narrative bodies.
type ReportListItem struct {
	ID             uint       `json:"id"`
	Child          ChildShort `json:"child"`
	PeriodID       uint       `json:"period_id"`
	PeriodName     string     `json:"period_name,omitempty"`
	Teacher        UserShort  `json:"teacher"`
	Status         string     `json:"status"`
	CompletionRate int        `json:"completion_rate"`
	Sections       SectionMap `json:"sections"`
	ApprovedByID   *uint      `json:"approved_by_id,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SectionMap mirrors the seven completion flags keyed by section name.
type SectionMap map[string]bool

// ToReportListItem maps a report row to its compact list representation.
// Caller is expected to have preloaded Child, Period and Teacher.
func ToReportListItem(r models.PeriodicReport) ReportListItem {
	return ReportListItem{
		ID: r.ID,
		Child: ChildShort{
			ID:        r.Child.ID,
			FirstName: r.Child.FirstName,
			LastName:  r.Child.LastName,
			Nickname:  r.Child.Nickname,
			ClassName: r.Child.ClassName,
		},
		PeriodID:   r.PeriodID,
		PeriodName: r.Period.Name,
		Teacher: UserShort{
			ID:        r.Teacher.ID,
			FirstName: r.Teacher.FirstName,
			LastName:  r.Teacher.LastName,
			Role:      r.Teacher.Role,
		},
		Status:         r.Status,
		CompletionRate: r.CompletionRate(),
		Sections:       SectionMap(r.SectionFlags()),
		ApprovedByID:   r.ApprovedByID,
		ApprovedAt:     r.ApprovedAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type NotificationDTO struct {
	ID        uint       `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	UserID    uint       `json:"user_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	User      UserShort  `json:"user"`
}

// ToNotificationDTO maps a models.Notification to the compact DTO.
// Assumptions: caller has preloaded User when possible.
func ToNotificationDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		User: UserShort{
			ID:        n.User.ID,
			FirstName: n.User.FirstName,
			LastName:  n.User.LastName,
			Role:      n.User.Role,
		},
	}
}
