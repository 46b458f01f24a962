package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"rawdahkids_go/database"
	"rawdahkids_go/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkflowError carries an HTTP status plus the optional list of report
// sections still missing when a completion attempt is rejected.
type WorkflowError struct {
	Status          int
	Message         string
	MissingSections []string
}

func (e *WorkflowError) Error() string { return e.Message }

func workflowErr(status int, format string, args ...interface{}) *WorkflowError {
	return &WorkflowError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ReportService owns every transition of the periodic development report
// lifecycle. All role and assignment checks happen here, against the
// database, never in the client.
type ReportService struct {
	db *gorm.DB
}

func NewReportService() *ReportService {
	return &ReportService{db: database.GetDB()}
}

// NewReportServiceWithDB is used by tests and callers holding a transaction.
func NewReportServiceWithDB(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// MontessoriSectionInput is the class teacher's section payload.
type MontessoriSectionInput struct {
	PracticalLife string `json:"practical_life"`
	Sensorial     string `json:"sensorial"`
	Mathematics   string `json:"mathematics"`
	Language      string `json:"language"`
	Culture       string `json:"culture"`

	FocusDuration       string `json:"focus_duration"`
	CommunicationSkills string `json:"communication_skills"`
	Collaboration       string `json:"collaboration"`
	Motivation          string `json:"motivation"`
	CleanlinessOrder    string `json:"cleanliness_order"`
	MaterialUsageSkills string `json:"material_usage_skills"`
	Productivity        string `json:"productivity"`

	GeneralEvaluation         string `json:"general_evaluation"`
	MontessoriInterests       string `json:"montessori_interests"`
	LearningProcessEvaluation string `json:"learning_process_evaluation"`
	Recommendations           string `json:"recommendations"`

	// TargetStatus is "draft" or "completed"
	TargetStatus string `json:"target_status" validate:"required,oneof=draft completed"`
}

func (in *MontessoriSectionInput) ratings() map[string]string {
	return map[string]string{
		"focus_duration":        in.FocusDuration,
		"communication_skills":  in.CommunicationSkills,
		"collaboration":         in.Collaboration,
		"motivation":            in.Motivation,
		"cleanliness_order":     in.CleanlinessOrder,
		"material_usage_skills": in.MaterialUsageSkills,
		"productivity":          in.Productivity,
	}
}

// classTeacherOf reports whether teacher is the class teacher of className.
// Callers inside a transaction pass their tx so the read joins it.
func classTeacherOf(db *gorm.DB, teacherID uint, className string) (bool, error) {
	var count int64
	err := db.Model(&models.ClassGroup{}).
		Where("name = ? AND class_teacher_id = ?", className, teacherID).
		Count(&count).Error
	return count > 0, err
}

// montessoriGate decides whether a class-teacher save may proceed against the
// locked row. It never mutates the report; a rejection means no column gets
// written. Rejected completions carry the missing section names.
func montessoriGate(report *models.PeriodicReport, targetStatus string) *WorkflowError {
	if report.Status == models.ReportApproved {
		return workflowErr(fiber.StatusConflict, "approved reports cannot be edited")
	}
	if !models.CanTransition(report.Status, targetStatus) {
		return workflowErr(fiber.StatusConflict,
			"report cannot move from %s to %s", report.Status, targetStatus)
	}
	if targetStatus == models.ReportCompleted {
		if missing := report.MissingSections(true); len(missing) > 0 {
			return &WorkflowError{
				Status:          fiber.StatusUnprocessableEntity,
				Message:         "cannot complete report, missing sections: " + strings.Join(missing, ", "),
				MissingSections: missing,
			}
		}
	}
	return nil
}

// branchSectionGate decides whether a branch-course save may proceed.
// hasAssignment reflects the caller's teacher_branch_assignments row for the
// course type and the child's class.
func branchSectionGate(report *models.PeriodicReport, courseType string, hasAssignment bool) *WorkflowError {
	if !hasAssignment {
		return workflowErr(fiber.StatusForbidden,
			"no %s assignment for class %s", courseType, report.Child.ClassName)
	}
	if report.Status == models.ReportApproved {
		return workflowErr(fiber.StatusConflict, "approved reports cannot be edited")
	}
	return nil
}

// approveGate allows approval only from the completed status.
func approveGate(status string) *WorkflowError {
	if !models.CanTransition(status, models.ReportApproved) {
		return workflowErr(fiber.StatusConflict,
			"only completed reports can be approved (current status: %s)", status)
	}
	return nil
}

// revokeGate allows revocation only on an approved report, so revoking a
// completed report is rejected outright and has no observable effect.
func revokeGate(status string) *WorkflowError {
	if status != models.ReportApproved {
		return workflowErr(fiber.StatusConflict,
			"report is not approved (current status: %s)", status)
	}
	return nil
}

// CreateReport inserts a draft report for (child, period). Only the class
// teacher of the child's class may create one; uniqueness is backed by the
// composite index on (child_id, period_id).
func (s *ReportService) CreateReport(teacher *models.User, childID, periodID uint) (*models.PeriodicReport, error) {
	if teacher.Role != models.RoleClassTeacher {
		return nil, workflowErr(fiber.StatusForbidden, "only the class teacher can create a new report")
	}

	var child models.Child
	if err := s.db.First(&child, childID).Error; err != nil {
		return nil, workflowErr(fiber.StatusNotFound, "child not found")
	}

	var period models.AcademicPeriod
	if err := s.db.First(&period, periodID).Error; err != nil {
		return nil, workflowErr(fiber.StatusNotFound, "academic period not found")
	}

	owns, err := classTeacherOf(s.db, teacher.ID, child.ClassName)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, workflowErr(fiber.StatusForbidden, "you are not the class teacher of %s", child.ClassName)
	}

	var existing models.PeriodicReport
	if err := s.db.Where("child_id = ? AND period_id = ?", childID, periodID).First(&existing).Error; err == nil {
		return nil, workflowErr(fiber.StatusConflict, "a report for this child and period already exists")
	}

	report := models.PeriodicReport{
		ChildID:   childID,
		PeriodID:  periodID,
		TeacherID: teacher.ID,
		Status:    models.ReportDraft,
	}
	if err := s.db.Create(&report).Error; err != nil {
		return nil, err
	}

	s.db.Preload("Child").Preload("Period").Preload("Teacher").First(&report, report.ID)
	return &report, nil
}

// SaveMontessoriSection persists the class-teacher section. The completion
// gate runs inside a transaction against a freshly locked row, so a stale
// client snapshot can never complete a report with unsaved sections.
func (s *ReportService) SaveMontessoriSection(teacher *models.User, reportID uint, in MontessoriSectionInput) (*models.PeriodicReport, error) {
	if teacher.Role != models.RoleClassTeacher {
		return nil, workflowErr(fiber.StatusForbidden, "only the class teacher can edit the montessori section")
	}
	if in.TargetStatus != models.ReportDraft && in.TargetStatus != models.ReportCompleted {
		return nil, workflowErr(fiber.StatusBadRequest, "target_status must be draft or completed")
	}
	for field, rating := range in.ratings() {
		if !models.IsValidRating(rating) {
			return nil, workflowErr(fiber.StatusBadRequest, "invalid rating %q for %s", rating, field)
		}
	}

	var report models.PeriodicReport
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Child").First(&report, reportID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflowErr(fiber.StatusNotFound, "report not found")
			}
			return err
		}

		owns, err := classTeacherOf(tx, teacher.ID, report.Child.ClassName)
		if err != nil {
			return err
		}
		if !owns && report.TeacherID != teacher.ID {
			return workflowErr(fiber.StatusForbidden, "you are not the class teacher for this report")
		}

		if gateErr := montessoriGate(&report, in.TargetStatus); gateErr != nil {
			return gateErr
		}

		updates := map[string]interface{}{
			"practical_life": in.PracticalLife,
			"sensorial":      in.Sensorial,
			"mathematics":    in.Mathematics,
			"language":       in.Language,
			"culture":        in.Culture,

			"focus_duration":        in.FocusDuration,
			"communication_skills":  in.CommunicationSkills,
			"collaboration":         in.Collaboration,
			"motivation":            in.Motivation,
			"cleanliness_order":     in.CleanlinessOrder,
			"material_usage_skills": in.MaterialUsageSkills,
			"productivity":          in.Productivity,

			"general_evaluation":          in.GeneralEvaluation,
			"montessori_interests":        in.MontessoriInterests,
			"learning_process_evaluation": in.LearningProcessEvaluation,
			"recommendations":             in.Recommendations,

			"montessori_completed":  true,
			"montessori_teacher_id": teacher.ID,
			"status":                in.TargetStatus,
		}
		return tx.Model(&report).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("Child").Preload("Period").Preload("Teacher").First(&report, report.ID)
	return &report, nil
}

// SaveBranchSection persists one branch course text. The caller must hold a
// teacher_branch_assignments row matching the course type and the child's
// class; saving sets the text, the owner stamp and the completion flag in
// the same update and never touches the overall status.
func (s *ReportService) SaveBranchSection(teacher *models.User, reportID uint, courseType, content string) (*models.PeriodicReport, error) {
	if !models.IsValidCourseType(courseType) {
		return nil, workflowErr(fiber.StatusBadRequest, "unknown course type %q", courseType)
	}
	if teacher.Role != models.RoleBranchTeacher && teacher.Role != models.RoleClassTeacher {
		return nil, workflowErr(fiber.StatusForbidden, "only teachers with a branch assignment can edit course sections")
	}

	var report models.PeriodicReport
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Child").First(&report, reportID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflowErr(fiber.StatusNotFound, "report not found")
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.TeacherBranchAssignment{}).
			Where("teacher_id = ? AND class_name = ? AND course_type = ?",
				teacher.ID, report.Child.ClassName, courseType).
			Count(&count).Error; err != nil {
			return err
		}

		if gateErr := branchSectionGate(&report, courseType, count > 0); gateErr != nil {
			return gateErr
		}

		updates := map[string]interface{}{
			courseType:                 content,
			courseType + "_completed":  true,
			courseType + "_teacher_id": teacher.ID,
		}
		return tx.Model(&report).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("Child").Preload("Period").Preload("Teacher").First(&report, report.ID)
	return &report, nil
}

// SaveGuidanceSection persists the guidance counselor's evaluation. The
// guidance role is checked on the profile, not via assignment rows.
func (s *ReportService) SaveGuidanceSection(user *models.User, reportID uint, content string) (*models.PeriodicReport, error) {
	if user.Role != models.RoleGuidance {
		return nil, workflowErr(fiber.StatusForbidden, "only the guidance counselor can edit the guidance section")
	}

	var report models.PeriodicReport
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&report, reportID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflowErr(fiber.StatusNotFound, "report not found")
			}
			return err
		}

		if report.Status == models.ReportApproved {
			return workflowErr(fiber.StatusConflict, "approved reports cannot be edited")
		}

		updates := map[string]interface{}{
			"guidance_evaluation": content,
			"guidance_completed":  true,
			"guidance_teacher_id": user.ID,
		}
		return tx.Model(&report).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("Child").Preload("Period").Preload("Teacher").First(&report, report.ID)
	return &report, nil
}

// Approve moves a completed report to approved and stamps the approver.
func (s *ReportService) Approve(admin *models.User, reportID uint) (*models.PeriodicReport, error) {
	if admin.Role != models.RoleAdmin {
		return nil, workflowErr(fiber.StatusForbidden, "only administrators can approve reports")
	}

	var report models.PeriodicReport
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&report, reportID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflowErr(fiber.StatusNotFound, "report not found")
			}
			return err
		}

		if gateErr := approveGate(report.Status); gateErr != nil {
			return gateErr
		}

		now := time.Now()
		return tx.Model(&report).Updates(map[string]interface{}{
			"status":         models.ReportApproved,
			"approved_by_id": admin.ID,
			"approved_at":    now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("Child").Preload("Child.Parent").Preload("Period").Preload("Teacher").First(&report, report.ID)
	return &report, nil
}

// Revoke moves an approved report back to completed and clears the approval
// metadata. Revoking a non-approved report is rejected outright, so the call
// has no observable effect on such rows.
func (s *ReportService) Revoke(admin *models.User, reportID uint) (*models.PeriodicReport, error) {
	if admin.Role != models.RoleAdmin {
		return nil, workflowErr(fiber.StatusForbidden, "only administrators can revoke approval")
	}

	var report models.PeriodicReport
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&report, reportID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflowErr(fiber.StatusNotFound, "report not found")
			}
			return err
		}

		if gateErr := revokeGate(report.Status); gateErr != nil {
			return gateErr
		}

		return tx.Model(&report).Updates(map[string]interface{}{
			"status":         models.ReportCompleted,
			"approved_by_id": nil,
			"approved_at":    nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("Child").Preload("Period").Preload("Teacher").First(&report, report.ID)
	return &report, nil
}

// BulkApproveResult reports the outcome of one id within a bulk approval.
type BulkApproveResult struct {
	ReportID uint   `json:"report_id"`
	Approved bool   `json:"approved"`
	Error    string `json:"error,omitempty"`
}

// BulkApprove applies Approve to each id independently. There is no
// atomicity across the batch; the per-id results tell the caller exactly
// which reports were approved and which failed.
func (s *ReportService) BulkApprove(admin *models.User, reportIDs []uint) []BulkApproveResult {
	results := make([]BulkApproveResult, 0, len(reportIDs))
	for _, id := range reportIDs {
		res := BulkApproveResult{ReportID: id, Approved: true}
		if _, err := s.Approve(admin, id); err != nil {
			res.Approved = false
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

// Delete hard-deletes a report. Allowed for the creating class teacher and
// administrators only.
func (s *ReportService) Delete(user *models.User, reportID uint) error {
	var report models.PeriodicReport
	if err := s.db.First(&report, reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return workflowErr(fiber.StatusNotFound, "report not found")
		}
		return err
	}

	if user.Role != models.RoleAdmin && report.TeacherID != user.ID {
		return workflowErr(fiber.StatusForbidden, "only the creating class teacher can delete this report")
	}

	return s.db.Unscoped().Delete(&report).Error
}

// ReportFilter selects reports for the admin list. Every filter is pushed
// into the SQL query; results are paginated.
type ReportFilter struct {
	PeriodID    uint
	Status      string
	ClassName   string
	TeacherID   uint // matched against any of the eight teacher-id columns
	PendingOnly bool // shortcut for status = completed
	Page        int
	Limit       int
}

// teacherColumns are the eight ownership stamps a teacher filter matches.
var teacherColumns = []string{
	"teacher_id", "montessori_teacher_id", "english_teacher_id", "quran_teacher_id",
	"moral_values_teacher_id", "etiquette_teacher_id", "art_music_teacher_id", "guidance_teacher_id",
}

// List returns the filtered page of reports plus the total row count.
func (s *ReportService) List(f ReportFilter) ([]models.PeriodicReport, int64, error) {
	if f.PeriodID == 0 {
		return nil, 0, workflowErr(fiber.StatusBadRequest, "period_id is required")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = 50
	}

	query := s.db.Model(&models.PeriodicReport{}).
		Joins("JOIN children ON children.id = periodic_reports.child_id").
		Where("periodic_reports.period_id = ?", f.PeriodID)

	if f.PendingOnly {
		query = query.Where("periodic_reports.status = ?", models.ReportCompleted)
	} else if f.Status != "" {
		query = query.Where("periodic_reports.status = ?", f.Status)
	}
	if f.ClassName != "" {
		query = query.Where("children.class_name = ?", f.ClassName)
	}
	if f.TeacherID != 0 {
		conds := make([]string, 0, len(teacherColumns))
		args := make([]interface{}, 0, len(teacherColumns))
		for _, col := range teacherColumns {
			conds = append(conds, "periodic_reports."+col+" = ?")
			args = append(args, f.TeacherID)
		}
		query = query.Where("("+strings.Join(conds, " OR ")+")", args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []models.PeriodicReport
	err := query.
		Preload("Child").Preload("Period").Preload("Teacher").
		Order("periodic_reports.updated_at DESC").
		Offset((f.Page - 1) * f.Limit).Limit(f.Limit).
		Find(&reports).Error
	if err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}
