package controllers

import (
	"errors"
	"fmt"
	"strings"

	"rawdahkids_go/database"
	"rawdahkids_go/middleware"
	"rawdahkids_go/models"
	"rawdahkids_go/services"
	notifservice "rawdahkids_go/services/notifications"
	"rawdahkids_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

// ReportController is the HTTP surface of the periodic report workflow. All
// business rules live in services.ReportService; this layer parses requests,
// maps workflow errors to responses and fans out notifications.
type ReportController struct{}

// respondWorkflowError maps a service error to the HTTP response. Workflow
// errors carry their own status and, for rejected completions, the list of
// missing sections.
func respondWorkflowError(c *fiber.Ctx, err error) error {
	var wErr *services.WorkflowError
	if errors.As(err, &wErr) {
		body := fiber.Map{"error": wErr.Message}
		if len(wErr.MissingSections) > 0 {
			body["missing_sections"] = wErr.MissingSections
		}
		return c.Status(wErr.Status).JSON(body)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

// CreateReport opens a draft report for a child in a period
func (rc *ReportController) CreateReport(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var req struct {
		ChildID  uint `json:"child_id" validate:"required"`
		PeriodID uint `json:"period_id" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	report, err := services.NewReportService().CreateReport(user, req.ChildID, req.PeriodID)
	if err != nil {
		return respondWorkflowError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "reports", report.ID, fiber.Map{
		"child_id":  req.ChildID,
		"period_id": req.PeriodID,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Report created successfully",
		"report":  report,
	})
}

// SaveMontessoriSection saves the class teacher's section and optionally
// completes the report
func (rc *ReportController) SaveMontessoriSection(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid report ID"})
	}

	var in services.MontessoriSectionInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	report, err := services.NewReportService().SaveMontessoriSection(user, uint(id), in)
	if err != nil {
		return respondWorkflowError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "reports", report.ID, fiber.Map{
		"section":       "montessori",
		"target_status": in.TargetStatus,
	})

	return c.JSON(fiber.Map{"message": "Section saved successfully", "report": report})
}

// SaveBranchSection saves one course section named by the :course param
func (rc *ReportController) SaveBranchSection(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid report ID"})
	}
	courseType := c.Params("course")

	var req struct {
		Content string `json:"content" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	report, err := services.NewReportService().SaveBranchSection(user, uint(id), courseType, req.Content)
	if err != nil {
		return respondWorkflowError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "reports", report.ID, fiber.Map{"section": courseType})

	return c.JSON(fiber.Map{"message": "Section saved successfully", "report": report})
}

// SaveGuidanceSection saves the guidance counselor's evaluation
func (rc *ReportController) SaveGuidanceSection(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid report ID"})
	}

	var req struct {
		Content string `json:"content" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	report, err := services.NewReportService().SaveGuidanceSection(user, uint(id), req.Content)
	if err != nil {
		return respondWorkflowError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "reports", report.ID, fiber.Map{"section": "guidance"})

	return c.JSON(fiber.Map{"message": "Section saved successfully", "report": report})
}

// ApproveReport approves a completed report and notifies the parent
func (rc *ReportController) ApproveReport(c *fiber.Ctx) error {
	admin, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid report ID"})
	}

	report, err := services.NewReportService().Approve(admin, uint(id))
	if err != nil {
		return respondWorkflowError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "reports", report.ID, fiber.Map{"action": "approve"})

	notifyReportApproved(report)

	return c.JSON(fiber.Map{"message": "Report approved successfully", "report": report})
}

// RevokeApproval moves an approved report back to completed
func (rc *ReportController) RevokeApproval(c *fiber.Ctx) error {
	admin, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid report ID"})
	}

	report, err := services.NewReportService().Revoke(admin, uint(id))
	if err != nil {
		return respondWorkflowError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "reports", report.ID, fiber.Map{"action": "revoke_approval"})

	// let the class teacher know the report is editable again
	notif := notifservice.NewService()
	notif.EnqueueOrCreate([]uint{report.TeacherID}, notifservice.QueuedWithData(
		"Report approval revoked",
		fmt.Sprintf("The report for %s (%s) was reopened for editing.",
			report.Child.FirstName+" "+report.Child.LastName, report.Period.Name),
		"warning",
		fiber.Map{"report_id": report.ID},
		"normal",
	))

	return c.JSON(fiber.Map{"message": "Approval revoked", "report": report})
}

// BulkApproveReports approves a batch of reports, reporting per-id results
func (rc *ReportController) BulkApproveReports(c *fiber.Ctx) error {
	admin, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var req struct {
		ReportIDs []uint `json:"report_ids" validate:"required,min=1"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(req.ReportIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "report_ids is required"})
	}

	svc := services.NewReportService()
	results := svc.BulkApprove(admin, req.ReportIDs)

	approved := 0
	for _, r := range results {
		if r.Approved {
			approved++
			var report models.PeriodicReport
			if err := database.DB.Preload("Child").Preload("Child.Parent").Preload("Period").
				First(&report, r.ReportID).Error; err == nil {
				notifyReportApproved(&report)
			}
		}
	}

	middleware.LogActivity(c, "UPDATE", "reports", 0, fiber.Map{
		"action":    "bulk_approve",
		"requested": len(req.ReportIDs),
		"approved":  approved,
	})

	return c.JSON(fiber.Map{
		"message":  fmt.Sprintf("%d of %d reports approved", approved, len(req.ReportIDs)),
		"results":  results,
		"approved": approved,
	})
}

// notifyReportApproved tells the child's parent their report card is ready.
// Caller must have preloaded Child and Child.Parent.
func notifyReportApproved(report *models.PeriodicReport) {
	if report.Child.ParentID == 0 {
		return
	}
	notif := notifservice.NewService()
	notif.EnqueueOrCreate([]uint{report.Child.ParentID}, notifservice.QueuedWithData(
		"Report card available",
		fmt.Sprintf("The %s report card for %s is now available.",
			report.Period.Name, report.Child.FirstName),
		"success",
		fiber.Map{"report_id": report.ID, "child_id": report.ChildID},
		"normal", "line",
	))
}

// GetReports lists reports for a period with filters (staff only)
func (rc *ReportController) GetReports(c *fiber.Ctx) error {
	filter := services.ReportFilter{
		PeriodID:    uint(c.QueryInt("period_id", 0)),
		Status:      c.Query("status"),
		ClassName:   c.Query("class_name"),
		TeacherID:   uint(c.QueryInt("teacher_id", 0)),
		PendingOnly: c.Query("pending") == "true",
		Page:        c.QueryInt("page", 1),
		Limit:       c.QueryInt("limit", 50),
	}

	reports, total, err := services.NewReportService().List(filter)
	if err != nil {
		return respondWorkflowError(c, err)
	}

	items := make([]utils.ReportListItem, 0, len(reports))
	for _, r := range reports {
		items = append(items, utils.ToReportListItem(r))
	}

	return c.JSON(fiber.Map{
		"reports": items,
		"total":   total,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
}

// GetReport returns one full report. Staff see everything; parents only see
// approved reports of their own children.
func (rc *ReportController) GetReport(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid report ID"})
	}

	var report models.PeriodicReport
	if err := database.DB.Preload("Child").Preload("Period").Preload("Teacher").
		Preload("ApprovedBy").First(&report, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Report not found"})
	}

	if !user.IsStaff() {
		if report.Child.ParentID != user.ID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied"})
		}
		if report.Status != models.ReportApproved {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Report is not yet available"})
		}
	}

	return c.JSON(fiber.Map{
		"report":          report,
		"completion_rate": report.CompletionRate(),
		"sections":        report.SectionFlags(),
	})
}

// GetChildReports lists a child's approved reports for the logged-in parent
func (rc *ReportController) GetChildReports(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	childID, err := c.ParamsInt("childId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid child ID"})
	}

	var child models.Child
	if err := database.DB.First(&child, childID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Child not found"})
	}

	query := database.DB.Model(&models.PeriodicReport{}).
		Where("child_id = ?", child.ID).
		Preload("Period")

	if !user.IsStaff() {
		if child.ParentID != user.ID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied"})
		}
		query = query.Where("status = ?", models.ReportApproved)
	}

	var reports []models.PeriodicReport
	if err := query.Order("created_at DESC").Find(&reports).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch reports"})
	}

	return c.JSON(fiber.Map{"reports": reports})
}

// DeleteReport hard deletes a report (creating teacher or admin)
func (rc *ReportController) DeleteReport(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid report ID"})
	}

	if err := services.NewReportService().Delete(user, uint(id)); err != nil {
		return respondWorkflowError(c, err)
	}

	middleware.LogActivity(c, "DELETE", "reports", uint(id), nil)

	return c.JSON(fiber.Map{"message": "Report deleted successfully"})
}

// ExportReports writes the filtered report list as an Excel workbook
func (rc *ReportController) ExportReports(c *fiber.Ctx) error {
	filter := services.ReportFilter{
		PeriodID:    uint(c.QueryInt("period_id", 0)),
		Status:      c.Query("status"),
		ClassName:   c.Query("class_name"),
		TeacherID:   uint(c.QueryInt("teacher_id", 0)),
		PendingOnly: c.Query("pending") == "true",
		Page:        1,
		Limit:       200,
	}

	svc := services.NewReportService()

	// pull every page; the export is not paginated
	var all []models.PeriodicReport
	for {
		reports, total, err := svc.List(filter)
		if err != nil {
			return respondWorkflowError(c, err)
		}
		all = append(all, reports...)
		if int64(len(all)) >= total || len(reports) == 0 {
			break
		}
		filter.Page++
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Reports"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Child", "Class", "Period", "Class Teacher", "Status", "Completion %", "Missing Sections", "Approved At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, r := range all {
		missing := strings.Join(r.MissingSections(false), ", ")
		approvedAt := ""
		if r.ApprovedAt != nil {
			approvedAt = r.ApprovedAt.Format("2006-01-02 15:04")
		}
		values := []interface{}{
			r.ID,
			r.Child.FirstName + " " + r.Child.LastName,
			r.Child.ClassName,
			r.Period.Name,
			r.Teacher.FirstName + " " + r.Teacher.LastName,
			r.Status,
			r.CompletionRate(),
			missing,
			approvedAt,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate export"})
	}

	middleware.LogActivity(c, "EXPORT", "reports", 0, fiber.Map{
		"period_id": filter.PeriodID,
		"rows":      len(all),
	})

	filename := fmt.Sprintf("reports_period_%d.xlsx", filter.PeriodID)
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}
