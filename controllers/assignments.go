package controllers

import (
	"rawdahkids_go/database"
	"rawdahkids_go/middleware"
	"rawdahkids_go/models"
	"rawdahkids_go/utils"

	"github.com/gofiber/fiber/v2"
)

// AssignmentController manages class groups and branch teacher assignments.
// These two tables drive every editing capability check on report cards.
type AssignmentController struct{}

// --- class groups ---

type ClassGroupRequest struct {
	Name           string `json:"name" validate:"required,max=100"`
	ClassTeacherID uint   `json:"class_teacher_id"`
	Capacity       int    `json:"capacity" validate:"omitempty,gt=0"`
}

// GetClassGroups lists all class groups with their class teachers
func (ac *AssignmentController) GetClassGroups(c *fiber.Ctx) error {
	var groups []models.ClassGroup
	if err := database.DB.Preload("ClassTeacher").Order("name ASC").Find(&groups).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch class groups"})
	}
	return c.JSON(fiber.Map{"class_groups": groups})
}

// CreateClassGroup adds a class group (admin only)
func (ac *AssignmentController) CreateClassGroup(c *fiber.Ctx) error {
	var req ClassGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.ClassTeacherID != 0 {
		if err := verifyTeacherRole(req.ClassTeacherID, models.RoleClassTeacher); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	var existing models.ClassGroup
	if err := database.DB.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Class group already exists"})
	}

	group := models.ClassGroup{
		Name:           req.Name,
		ClassTeacherID: req.ClassTeacherID,
		Capacity:       req.Capacity,
		Active:         true,
	}
	if err := database.DB.Create(&group).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create class group"})
	}

	middleware.LogActivity(c, "CREATE", "class_groups", group.ID, fiber.Map{"name": group.Name})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Class group created successfully", "class_group": group})
}

// UpdateClassGroup edits a class group (admin only)
func (ac *AssignmentController) UpdateClassGroup(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class group ID"})
	}

	var group models.ClassGroup
	if err := database.DB.First(&group, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class group not found"})
	}

	var req struct {
		ClassGroupRequest
		Active *bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updates := map[string]interface{}{}
	if req.Name != "" && req.Name != group.Name {
		var existing models.ClassGroup
		if err := database.DB.Where("name = ?", req.Name).First(&existing).Error; err == nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Class group already exists"})
		}
		updates["name"] = req.Name
	}
	if req.ClassTeacherID != 0 {
		if err := verifyTeacherRole(req.ClassTeacherID, models.RoleClassTeacher); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		updates["class_teacher_id"] = req.ClassTeacherID
	}
	if req.Capacity > 0 {
		updates["capacity"] = req.Capacity
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}

	if err := database.DB.Model(&group).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update class group"})
	}

	middleware.LogActivity(c, "UPDATE", "class_groups", group.ID, fiber.Map{"fields": updates})

	database.DB.Preload("ClassTeacher").First(&group, group.ID)
	return c.JSON(fiber.Map{"message": "Class group updated successfully", "class_group": group})
}

// DeleteClassGroup removes an empty class group (admin only)
func (ac *AssignmentController) DeleteClassGroup(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid class group ID"})
	}

	var group models.ClassGroup
	if err := database.DB.First(&group, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class group not found"})
	}

	var childCount int64
	database.DB.Model(&models.Child{}).Where("class_name = ?", group.Name).Count(&childCount)
	if childCount > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Class group still has enrolled children"})
	}

	if err := database.DB.Delete(&group).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete class group"})
	}

	middleware.LogActivity(c, "DELETE", "class_groups", group.ID, fiber.Map{"name": group.Name})

	return c.JSON(fiber.Map{"message": "Class group deleted successfully"})
}

// --- branch assignments ---

type BranchAssignmentRequest struct {
	TeacherID  uint   `json:"teacher_id" validate:"required"`
	ClassName  string `json:"class_name" validate:"required,max=100"`
	CourseType string `json:"course_type" validate:"required"`
}

// GetBranchAssignments lists branch assignments, optionally filtered
func (ac *AssignmentController) GetBranchAssignments(c *fiber.Ctx) error {
	query := database.DB.Model(&models.TeacherBranchAssignment{}).Preload("Teacher")

	if teacherID := c.QueryInt("teacher_id", 0); teacherID > 0 {
		query = query.Where("teacher_id = ?", teacherID)
	}
	if className := c.Query("class_name"); className != "" {
		query = query.Where("class_name = ?", className)
	}
	if courseType := c.Query("course_type"); courseType != "" {
		query = query.Where("course_type = ?", courseType)
	}

	var assignments []models.TeacherBranchAssignment
	if err := query.Order("class_name ASC, course_type ASC").Find(&assignments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch assignments"})
	}

	return c.JSON(fiber.Map{"assignments": assignments})
}

// CreateBranchAssignment grants a teacher one course in one class (admin only)
func (ac *AssignmentController) CreateBranchAssignment(c *fiber.Ctx) error {
	var req BranchAssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if !models.IsValidCourseType(req.CourseType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course type"})
	}

	var teacher models.User
	if err := database.DB.First(&teacher, req.TeacherID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Teacher not found"})
	}
	if teacher.Role != models.RoleBranchTeacher && teacher.Role != models.RoleClassTeacher {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User is not a teacher"})
	}

	var classCount int64
	database.DB.Model(&models.ClassGroup{}).Where("name = ?", req.ClassName).Count(&classCount)
	if classCount == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Class group does not exist"})
	}

	var existing models.TeacherBranchAssignment
	if err := database.DB.Where("teacher_id = ? AND class_name = ? AND course_type = ?",
		req.TeacherID, req.ClassName, req.CourseType).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Assignment already exists"})
	}

	assignment := models.TeacherBranchAssignment{
		TeacherID:  req.TeacherID,
		ClassName:  req.ClassName,
		CourseType: req.CourseType,
	}
	if err := database.DB.Create(&assignment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create assignment"})
	}

	middleware.LogActivity(c, "CREATE", "branch_assignments", assignment.ID, fiber.Map{
		"teacher_id":  req.TeacherID,
		"class_name":  req.ClassName,
		"course_type": req.CourseType,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Assignment created successfully", "assignment": assignment})
}

// DeleteBranchAssignment revokes a branch assignment (admin only)
func (ac *AssignmentController) DeleteBranchAssignment(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid assignment ID"})
	}

	var assignment models.TeacherBranchAssignment
	if err := database.DB.First(&assignment, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Assignment not found"})
	}

	if err := database.DB.Delete(&assignment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete assignment"})
	}

	middleware.LogActivity(c, "DELETE", "branch_assignments", assignment.ID, fiber.Map{
		"teacher_id":  assignment.TeacherID,
		"class_name":  assignment.ClassName,
		"course_type": assignment.CourseType,
	})

	return c.JSON(fiber.Map{"message": "Assignment deleted successfully"})
}

// verifyTeacherRole ensures the user exists and holds the given role.
func verifyTeacherRole(userID uint, role string) error {
	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "teacher not found")
	}
	if user.Role != role {
		return fiber.NewError(fiber.StatusBadRequest, "user does not hold the required role")
	}
	return nil
}
