package seeders

import (
	"log"
	"time"

	"rawdahkids_go/database"
	"rawdahkids_go/models"
	"rawdahkids_go/utils"
)

// SeedAll runs all seeders
func SeedAll() {
	log.Println("Starting database seeding...")

	SeedUsers()
	SeedClassGroups()
	SeedPeriods()
	SeedProducts()

	log.Println("Database seeding completed successfully!")
}

// SeedUsers creates the initial admin plus one account per staff role.
// Passwords here are placeholders for development environments only.
func SeedUsers() {
	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	if count > 0 {
		log.Println("Users already seeded, skipping...")
		return
	}

	password, err := utils.HashPassword("changeme123")
	if err != nil {
		log.Printf("Failed to hash seed password: %v", err)
		return
	}

	now := time.Now()
	users := []models.User{
		{
			Username:   "admin",
			Password:   password,
			Email:      "admin@rawdahkids.example",
			FirstName:  "System",
			LastName:   "Administrator",
			Role:       models.RoleAdmin,
			Status:     models.AccountActive,
			ApprovedAt: &now,
		},
		{
			Username:   "classteacher1",
			Password:   password,
			Email:      "classteacher1@rawdahkids.example",
			FirstName:  "Amina",
			LastName:   "Yilmaz",
			Role:       models.RoleClassTeacher,
			Status:     models.AccountActive,
			ApprovedAt: &now,
		},
		{
			Username:   "branchteacher1",
			Password:   password,
			Email:      "branchteacher1@rawdahkids.example",
			FirstName:  "Omar",
			LastName:   "Demir",
			Role:       models.RoleBranchTeacher,
			Status:     models.AccountActive,
			ApprovedAt: &now,
		},
		{
			Username:   "guidance1",
			Password:   password,
			Email:      "guidance1@rawdahkids.example",
			FirstName:  "Fatima",
			LastName:   "Kaya",
			Role:       models.RoleGuidance,
			Status:     models.AccountActive,
			ApprovedAt: &now,
		},
	}

	if err := database.DB.Create(&users).Error; err != nil {
		log.Printf("Failed to seed users: %v", err)
		return
	}
	log.Printf("Seeded %d users", len(users))
}

// SeedClassGroups creates the starter classes, owned by the seeded class teacher.
func SeedClassGroups() {
	var count int64
	database.DB.Model(&models.ClassGroup{}).Count(&count)
	if count > 0 {
		log.Println("Class groups already seeded, skipping...")
		return
	}

	var classTeacher models.User
	if err := database.DB.Where("role = ?", models.RoleClassTeacher).First(&classTeacher).Error; err != nil {
		log.Println("No class teacher found, skipping class group seed")
		return
	}

	groups := []models.ClassGroup{
		{Name: "Sunflower", ClassTeacherID: classTeacher.ID, Capacity: 20, Active: true},
		{Name: "Tulip", ClassTeacherID: classTeacher.ID, Capacity: 20, Active: true},
	}
	if err := database.DB.Create(&groups).Error; err != nil {
		log.Printf("Failed to seed class groups: %v", err)
		return
	}

	// give the branch teacher every course in the first class so report
	// workflows work out of the box in development
	var branchTeacher models.User
	if err := database.DB.Where("role = ?", models.RoleBranchTeacher).First(&branchTeacher).Error; err == nil {
		assignments := make([]models.TeacherBranchAssignment, 0, len(models.BranchCourseTypes))
		for _, ct := range models.BranchCourseTypes {
			assignments = append(assignments, models.TeacherBranchAssignment{
				TeacherID:  branchTeacher.ID,
				ClassName:  groups[0].Name,
				CourseType: ct,
			})
		}
		if err := database.DB.Create(&assignments).Error; err != nil {
			log.Printf("Failed to seed branch assignments: %v", err)
		}
	}

	log.Printf("Seeded %d class groups", len(groups))
}

// SeedPeriods creates the first academic period and activates it.
func SeedPeriods() {
	var count int64
	database.DB.Model(&models.AcademicPeriod{}).Count(&count)
	if count > 0 {
		log.Println("Periods already seeded, skipping...")
		return
	}

	year := time.Now().Year()
	start := time.Date(year, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, 1, 31, 0, 0, 0, 0, time.UTC)

	period := models.AcademicPeriod{
		Name:         "Fall Term",
		PeriodNumber: 1,
		StartDate:    &start,
		EndDate:      &end,
		IsActive:     true,
	}
	if err := database.DB.Create(&period).Error; err != nil {
		log.Printf("Failed to seed periods: %v", err)
		return
	}
	log.Println("Seeded 1 academic period")
}

// SeedProducts stocks the shop with a few starter items.
func SeedProducts() {
	var count int64
	database.DB.Model(&models.Product{}).Count(&count)
	if count > 0 {
		log.Println("Products already seeded, skipping...")
		return
	}

	products := []models.Product{
		{Name: "School Uniform Set", Description: "Two-piece uniform with logo", Price: 45000, Stock: 50, Category: "clothing", Active: true},
		{Name: "Activity Book Bundle", Description: "Montessori practice books, ages 3-6", Price: 22000, Stock: 80, Category: "books", Active: true},
		{Name: "Lunch Box", Description: "Insulated stainless steel lunch box", Price: 18000, Stock: 40, Category: "supplies", Active: true},
	}
	if err := database.DB.Create(&products).Error; err != nil {
		log.Printf("Failed to seed products: %v", err)
		return
	}
	log.Printf("Seeded %d products", len(products))
}
