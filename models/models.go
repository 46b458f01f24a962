package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// User roles
const (
	RoleAdmin         = "admin"
	RoleClassTeacher  = "class_teacher"
	RoleBranchTeacher = "branch_teacher"
	RoleGuidance      = "guidance"
	RoleParent        = "parent"
)

// Account statuses
const (
	AccountPending   = "pending"
	AccountActive    = "active"
	AccountInactive  = "inactive"
	AccountSuspended = "suspended"
)

// User model. Staff and parent registrations start as pending and must be
// approved by an admin before they can log in.
type User struct {
	BaseModel
	Username             string     `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password             string     `json:"-" gorm:"size:255;not null"`
	Email                string     `json:"email" gorm:"size:255;uniqueIndex"`
	Phone                string     `json:"phone" gorm:"size:20"`
	LineID               string     `json:"line_id" gorm:"size:100"`
	FirstName            string     `json:"first_name" gorm:"size:100"`
	LastName             string     `json:"last_name" gorm:"size:100"`
	Role                 string     `json:"role" gorm:"size:50;not null;default:'parent';type:enum('admin','class_teacher','branch_teacher','guidance','parent')"`
	Status               string     `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','active','inactive','suspended')"`
	Avatar               string     `json:"avatar" gorm:"size:500"`
	ApprovedByID         *uint      `json:"approved_by_id"`
	ApprovedAt           *time.Time `json:"approved_at"`
	PasswordResetToken   string     `json:"-" gorm:"size:255"`
	PasswordResetExpires *time.Time `json:"-"`

	// Relationships
	ApprovedBy *User   `json:"approved_by,omitempty" gorm:"foreignKey:ApprovedByID"`
	Children   []Child `json:"children,omitempty" gorm:"foreignKey:ParentID"`
}

// IsStaff reports whether the user holds one of the institution roles.
func (u *User) IsStaff() bool {
	switch u.Role {
	case RoleAdmin, RoleClassTeacher, RoleBranchTeacher, RoleGuidance:
		return true
	}
	return false
}

// Child model - one row per enrolled child
type Child struct {
	BaseModel
	FirstName        string     `json:"first_name" gorm:"size:100;not null"`
	LastName         string     `json:"last_name" gorm:"size:100;not null"`
	Nickname         string     `json:"nickname" gorm:"size:100"`
	DateOfBirth      *time.Time `json:"date_of_birth"`
	Gender           string     `json:"gender" gorm:"size:20"`
	ClassName        string     `json:"class_name" gorm:"size:100;index"`
	ParentID         uint       `json:"parent_id" gorm:"index"`
	Photo            string     `json:"photo" gorm:"size:500"`
	Allergies        string     `json:"allergies" gorm:"type:text"`
	MedicalNotes     string     `json:"medical_notes" gorm:"type:text"`
	EmergencyContact string     `json:"emergency_contact" gorm:"size:200"`
	EmergencyPhone   string     `json:"emergency_phone" gorm:"size:20"`
	EnrolledAt       *time.Time `json:"enrolled_at"`
	Active           bool       `json:"active" gorm:"default:true"`

	// Relationships
	Parent User `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
}

// ClassGroup maps a class name to its responsible class teacher.
type ClassGroup struct {
	BaseModel
	Name           string `json:"name" gorm:"size:100;not null;uniqueIndex"`
	ClassTeacherID uint   `json:"class_teacher_id" gorm:"index"`
	Capacity       int    `json:"capacity"`
	Active         bool   `json:"active" gorm:"default:true"`

	// Relationships
	ClassTeacher User `json:"class_teacher,omitempty" gorm:"foreignKey:ClassTeacherID"`
}

// AcademicPeriod - at most one period is active at a time, enforced by the
// activate operation running in a transaction.
type AcademicPeriod struct {
	BaseModel
	Name         string     `json:"name" gorm:"size:100;not null"`
	PeriodNumber int        `json:"period_number" gorm:"not null"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	IsActive     bool       `json:"is_active" gorm:"default:false;index"`
}

// Branch course types taught by branch teachers
const (
	CourseEnglish     = "english"
	CourseQuran       = "quran"
	CourseMoralValues = "moral_values"
	CourseEtiquette   = "etiquette"
	CourseArtMusic    = "art_music"
)

// BranchCourseTypes lists every valid branch course type.
var BranchCourseTypes = []string{
	CourseEnglish, CourseQuran, CourseMoralValues, CourseEtiquette, CourseArtMusic,
}

// IsValidCourseType reports whether s names a branch course type.
func IsValidCourseType(s string) bool {
	for _, ct := range BranchCourseTypes {
		if s == ct {
			return true
		}
	}
	return false
}

// TeacherBranchAssignment grants a branch teacher one course type in one class.
type TeacherBranchAssignment struct {
	BaseModel
	TeacherID  uint   `json:"teacher_id" gorm:"not null;index;uniqueIndex:idx_teacher_class_course"`
	ClassName  string `json:"class_name" gorm:"size:100;not null;uniqueIndex:idx_teacher_class_course"`
	CourseType string `json:"course_type" gorm:"size:50;not null;uniqueIndex:idx_teacher_class_course;type:enum('english','quran','moral_values','etiquette','art_music')"`

	// Relationships
	Teacher User `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
}

// Product model for the school shop
type Product struct {
	BaseModel
	Name        string `json:"name" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`
	Price       int    `json:"price" gorm:"not null"` // smallest currency unit
	Stock       int    `json:"stock" gorm:"not null;default:0"`
	Image       string `json:"image" gorm:"size:500"`
	Category    string `json:"category" gorm:"size:100;index"`
	Active      bool   `json:"active" gorm:"default:true"`
}

// CartItem - one row per (user, product)
type CartItem struct {
	BaseModel
	UserID    uint `json:"user_id" gorm:"not null;uniqueIndex:idx_user_product"`
	ProductID uint `json:"product_id" gorm:"not null;uniqueIndex:idx_user_product"`
	Quantity  int  `json:"quantity" gorm:"not null;default:1"`

	// Relationships
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// Order statuses
const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Order model
type Order struct {
	BaseModel
	OrderNumber string `json:"order_number" gorm:"size:50;not null;uniqueIndex"`
	UserID      uint   `json:"user_id" gorm:"not null;index"`
	Total       int    `json:"total" gorm:"not null"`
	Status      string `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','paid','shipped','delivered','cancelled')"`
	Note        string `json:"note" gorm:"size:500"`

	// Relationships
	User    User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Items   []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	Payment *Payment    `json:"payment,omitempty" gorm:"foreignKey:OrderID"`
}

// OrderItem captures the product price at purchase time.
type OrderItem struct {
	BaseModel
	OrderID   uint `json:"order_id" gorm:"not null;index"`
	ProductID uint `json:"product_id" gorm:"not null"`
	Quantity  int  `json:"quantity" gorm:"not null"`
	UnitPrice int  `json:"unit_price" gorm:"not null"`

	// Relationships
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// Payment is a simulated payment record - no gateway integration.
type Payment struct {
	BaseModel
	OrderID   uint   `json:"order_id" gorm:"not null;uniqueIndex"`
	Amount    int    `json:"amount" gorm:"not null"`
	Method    string `json:"method" gorm:"size:50;not null;default:'transfer';type:enum('transfer','cash','card')"`
	Reference string `json:"reference" gorm:"size:100"`
	Status    string `json:"status" gorm:"size:50;not null;default:'recorded';type:enum('recorded','confirmed','refunded')"`
}

// Vehicle model for the school bus fleet
type Vehicle struct {
	BaseModel
	PlateNumber string `json:"plate_number" gorm:"size:20;not null;uniqueIndex"`
	Model       string `json:"model" gorm:"size:100"`
	Capacity    int    `json:"capacity"`
	DriverName  string `json:"driver_name" gorm:"size:200"`
	DriverPhone string `json:"driver_phone" gorm:"size:20"`
	Status      string `json:"status" gorm:"size:50;not null;default:'available';type:enum('available','on_route','maintenance')"`
}

// ServiceRoute describes a recurring bus route.
type ServiceRoute struct {
	BaseModel
	Name        string `json:"name" gorm:"size:100;not null"`
	VehicleID   uint   `json:"vehicle_id" gorm:"index"`
	Description string `json:"description" gorm:"type:text"`
	Stops       JSON   `json:"stops" gorm:"type:json"`
	Active      bool   `json:"active" gorm:"default:true"`

	// Relationships
	Vehicle Vehicle `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
}

// ServiceLog records one completed route run.
type ServiceLog struct {
	BaseModel
	RouteID    uint       `json:"route_id" gorm:"not null;index"`
	VehicleID  uint       `json:"vehicle_id" gorm:"index"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Notes      string     `json:"notes" gorm:"type:text"`

	// Relationships
	Route   ServiceRoute `json:"route,omitempty" gorm:"foreignKey:RouteID"`
	Vehicle Vehicle      `json:"vehicle,omitempty" gorm:"foreignKey:VehicleID"`
}

// AboutSection is one editable block of the public About page.
type AboutSection struct {
	BaseModel
	Title     string `json:"title" gorm:"size:255;not null"`
	Body      string `json:"body" gorm:"type:text"`
	Image     string `json:"image" gorm:"size:500"`
	SortOrder int    `json:"sort_order" gorm:"default:1"`
	Published bool   `json:"published" gorm:"default:true"`
}

// InstagramSettings holds the access token for feed mirroring. Single row.
type InstagramSettings struct {
	BaseModel
	AccessToken  string     `json:"-" gorm:"size:500"`
	AccountName  string     `json:"account_name" gorm:"size:100"`
	LastTestedAt *time.Time `json:"last_tested_at"`
	LastTestOK   bool       `json:"last_test_ok"`
}

// Notification model
type Notification struct {
	BaseModel
	UserID   uint       `json:"user_id" gorm:"not null;index"`
	Title    string     `json:"title" gorm:"size:255;not null"`
	Message  string     `json:"message" gorm:"type:text;not null"`
	Type     string     `json:"type" gorm:"size:50;not null;type:enum('info','warning','error','success')"`
	Read     bool       `json:"read" gorm:"default:false"`
	ReadAt   *time.Time `json:"read_at"`
	Channels JSON       `json:"channels" gorm:"type:json"`
	Data     JSON       `json:"data,omitempty" gorm:"type:json"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// LogArchive model for tracking archived logs
type LogArchive struct {
	BaseModel
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	StartDate   time.Time `json:"start_date" gorm:"not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	RecordCount int       `json:"record_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','completed','failed')"`
	Error       string    `json:"error" gorm:"type:text"`
}
