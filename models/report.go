package models

import (
	"math"
	"time"
)

// Periodic report statuses
const (
	ReportDraft     = "draft"
	ReportCompleted = "completed"
	ReportApproved  = "approved"
)

// Report section names. The montessori section belongs to the class teacher,
// the five course sections to branch teachers, guidance to the counselor.
const (
	SectionMontessori  = "montessori"
	SectionEnglish     = "english"
	SectionQuran       = "quran"
	SectionMoralValues = "moral_values"
	SectionEtiquette   = "etiquette"
	SectionArtMusic    = "art_music"
	SectionGuidance    = "guidance"
)

// ReportSectionCount is the number of independently owned report sections.
const ReportSectionCount = 7

// Ordinal rating levels for the class-teacher skill ratings.
const (
	RatingHigh   = "high"
	RatingMedium = "medium"
	RatingLow    = "low"
)

// IsValidRating accepts the three levels or empty (not yet rated).
func IsValidRating(s string) bool {
	switch s {
	case "", RatingHigh, RatingMedium, RatingLow:
		return true
	}
	return false
}

// PeriodicReport - one row per (child, academic period). Each section is
// written only by its owning role; the completion flags are set the first
// time that role saves and are never cleared by later edits.
type PeriodicReport struct {
	BaseModel
	ChildID  uint `json:"child_id" gorm:"not null;uniqueIndex:idx_child_period"`
	PeriodID uint `json:"period_id" gorm:"not null;uniqueIndex:idx_child_period"`

	// Creating class teacher
	TeacherID uint `json:"teacher_id" gorm:"not null;index"`

	// Class-teacher content: Montessori area narratives
	PracticalLife string `json:"practical_life" gorm:"type:text"`
	Sensorial     string `json:"sensorial" gorm:"type:text"`
	Mathematics   string `json:"mathematics" gorm:"type:text"`
	Language      string `json:"language" gorm:"type:text"`
	Culture       string `json:"culture" gorm:"type:text"`

	// Class-teacher content: three-level ordinal ratings
	FocusDuration       string `json:"focus_duration" gorm:"size:10;type:enum('high','medium','low')"`
	CommunicationSkills string `json:"communication_skills" gorm:"size:10;type:enum('high','medium','low')"`
	Collaboration       string `json:"collaboration" gorm:"size:10;type:enum('high','medium','low')"`
	Motivation          string `json:"motivation" gorm:"size:10;type:enum('high','medium','low')"`
	CleanlinessOrder    string `json:"cleanliness_order" gorm:"size:10;type:enum('high','medium','low')"`
	MaterialUsageSkills string `json:"material_usage_skills" gorm:"size:10;type:enum('high','medium','low')"`
	Productivity        string `json:"productivity" gorm:"size:10;type:enum('high','medium','low')"`

	// Class-teacher content: free-text evaluations
	GeneralEvaluation         string `json:"general_evaluation" gorm:"type:text"`
	MontessoriInterests       string `json:"montessori_interests" gorm:"type:text"`
	LearningProcessEvaluation string `json:"learning_process_evaluation" gorm:"type:text"`
	Recommendations           string `json:"recommendations" gorm:"type:text"`

	// Branch teacher sections, one text each
	English     string `json:"english" gorm:"type:text"`
	Quran       string `json:"quran" gorm:"type:text"`
	MoralValues string `json:"moral_values" gorm:"type:text"`
	Etiquette   string `json:"etiquette" gorm:"type:text"`
	ArtMusic    string `json:"art_music" gorm:"type:text"`

	// Guidance counselor section
	GuidanceEvaluation string `json:"guidance_evaluation" gorm:"type:text"`

	// Per-section owner stamps
	MontessoriTeacherID  *uint `json:"montessori_teacher_id"`
	EnglishTeacherID     *uint `json:"english_teacher_id"`
	QuranTeacherID       *uint `json:"quran_teacher_id"`
	MoralValuesTeacherID *uint `json:"moral_values_teacher_id"`
	EtiquetteTeacherID   *uint `json:"etiquette_teacher_id"`
	ArtMusicTeacherID    *uint `json:"art_music_teacher_id"`
	GuidanceTeacherID    *uint `json:"guidance_teacher_id"`

	// Per-section completion flags, set true on first save, never auto-cleared
	MontessoriCompleted  bool `json:"montessori_completed" gorm:"default:false"`
	EnglishCompleted     bool `json:"english_completed" gorm:"default:false"`
	QuranCompleted       bool `json:"quran_completed" gorm:"default:false"`
	MoralValuesCompleted bool `json:"moral_values_completed" gorm:"default:false"`
	EtiquetteCompleted   bool `json:"etiquette_completed" gorm:"default:false"`
	ArtMusicCompleted    bool `json:"art_music_completed" gorm:"default:false"`
	GuidanceCompleted    bool `json:"guidance_completed" gorm:"default:false"`

	Status string `json:"status" gorm:"size:50;not null;default:'draft';type:enum('draft','completed','approved');index"`

	ApprovedByID *uint      `json:"approved_by_id"`
	ApprovedAt   *time.Time `json:"approved_at"`

	// Relationships
	Child      Child          `json:"child,omitempty" gorm:"foreignKey:ChildID"`
	Period     AcademicPeriod `json:"period,omitempty" gorm:"foreignKey:PeriodID"`
	Teacher    User           `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	ApprovedBy *User          `json:"approved_by,omitempty" gorm:"foreignKey:ApprovedByID"`
}

// SectionFlags returns the completion flags keyed by section name.
func (r *PeriodicReport) SectionFlags() map[string]bool {
	return map[string]bool{
		SectionMontessori:  r.MontessoriCompleted,
		SectionEnglish:     r.EnglishCompleted,
		SectionQuran:       r.QuranCompleted,
		SectionMoralValues: r.MoralValuesCompleted,
		SectionEtiquette:   r.EtiquetteCompleted,
		SectionArtMusic:    r.ArtMusicCompleted,
		SectionGuidance:    r.GuidanceCompleted,
	}
}

// MissingSections returns the names of sections whose completion flag is
// still false, in a stable order. The montessori section is skipped when
// the caller is the class teacher saving it in the same request.
func (r *PeriodicReport) MissingSections(skipMontessori bool) []string {
	order := []string{
		SectionMontessori, SectionEnglish, SectionQuran,
		SectionMoralValues, SectionEtiquette, SectionArtMusic, SectionGuidance,
	}
	flags := r.SectionFlags()
	var missing []string
	for _, name := range order {
		if name == SectionMontessori && skipMontessori {
			continue
		}
		if !flags[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// CompletionRate returns round(100 * completed sections / 7).
func (r *PeriodicReport) CompletionRate() int {
	trueCount := 0
	for _, done := range r.SectionFlags() {
		if done {
			trueCount++
		}
	}
	return int(math.Round(100 * float64(trueCount) / float64(ReportSectionCount)))
}

// CanTransition reports whether the report status may move from -> to.
// Valid moves: draft->completed, completed->approved, approved->completed.
// The class teacher may also re-save a completed report as draft; only an
// approved report is frozen until the approval is revoked.
func CanTransition(from, to string) bool {
	switch from {
	case ReportDraft:
		return to == ReportCompleted || to == ReportDraft
	case ReportCompleted:
		return to == ReportApproved || to == ReportCompleted || to == ReportDraft
	case ReportApproved:
		return to == ReportCompleted
	}
	return false
}
