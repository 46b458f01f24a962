package services

import (
	"fmt"

	"rawdahkids_go/database"
	"rawdahkids_go/models"
	notifservice "rawdahkids_go/services/notifications"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler owns the periodic jobs: log maintenance, Instagram feed refresh
// and report deadline reminders.
type Scheduler struct {
	cron       *cron.Cron
	logArchive *LogArchiveService
	instagram  *InstagramService
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		logArchive: NewLogArchiveService(),
		instagram:  NewInstagramService(),
	}
}

// Start registers all jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	// Flush Redis-cached activity logs hourly, keeping the write-behind window
	if _, err := s.cron.AddFunc("@hourly", func() {
		if err := s.logArchive.FlushCachedLogsToDatabase(LogBufferMaxAge); err != nil {
			logrus.WithError(err).Error("Scheduled log flush failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule log flush: %v", err)
	}

	// Archive logs older than 90 days, nightly at 02:30
	if _, err := s.cron.AddFunc("30 2 * * *", func() {
		if err := s.logArchive.ArchiveOldLogs(90); err != nil {
			logrus.WithError(err).Error("Scheduled log archive failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule log archive: %v", err)
	}

	// Refresh the mirrored Instagram feed every 15 minutes
	if _, err := s.cron.AddFunc("*/15 * * * *", func() {
		if _, err := s.instagram.RefreshFeed(12); err != nil {
			logrus.WithError(err).Warn("Scheduled Instagram refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule instagram refresh: %v", err)
	}

	// Remind teachers about unfinished report cards, weekdays at 08:00
	if _, err := s.cron.AddFunc("0 8 * * 1-5", s.sendReportReminders); err != nil {
		return fmt.Errorf("failed to schedule report reminders: %v", err)
	}

	s.cron.Start()
	logrus.Info("Scheduler started")
	return nil
}

// Stop stops the cron runner, waiting for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logrus.Info("Scheduler stopped")
}

// sendReportReminders notifies class teachers holding draft reports in the
// active period, and admins when completed reports await approval.
func (s *Scheduler) sendReportReminders() {
	db := database.GetDB()

	var period models.AcademicPeriod
	if err := db.Where("is_active = ?", true).First(&period).Error; err != nil {
		return // no active period, nothing to remind about
	}

	notif := notifservice.NewService()

	var draftTeacherIDs []uint
	db.Model(&models.PeriodicReport{}).
		Where("period_id = ? AND status = ?", period.ID, models.ReportDraft).
		Distinct().
		Pluck("teacher_id", &draftTeacherIDs)

	if len(draftTeacherIDs) > 0 {
		if err := notif.EnqueueOrCreate(draftTeacherIDs, notifservice.Queued(
			"Report cards in progress",
			fmt.Sprintf("You have draft report cards for %s awaiting completion.", period.Name),
			"warning", "normal",
		)); err != nil {
			logrus.WithError(err).Warn("Failed to queue teacher report reminders")
		}
	}

	var pendingCount int64
	db.Model(&models.PeriodicReport{}).
		Where("period_id = ? AND status = ?", period.ID, models.ReportCompleted).
		Count(&pendingCount)

	if pendingCount > 0 {
		var adminIDs []uint
		db.Model(&models.User{}).
			Where("role = ? AND status = ?", models.RoleAdmin, models.AccountActive).
			Pluck("id", &adminIDs)

		if len(adminIDs) > 0 {
			if err := notif.EnqueueOrCreate(adminIDs, notifservice.Queued(
				"Reports awaiting approval",
				fmt.Sprintf("%d completed report cards for %s are waiting for approval.", pendingCount, period.Name),
				"info", "normal",
			)); err != nil {
				logrus.WithError(err).Warn("Failed to queue admin approval reminders")
			}
		}
	}
}
