package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/diewo77/paintms/internal/logging"
	"github.com/diewo77/paintms/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Activity is one audit trail event to record.
type Activity struct {
	UserID    uint
	Action    string
	Details   any
	IPAddress string
	UserAgent string
}

// ActivityPage is one page of the audit trail, newest first.
type ActivityPage struct {
	Logs       []models.ActivityLog `json:"logs"`
	Pagination Pagination           `json:"pagination"`
}

type ActivityService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewActivityService(db *gorm.DB, log logrus.FieldLogger) *ActivityService {
	return &ActivityService{db: db, log: log}
}

// Record stores an event. Failures are logged and never reach the caller.
func (s *ActivityService) Record(ctx context.Context, a Activity) {
	entry := models.ActivityLog{
		Action:    a.Action,
		IPAddress: truncate(a.IPAddress, 64),
		UserAgent: truncate(a.UserAgent, 255),
	}
	if a.UserID != 0 {
		uid := a.UserID
		entry.UserID = &uid
	}
	if a.Details != nil {
		b, err := json.Marshal(a.Details)
		if err != nil {
			logging.LogError(s.log, "services", "ActivityService.Record", "marshal details", a.Action, err)
		} else {
			entry.Details = string(b)
		}
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		logging.LogError(s.log, "services", "ActivityService.Record", "insert activity", a.Action, err)
	}
}

// List returns the events of userID, or of everyone when userID is 0.
func (s *ActivityService) List(ctx context.Context, userID uint, page, limit int) (*ActivityPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	byUser := func(db *gorm.DB) *gorm.DB {
		if userID == 0 {
			return db
		}
		return db.Where("user_id = ?", userID)
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.ActivityLog{}).Scopes(byUser).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count activity: %w", err)
	}
	logs := []models.ActivityLog{}
	err := s.db.WithContext(ctx).Scopes(byUser).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return &ActivityPage{
		Logs: logs,
		Pagination: Pagination{
			Current:      page,
			Total:        int((total + int64(limit) - 1) / int64(limit)),
			Count:        len(logs),
			TotalRecords: total,
		},
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
