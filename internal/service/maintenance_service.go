package service

import (
	"context"
	"examprep_backend/pkg/logger"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// MaintenanceService 定时清理长期未完成的考试
type MaintenanceService struct {
	Exams    *ExamService
	Sessions SessionStore
	cron     *cron.Cron
}

func NewMaintenanceService(exams *ExamService, sessions SessionStore) *MaintenanceService {
	return &MaintenanceService{
		Exams:    exams,
		Sessions: sessions,
		cron:     cron.New(),
	}
}

// Start 按 schedule 注册任务，schedule 为空时不启动
func (s *MaintenanceService) Start(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return err
	}
	s.cron.Start()
	logger.Log.Info("Maintenance job scheduled", zap.String("schedule", schedule))
	return nil
}

func (s *MaintenanceService) Stop() context.Context {
	return s.cron.Stop()
}

func (s *MaintenanceService) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.Exams.PurgeAbandoned(ctx)
	if err != nil {
		logger.Log.Error("Failed to purge abandoned exams", zap.Error(err))
	} else if n > 0 {
		logger.Log.Info("Purged abandoned exams", zap.Int64("count", n))
	}

	if mem, ok := s.Sessions.(*MemorySessionStore); ok {
		if removed := mem.Sweep(); removed > 0 {
			logger.Log.Debug("Swept expired sessions", zap.Int("count", removed))
		}
	}
}
