package service

import (
	"context"
	"testing"
	"time"
)

func TestMaintenanceRunOnce(t *testing.T) {
	svc, store := newTestExamService(t, fourQuestions())
	mem := svc.Sessions.(*MemorySessionStore)

	view, err := svc.StartExam(context.Background(), 1, []uint{1}, 2)
	if err != nil {
		t.Fatal(err)
	}

	later := time.Now().Add(3 * time.Hour)
	svc.Now = func() time.Time { return later }
	mem.now = func() time.Time { return later }

	job := NewMaintenanceService(svc, mem)
	job.RunOnce()

	if len(store.exams) != 0 {
		t.Fatalf("%d exams left after purge", len(store.exams))
	}
	var snap SessionSnapshot
	if found, _ := mem.Get(context.Background(), sessionKey(view.ExamID), &snap); found {
		t.Fatal("expired session not swept")
	}
}

func TestMaintenanceStartRejectsBadSchedule(t *testing.T) {
	svc, _ := newTestExamService(t, nil)
	job := NewMaintenanceService(svc, svc.Sessions)

	if err := job.Start("not a schedule"); err == nil {
		t.Fatal("invalid schedule accepted")
	}
	if err := job.Start(""); err != nil {
		t.Fatalf("empty schedule: %v", err)
	}
	<-job.Stop().Done()
}
