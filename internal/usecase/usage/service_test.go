package usage

import (
	"context"
	"testing"
	"time"
)

// --- Mock ---

type mockBudgetReader struct {
	dailyLimit       int64
	monthlyLimit     int64
	dailyUsed        int64
	monthlyUsed      int64
	remainingDaily   int64
	remainingMonthly int64
}

func (m *mockBudgetReader) DailyLimit() int64       { return m.dailyLimit }
func (m *mockBudgetReader) MonthlyLimit() int64     { return m.monthlyLimit }
func (m *mockBudgetReader) DailyUsed() int64        { return m.dailyUsed }
func (m *mockBudgetReader) MonthlyUsed() int64      { return m.monthlyUsed }
func (m *mockBudgetReader) RemainingDaily() int64   { return m.remainingDaily }
func (m *mockBudgetReader) RemainingMonthly() int64 { return m.remainingMonthly }

// --- Tests ---

func TestGetReport(t *testing.T) {
	br := &mockBudgetReader{
		dailyLimit:       10000,
		dailyUsed:        3000,
		remainingDaily:   7000,
		monthlyLimit:     100000,
		monthlyUsed:      50000,
		remainingMonthly: 50000,
	}
	svc := New(br)
	r := svc.GetReport(context.Background())

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if r.Daily.Start != dayStart.UnixMilli() {
		t.Errorf("expected daily start %d, got %d", dayStart.UnixMilli(), r.Daily.Start)
	}
	if r.Daily.End != dayStart.Add(24*time.Hour).UnixMilli() {
		t.Errorf("expected daily end %d, got %d", dayStart.Add(24*time.Hour).UnixMilli(), r.Daily.End)
	}
	if r.Daily.Limit != 10000 || r.Daily.Used != 3000 || r.Daily.Remaining != 7000 {
		t.Errorf("daily = %+v", r.Daily)
	}
	if r.Daily.Exhausted {
		t.Error("daily budget should not be exhausted")
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if r.Monthly.Start != monthStart.UnixMilli() {
		t.Errorf("expected monthly start %d, got %d", monthStart.UnixMilli(), r.Monthly.Start)
	}
	if r.Monthly.End != monthStart.AddDate(0, 1, 0).UnixMilli() {
		t.Errorf("expected monthly end %d, got %d", monthStart.AddDate(0, 1, 0).UnixMilli(), r.Monthly.End)
	}
	if r.Monthly.Limit != 100000 || r.Monthly.Used != 50000 {
		t.Errorf("monthly = %+v", r.Monthly)
	}
}

func TestGetReport_Exhausted(t *testing.T) {
	br := &mockBudgetReader{
		dailyLimit:       1000,
		dailyUsed:        1000,
		remainingDaily:   0,
		monthlyLimit:     100000,
		monthlyUsed:      1000,
		remainingMonthly: 99000,
	}
	svc := New(br)
	r := svc.GetReport(context.Background())

	if !r.Daily.Exhausted {
		t.Error("daily budget should be exhausted")
	}
	if r.Monthly.Exhausted {
		t.Error("monthly budget should not be exhausted")
	}
}

func TestGetReport_UnlimitedMode(t *testing.T) {
	svc := New(nil)
	r := svc.GetReport(context.Background())

	if r.Daily.Limit != 0 || r.Daily.Exhausted {
		t.Errorf("daily = %+v", r.Daily)
	}
	if r.Monthly.Limit != 0 || r.Monthly.Exhausted {
		t.Errorf("monthly = %+v", r.Monthly)
	}
}
