package usage

import (
	"context"
	"time"
)

// PeriodUsage reports token consumption against one budget window.
type PeriodUsage struct {
	Start     int64 // unix millis, UTC window start
	End       int64 // unix millis, UTC window end
	Limit     int64 // 0 = unlimited
	Used      int64
	Remaining int64
	Exhausted bool
}

// Report aggregates daily and monthly embedding token usage.
type Report struct {
	Daily   PeriodUsage
	Monthly PeriodUsage
}

// Service handles usage reporting.
type Service struct {
	br BudgetReader
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br}
}

// GetReport builds the current usage report.
func (s *Service) GetReport(_ context.Context) Report {
	now := time.Now().UTC()

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	daily := PeriodUsage{
		Start: dayStart.UnixMilli(),
		End:   dayStart.Add(24 * time.Hour).UnixMilli(),
	}
	monthly := PeriodUsage{
		Start: monthStart.UnixMilli(),
		End:   monthStart.AddDate(0, 1, 0).UnixMilli(),
	}

	if s.br != nil {
		daily.Limit = s.br.DailyLimit()
		daily.Used = s.br.DailyUsed()
		daily.Remaining = s.br.RemainingDaily()
		daily.Exhausted = daily.Limit > 0 && daily.Remaining <= 0

		monthly.Limit = s.br.MonthlyLimit()
		monthly.Used = s.br.MonthlyUsed()
		monthly.Remaining = s.br.RemainingMonthly()
		monthly.Exhausted = monthly.Limit > 0 && monthly.Remaining <= 0
	}

	return Report{Daily: daily, Monthly: monthly}
}
