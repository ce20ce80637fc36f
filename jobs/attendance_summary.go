package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/sahel-erp/sahel-erp/internal/attendance"
	jobmetrics "github.com/sahel-erp/sahel-erp/internal/jobs"
	"github.com/sahel-erp/sahel-erp/internal/platform/cache"
)

// SummaryTTL is how long a cached daily summary is kept.
const SummaryTTL = 48 * time.Hour

// AttendanceStats is the part of the attendance service the summary needs.
type AttendanceStats interface {
	Today() time.Time
	StatsFor(ctx context.Context, day time.Time) (attendance.DailyStats, error)
}

// AttendanceSummaryJob classifies the day's attendance and caches the result.
type AttendanceSummaryJob struct {
	Stats   AttendanceStats
	Cache   redis.Cmdable
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// SummaryKey is the cache key of the summary for day.
func SummaryKey(day time.Time) string {
	return "attendance:summary:" + day.Format(time.DateOnly)
}

// Handle processes TaskAttendanceDailySummary tasks.
func (j *AttendanceSummaryJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AttendanceSummaryPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode summary payload: %w", asynq.SkipRetry)
		}
	}
	tracker := j.Metrics.Track(TaskAttendanceDailySummary)
	return tracker.End(j.run(ctx, payload))
}

func (j *AttendanceSummaryJob) run(ctx context.Context, payload AttendanceSummaryPayload) error {
	day := j.Stats.Today()
	if payload.Date != "" {
		parsed, err := attendance.ParseDay(payload.Date)
		if err != nil {
			return fmt.Errorf("summary date %q: %w", payload.Date, asynq.SkipRetry)
		}
		day = *parsed
	}
	stats, err := j.Stats.StatsFor(ctx, day)
	if err != nil {
		j.Logger.Error("attendance summary", slog.String("date", day.Format(time.DateOnly)), slog.Any("error", err))
		return err
	}
	if j.Cache != nil {
		if err := cache.SetJSON(ctx, j.Cache, SummaryKey(day), stats, SummaryTTL); err != nil {
			j.Logger.Warn("cache attendance summary", slog.Any("error", err))
		}
	}
	j.Metrics.SetAttendance(stats.Count.Presents, stats.Count.Absents, stats.Count.Retards)
	j.Logger.Info("attendance summary",
		slog.String("date", stats.Date),
		slog.Int("presents", stats.Count.Presents),
		slog.Int("absents", stats.Count.Absents),
		slog.Int("retards", stats.Count.Retards),
		slog.Int("total", stats.Count.Total),
	)
	return nil
}
