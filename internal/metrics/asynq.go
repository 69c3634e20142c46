package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 任务处理结果。
const (
	TaskSucceeded = "succeeded"
	TaskRetrying  = "retrying"
	TaskAbandoned = "abandoned"
)

var (
	taskProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magicyan",
			Subsystem: "asynq",
			Name:      "tasks_processed_total",
			Help:      "任务处理总数，按队列、类型与结果分类。",
		},
		[]string{"queue", "task_type", "outcome"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "magicyan",
			Subsystem: "asynq",
			Name:      "task_duration_seconds",
			Help:      "任务处理耗时（秒）；PDF 导出包含浏览器渲染时间。",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"queue", "task_type"},
	)

	taskInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "magicyan",
			Subsystem: "asynq",
			Name:      "tasks_in_progress",
			Help:      "当前正在处理的任务数量。",
		},
		[]string{"queue", "task_type"},
	)
)

// TaskOutcome 区分成功、可重试失败与放弃（SkipRetry 或重试次数耗尽）。
func TaskOutcome(ctx context.Context, err error) string {
	if err == nil {
		return TaskSucceeded
	}
	if errors.Is(err, asynq.SkipRetry) {
		return TaskAbandoned
	}
	retried, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if ok1 && ok2 && retried >= maxRetry {
		return TaskAbandoned
	}
	return TaskRetrying
}

// AsynqMetricsMiddleware 记录 Asynq 任务处理指标。
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			queue, ok := asynq.GetQueueName(ctx)
			if !ok {
				queue = "default"
			}
			taskType := task.Type()

			inProgress := taskInProgress.WithLabelValues(queue, taskType)
			inProgress.Inc()
			defer inProgress.Dec()

			start := time.Now()
			err := next.ProcessTask(ctx, task)
			taskDuration.WithLabelValues(queue, taskType).Observe(time.Since(start).Seconds())
			taskProcessedTotal.WithLabelValues(queue, taskType, TaskOutcome(ctx, err)).Inc()

			return err
		})
	}
}
