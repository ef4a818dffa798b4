package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-favourites/internal/mail"
)

const healthCheckTimeout = 2 * time.Second

const (
	statusPass = "pass"
	statusFail = "fail"
)

// HealthChecker reports on Postgres and Redis, plus the mail queue backlog
// when emails are delivered through the queue.
type HealthChecker struct {
	infra Infrastructure
	queue *mail.Queue
}

// NewHealthChecker creates a health checker. queue may be nil.
func NewHealthChecker(infra Infrastructure, queue *mail.Queue) *HealthChecker {
	return &HealthChecker{
		infra: infra,
		queue: queue,
	}
}

type checkResult struct {
	name string
	err  error
}

func (h *HealthChecker) check(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	results := make(chan checkResult, 2)

	go func() {
		results <- checkResult{name: "postgres", err: h.infra.Postgres().Ping(ctx)}
	}()

	go func() {
		results <- checkResult{name: "redis", err: h.infra.Redis().Ping(ctx)}
	}()

	checks := make(map[string]string, 2)
	for range 2 {
		r := <-results
		if r.err != nil {
			checks[r.name] = r.err.Error()
			continue
		}
		checks[r.name] = statusPass
	}

	return checks
}

func (h *HealthChecker) Handler(c *gin.Context) {
	checks := h.check(c.Request.Context())

	status, code := statusPass, http.StatusOK
	for _, v := range checks {
		if v != statusPass {
			status, code = statusFail, http.StatusServiceUnavailable
			break
		}
	}

	body := gin.H{
		"status": status,
		"checks": checks,
	}

	if h.queue != nil && status == statusPass {
		queued, processing, dead, err := h.queue.Depth(c.Request.Context())
		if err == nil {
			body["mail_queue"] = gin.H{
				"queued":     queued,
				"processing": processing,
				"dead":       dead,
			}
		}
	}

	c.JSON(code, body)
}
