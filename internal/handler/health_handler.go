package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-arena/internal/config"
	"github.com/noah-isme/gema-arena/internal/utils"
)

const healthCheckTimeout = 2 * time.Second

// HealthDependency is a backing service the portal needs to answer requests.
type HealthDependency struct {
	Name     string
	Check    func(ctx context.Context) error
	Optional bool
}

// DependencyHealth is the state of one dependency in the health payload.
type DependencyHealth struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Service      string                      `json:"service"`
	Environment  string                      `json:"environment"`
	Upstream     string                      `json:"upstream"`
	Dependencies map[string]DependencyHealth `json:"dependencies,omitempty"`
}

// HealthCheck reports whether the arena backend and the portal's own stores
// are reachable. A failing required dependency turns the answer into a 503;
// optional ones only mark the payload degraded.
func HealthCheck(cfg config.Config, deps ...HealthDependency) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Upstream:    cfg.UpstreamBaseURL,
		}

		healthy := true
		if len(deps) > 0 {
			payload.Dependencies = make(map[string]DependencyHealth, len(deps))
		}
		for _, dep := range deps {
			state := checkDependency(requestContext(c), dep)
			payload.Dependencies[dep.Name] = state
			if state.Status == "ok" {
				continue
			}
			if dep.Optional {
				if payload.Status == "ok" {
					payload.Status = "degraded"
				}
				continue
			}
			healthy = false
		}

		if !healthy {
			payload.Status = "unavailable"
			return utils.Fail(c, fiber.StatusServiceUnavailable, "service unavailable", payload)
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}

func checkDependency(parent context.Context, dep HealthDependency) DependencyHealth {
	ctx, cancel := context.WithTimeout(parent, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	err := dep.Check(ctx)
	state := DependencyHealth{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		state.Status = "down"
		state.Error = err.Error()
	}
	return state
}
