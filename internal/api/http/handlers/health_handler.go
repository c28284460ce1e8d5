package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/binkeyit/storefront/pkg/util"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	deps        map[string]Pinger
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, deps: deps}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	depStatus := map[string]any{}
	ready := true
	for _, name := range names {
		if err := h.deps[name].Ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
			continue
		}
		depStatus[name] = "ok"
	}

	if !ready {
		return apperrors.NewDomainError("DEPENDENCY_UNAVAILABLE", "one or more dependencies unavailable",
			fiber.StatusServiceUnavailable, depStatus)
	}
	return c.JSON(fiber.Map{
		"status":       "ready",
		"dependencies": depStatus,
	})
}
