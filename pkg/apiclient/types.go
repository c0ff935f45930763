package apiclient

import (
	"github.com/marmos91/rankly/pkg/api/handlers"
	"github.com/marmos91/rankly/pkg/cache"
	"github.com/marmos91/rankly/pkg/engine"
	"github.com/marmos91/rankly/pkg/visibility"
)

// Wire types shared with the server.
type (
	HealthResponse  = handlers.Response
	HealthData      = handlers.HealthData
	CacheStatus     = cache.Status
	CacheEntry      = cache.Entry
	SchedulerStatus = handlers.SchedulerStatusResponse
	EnqueueRequest  = handlers.EnqueueRequest
	EnqueueResponse = handlers.EnqueueResponse
	ResourceStatus  = engine.ResourceStatus
	TargetStatus    = engine.TargetStatus
	RegisterTarget  = handlers.RegisterTargetRequest
	TargetReport    = handlers.TargetReport
	ViewportRequest = handlers.ViewportRequest
	ViewportAck     = handlers.ViewportResponse
	Geometry        = visibility.Geometry
	Rect            = visibility.Rect
)
