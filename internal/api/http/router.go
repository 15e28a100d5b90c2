// Copyright 2026 The trip-planner Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"trip-planner/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	// metricsEnabled 控制 /api/system/metrics 是否注册
	metricsEnabled bool
	// rateLimitRPS <= 0 表示不限流
	rateLimitRPS float64
}

// NewRouter 创建路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw, metricsEnabled: true}
}

// SetMetricsEnabled 控制指标端点的注册
func (r *Router) SetMetricsEnabled(enabled bool) {
	r.metricsEnabled = enabled
}

// SetRateLimit 设置全局限流速率
func (r *Router) SetRateLimit(rps float64) {
	r.rateLimitRPS = rps
}

// Build 构建 Hertz Server 并注册路由
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	opts = append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(opts...)

	h.Use(r.middleware.CORS())
	h.Use(r.middleware.AccessLog())
	if r.rateLimitRPS > 0 {
		h.Use(r.middleware.RateLimit(r.rateLimitRPS))
	}

	api := h.Group("/api")
	{
		api.GET("/health", r.handler.HealthCheck)
		api.POST("/plan", r.handler.Plan)

		sessions := api.Group("/sessions")
		{
			sessions.GET("/:id", r.handler.GetSession)
			sessions.GET("/:id/history", r.handler.SessionHistory)
			sessions.DELETE("/:id", r.handler.DeleteSession)
		}

		system := api.Group("/system")
		{
			system.GET("/status", r.handler.SystemStatus)
			if r.metricsEnabled {
				system.GET("/metrics", r.handler.SystemMetrics)
			}
		}
	}

	return h
}
