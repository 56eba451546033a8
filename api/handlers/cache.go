package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/storefront/cache"
)

// =============================================================================
// 💾 缓存运维 Handler
// =============================================================================

// CacheHandler 暴露统一缓存的统计与失效操作
type CacheHandler struct {
	cache  *cache.Unified
	logger *zap.Logger
}

// NewCacheHandler 创建缓存运维处理器
func NewCacheHandler(c *cache.Unified, logger *zap.Logger) *CacheHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheHandler{
		cache:  c,
		logger: logger.With(zap.String("component", "cache_handler")),
	}
}

// InvalidateRequest 按模式失效请求
type InvalidateRequest struct {
	Pattern string `json:"pattern"`
}

// InvalidateResponse 失效结果
type InvalidateResponse struct {
	Pattern string `json:"pattern"`
	Removed int    `json:"removed"`
}

// DeleteResponse 删除结果
type DeleteResponse struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
}

// Register 挂载路由
func (h *CacheHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/cache/stats", h.HandleStats)
	mux.HandleFunc("DELETE /api/v1/cache/keys/{key...}", h.HandleDeleteKey)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.HandleInvalidate)
	mux.HandleFunc("POST /api/v1/cache/clear", h.HandleClear)
}

// HandleStats GET /api/v1/cache/stats
func (h *CacheHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.cache.Stats(r.Context()))
}

// HandleDeleteKey DELETE /api/v1/cache/keys/{key}
func (h *CacheHandler) HandleDeleteKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		WriteError(w, r, http.StatusBadRequest, CodeInvalidRequest, "key is required", h.logger)
		return
	}

	deleted := h.cache.Delete(r.Context(), key)
	h.logger.Info("cache key deleted", zap.String("key", key), zap.Bool("deleted", deleted))

	if !deleted {
		WriteError(w, r, http.StatusNotFound, CodeNotFound, "key not cached", h.logger)
		return
	}
	WriteSuccess(w, r, DeleteResponse{Key: key, Deleted: true})
}

// HandleInvalidate POST /api/v1/cache/invalidate
func (h *CacheHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	pattern := strings.TrimSpace(req.Pattern)
	if pattern == "" {
		WriteError(w, r, http.StatusBadRequest, CodeInvalidRequest, "pattern is required", h.logger)
		return
	}

	removed := h.cache.InvalidateByPattern(r.Context(), pattern)
	WriteSuccess(w, r, InvalidateResponse{Pattern: pattern, Removed: removed})
}

// HandleClear POST /api/v1/cache/clear
func (h *CacheHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear(r.Context())
	h.logger.Info("cache cleared")
	WriteSuccess(w, r, map[string]bool{"cleared": true})
}
