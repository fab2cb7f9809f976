package prometheus

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the default registry, which carries the booking and
// outbox collectors registered through promauto.
type Handler struct {
	gatherer prometheus.Gatherer
}

func New() *Handler {
	return &Handler{gatherer: prometheus.DefaultGatherer}
}

func (h *Handler) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}
