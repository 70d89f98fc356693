package handler

import (
	"net/http"

	"custodia/internal/service"
	"custodia/pkg/pagination"
	"custodia/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	audit := router.Group("/api/audit")
	{
		audit.GET("", h.ListAudit)
	}
}

// ListAudit returns audit records filtered by entity, actor and action.
func (h *AuditHandler) ListAudit(c *gin.Context) {
	filter := service.AuditListFilter{
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		ActorID:    c.Query("actor_id"),
		Action:     c.Query("action"),
	}
	params := pagination.Parse(c)

	records, total, err := h.auditService.List(c.Request.Context(), filter, params.Page, params.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, records, params.Page, params.Limit, total))
}
