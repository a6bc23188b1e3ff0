package http

import (
	"net/http"

	"anoa.com/librarydesk/internal/middleware"
	statService "anoa.com/librarydesk/internal/modules/stat/service"
	"anoa.com/librarydesk/pkg/response"
	"github.com/gin-gonic/gin"
)

type StatHandler struct {
	statService statService.StatService
}

func NewStatHandler(statService statService.StatService) *StatHandler {
	return &StatHandler{
		statService: statService,
	}
}

func (h *StatHandler) Dashboard(c *gin.Context) {
	res, err := h.statService.Dashboard(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}
