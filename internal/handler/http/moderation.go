package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/YofiAsi/debate-back/internal/repository"
)

// ModerationHandler 暴露拉黑审计记录的查询接口，给运营后台用。
type ModerationHandler struct {
	moderationRepo repository.ModerationRepository
}

// NewModerationHandler 创建 ModerationHandler 实例。
func NewModerationHandler(moderationRepo repository.ModerationRepository) *ModerationHandler {
	if moderationRepo == nil {
		panic("ModerationRepository cannot be nil for ModerationHandler")
	}
	return &ModerationHandler{moderationRepo: moderationRepo}
}

// ListByRoom 返回某房间的拉黑记录，按发生时间倒序。
// GET /api/moderation/rooms/:roomId?limit=50
func (h *ModerationHandler) ListByRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	if roomID == "" {
		ErrorResponse(c, http.StatusBadRequest, "roomId is required")
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			ErrorResponse(c, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	events, err := h.moderationRepo.ListByRoom(c.Request.Context(), roomID, limit)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to list moderation events")
		ErrorResponse(c, http.StatusInternalServerError, "Failed to load moderation events")
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"roomId": roomID, "events": events})
}
