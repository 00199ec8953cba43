package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	errListSchedules  = "failed to load schedules"
	errDeleteSchedule = "failed to delete schedule"
)

// AddScheduleRequest is the payload for creating a reminder entry.
type AddScheduleRequest struct {
	// Time of day on a 24h clock
	TimeOfDay string `json:"time_of_day" binding:"required" example:"09:00"`
	// Message spoken/sent when the entry fires
	Content string `json:"content" binding:"required" example:"standup"`
}

// @Summary      List schedule entries
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, schedules"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/schedules [get]
// @Security     BearerAuth
func (h *Handler) listSchedules(c *gin.Context) {
	entries, err := h.services.Schedules.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListSchedules, "schedules_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":     len(entries),
		"schedules": entries,
	})
}

// @Summary      Add schedule entry
// @Description  time_of_day must be HH:MM (00-23 hours, 00-59 minutes); content must be non-empty.
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body   AddScheduleRequest  true  "Entry payload"
// @Success      200   {object}  presence_monitor.ScheduleEntry
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/schedules [post]
// @Security     BearerAuth
func (h *Handler) addSchedule(c *gin.Context) {
	var req AddScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	entry, err := h.services.Schedules.Add(c.Request.Context(), req.TimeOfDay, req.Content)
	if err != nil {
		// Validation failures come back as plain errors from the service.
		if h.log != nil {
			h.log.Infow("schedule_add_rejected", "time_of_day", req.TimeOfDay, "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// @Summary      Delete schedule entry
// @Tags         schedules
// @Produce      json
// @Param        id   path   string  true  "Entry ID"
// @Success      200  {object}  map[string]interface{}  "deleted"
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/schedules/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteSchedule(c *gin.Context) {
	id := c.Param("id")
	ok, err := h.services.Schedules.Delete(c.Request.Context(), id)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errDeleteSchedule, "schedule_delete_failed", err, "id", id)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
