package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// bindJSON decodes the request body into dst, replying 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *handler) health(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.log.Warn(c.Request.Context(), "store ping failed", "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) signup(c *gin.Context) {
	var in services.SignupInput
	if !bindJSON(c, &in) {
		return
	}

	pending, err := h.signups.StartSignup(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := signupResponse{
		VerificationID: pending.VerificationID,
		ExpiresIn:      int(pending.ExpiresIn / time.Second),
		SMSDestination: pending.SMSDestination,
		Message:        "Verification code sent via SMS. Your initial password will be your student ID.",
	}
	if h.exposeCode {
		out.DevSMSCode = pending.Code
	}
	c.JSON(http.StatusCreated, out)
}

func (h *handler) verifySMS(c *gin.Context) {
	var in services.VerifyInput
	if !bindJSON(c, &in) {
		return
	}

	sess, err := h.signups.VerifySMS(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{AccessToken: sess.AccessToken, TokenType: "bearer", User: toUser(sess.User)})
}

func (h *handler) login(c *gin.Context) {
	var in loginRequest
	if !bindJSON(c, &in) {
		return
	}

	sess, err := h.users.Login(c.Request.Context(), in.Identifier, in.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{AccessToken: sess.AccessToken, TokenType: "bearer", User: toUser(sess.User)})
}

func (h *handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, toUser(currentUser(c)))
}

func (h *handler) listEvents(c *gin.Context) {
	filter := models.EventFilter{Type: models.EventType(strings.ToLower(c.Query("type")))}
	if m := c.Query("month"); m != "" {
		month, err := strconv.Atoi(m)
		if err != nil {
			badRequest(c, "month must be a number between 1 and 12")
			return
		}
		filter.Month = month
	}

	list, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := make([]eventSummary, 0, len(list))
	for _, e := range list {
		out = append(out, toEventSummary(e))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) getEvent(c *gin.Context) {
	e, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventDetail(e))
}

func (h *handler) createEvent(c *gin.Context) {
	var in services.EventInput
	if !bindJSON(c, &in) {
		return
	}

	e, err := h.catalog.Create(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEventDetail(e))
}

func (h *handler) updateEvent(c *gin.Context) {
	var in services.EventInput
	if !bindJSON(c, &in) {
		return
	}

	e, err := h.catalog.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventDetail(e))
}

func (h *handler) deleteEvent(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) eventRegistrations(c *gin.Context) {
	list, err := h.registrations.ListByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRegistrations(list))
}

func (h *handler) presignImage(c *gin.Context) {
	var in imageUploadRequest
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	up, err := h.images.PresignUpload(c.Request.Context(), c.Param("id"), in.FileName)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, imageUploadResponse{
		EventID:   up.EventID,
		Key:       up.Key,
		URL:       up.URL,
		Method:    http.MethodPut,
		ExpiresAt: up.ExpiresAt,
	})
}

func (h *handler) myRegistrations(c *gin.Context) {
	list, err := h.registrations.ListForUser(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := make([]myRegistrationResponse, 0, len(list))
	for i := range list {
		out = append(out, myRegistrationResponse{
			Registration: toRegistration(&list[i].Registration),
			Event:        toEventSummary(&list[i].Event),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) enroll(c *gin.Context) {
	var in enrollRequest
	if !bindJSON(c, &in) {
		return
	}
	if strings.TrimSpace(in.EventID) == "" {
		badRequest(c, "event_id is required")
		return
	}

	reg, err := h.registrations.RegisterUser(c.Request.Context(), currentUser(c), in.EventID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRegistration(reg))
}

func (h *handler) cancelEnrollment(c *gin.Context) {
	reg, err := h.registrations.CancelForUser(c.Request.Context(), currentUser(c), c.Param("event_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRegistration(reg))
}

func (h *handler) adminSummary(c *gin.Context) {
	s, err := h.admin.Summary(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdminSummary(s))
}

func (h *handler) exportRegistrations(c *gin.Context) {
	wb, err := h.admin.ExportRegistrations(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", wb.FileName))
	c.Data(http.StatusOK, xlsxContentType, wb.Data)
}

func (h *handler) listUsers(c *gin.Context) {
	list, err := h.users.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := make([]userResponse, 0, len(list))
	for _, u := range list {
		out = append(out, toUser(u))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) setUserActive(c *gin.Context) {
	var in setActiveRequest
	if !bindJSON(c, &in) {
		return
	}
	if in.Active == nil {
		badRequest(c, "active is required")
		return
	}

	if err := h.users.SetActive(c.Request.Context(), c.Param("id"), *in.Active); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) recentNotifications(c *gin.Context) {
	if h.notices == nil {
		c.JSON(http.StatusOK, []models.Notification{})
		return
	}
	c.JSON(http.StatusOK, h.notices.Recent())
}
