package handlers

import (
	"errors"
	"net/http"

	"storefront/models"
	"storefront/state"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	store *state.Store
}

func NewSessionHandler(store *state.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

// Get handles GET /session
func (h *SessionHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.view())
}

// Login handles POST /session with the user record returned by sign-in.
func (h *SessionHandler) Login(c *gin.Context) {
	var record models.UserRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		invalidBody(c, err)
		return
	}
	if _, err := h.store.Login(c.Request.Context(), record); err != nil {
		if errors.Is(err, state.ErrMissingUserID) {
			invalidBody(c, err)
			return
		}
		// Signed in, but the session did not reach durable storage.
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "STORAGE_ERROR",
			Message: "Failed to save session",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, h.view())
}

// Logout handles DELETE /session
func (h *SessionHandler) Logout(c *gin.Context) {
	h.store.Logout(c.Request.Context())
	c.JSON(http.StatusOK, h.view())
}

func (h *SessionHandler) view() SessionView {
	snap := h.store.Snapshot()
	return SessionView{
		Authenticated:        snap.Authenticated,
		InitialCheckComplete: snap.InitialCheckComplete,
		Session:              snap.Session,
	}
}
