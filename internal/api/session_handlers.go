package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amirk1998/secure-bank/internal/session"
)

type interactionsRequest struct {
	Events []string `json:"events"`
}

type reauthRequest struct {
	Password string `json:"password"`
}

func (h *Handler) sessionStatus(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p.Session.Snapshot())
}

// sessionStream pushes the session snapshot every second until the session
// ends or the client disconnects.
func (h *Handler) sessionStream(c *gin.Context) {
	token := bearerToken(c)
	ctx := c.Request.Context()

	h.streamer.Serve(c.Writer, c.Request, func() (session.Snapshot, error) {
		p, err := h.sessions.ResolveSession(ctx, token)
		if err != nil {
			return session.Snapshot{}, err
		}
		return p.Session.Snapshot(), nil
	})
}

func (h *Handler) interactions(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req interactionsRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.sessions.RecordInteractions(p, req.Events))
}

func (h *Handler) enterFeature(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.sessions.EnterFeature(p, c.Param("name")))
}

func (h *Handler) reauthenticate(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req reauthRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.sessions.Reauthenticate(c.Request.Context(), p, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
