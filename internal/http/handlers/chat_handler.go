// README: Direct chat API over the intake service, plus conversation lookup.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/http/middleware"
	"tripdesk/internal/modules/conversation"
	"tripdesk/internal/types"
)

// Intake runs conversation turns and exposes stored conversations.
type Intake interface {
	HandleMessage(ctx context.Context, userID types.ID, text string) string
	Conversation(ctx context.Context, userID types.ID) (*conversation.Record, error)
}

type ChatHandler struct {
	intake  Intake
	timeout time.Duration
}

func NewChatHandler(intake Intake, timeout time.Duration) *ChatHandler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatHandler{intake: intake, timeout: timeout}
}

type chatReq struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type conversationResp struct {
	UserID   string               `json:"user_id"`
	State    map[string]string    `json:"state"`
	Missing  []string             `json:"missing"`
	Complete bool                 `json:"complete"`
	History  conversation.History `json:"history"`
	Profile  conversation.Profile `json:"profile"`
}

// Chat handles POST /api/chat. A verified caller always speaks as itself.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	userID := strings.TrimSpace(req.UserID)
	if uid := middleware.CallerUID(c); uid != "" {
		userID = uid
	}
	if userID == "" || req.Message == "" {
		writeError(c, http.StatusBadRequest, "missing user_id or message")
		return
	}
	if !isValidID(userID) {
		writeError(c, http.StatusBadRequest, "invalid user_id")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	reply := h.intake.HandleMessage(ctx, types.ID(userID), req.Message)
	writeJSON(c, http.StatusOK, gin.H{"reply": reply})
}

// Get handles GET /api/conversations/:user_id.
func (h *ChatHandler) Get(c *gin.Context) {
	userID := c.Param("user_id")
	if !isValidID(userID) {
		writeError(c, http.StatusBadRequest, "invalid user_id")
		return
	}
	if uid := middleware.CallerUID(c); uid != "" && uid != userID {
		writeError(c, http.StatusForbidden, "forbidden")
		return
	}

	rec, err := h.intake.Conversation(c.Request.Context(), types.ID(userID))
	if err != nil {
		writeConversationError(c, err)
		return
	}

	missing := []string{}
	for _, s := range rec.State.MissingRequiredSlots() {
		missing = append(missing, string(s))
	}
	history := rec.History
	if history == nil {
		history = conversation.History{}
	}
	writeJSON(c, http.StatusOK, conversationResp{
		UserID:   userID,
		State:    conversation.Serialize(rec.State),
		Missing:  missing,
		Complete: rec.State.Complete(),
		History:  history,
		Profile:  rec.Profile,
	})
}
