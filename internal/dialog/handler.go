package dialog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/concernlab/dialog-platform/internal/intent"
	"github.com/concernlab/dialog-platform/internal/scoring"
	"github.com/concernlab/dialog-platform/pkg/logging"
)

// Handler exposes the dialog endpoint. A single POST route carries all
// operations; the request body shape selects between session creation,
// user text, turn feedback, and the terminal survey.
type Handler struct {
	manager *Manager
	logger  *logging.Logger
}

func NewHandler(manager *Manager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{manager: manager, logger: logger}
}

// Routes mounts the dialog routes on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/dialog/{languageCode}", h.HandleDialog)
}

type dialogRequest struct {
	SessionID string  `json:"session_id"`
	Text      *string `json:"text"`
	// Feedback is a bool when it flags Text as a feedback-menu
	// selection, or an int when rating an earlier turn together with
	// MessageID.
	Feedback     json.RawMessage `json:"feedback"`
	Answer       bool            `json:"answer"`
	MessageID    *int            `json:"message_id"`
	Survey       json.RawMessage `json:"survey"`
	DisableCache bool            `json:"disable_cache"`

	// Session creation fields, ignored when SessionID is set.
	Label             string `json:"label"`
	CampaignID        string `json:"campaign_id"`
	OpeningSurveyFlow string `json:"flow"`
	Platform          string `json:"platform"`
}

// POST /dialog/{languageCode}
func (h *Handler) HandleDialog(w http.ResponseWriter, r *http.Request) {
	languageCode := chi.URLParam(r, "languageCode")

	var req dialogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SessionID == "" {
		resp, err := h.manager.NewSession(r.Context(), NewSessionRequest{
			Label:             req.Label,
			CampaignID:        req.CampaignID,
			OpeningSurveyFlow: req.OpeningSurveyFlow,
			Platform:          req.Platform,
			LanguageCode:      languageCode,
		})
		if err != nil {
			h.writeManagerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if err := ValidateSessionID(req.SessionID); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch {
	case req.Text != nil:
		isFeedback, err := feedbackFlag(req.Feedback)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := ValidateInputText(*req.Text, maxTextLength); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp, err := h.manager.SubmitText(r.Context(), req.SessionID, *req.Text, isFeedback, req.Answer, req.DisableCache)
		if err != nil {
			h.writeManagerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)

	case req.MessageID != nil && len(req.Feedback) > 0:
		value, err := feedbackValue(req.Feedback)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := ValidateTurnIndex(*req.MessageID); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := ValidateFeedbackValue(value); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.manager.SubmitFeedback(r.Context(), req.SessionID, *req.MessageID, value); err != nil {
			h.writeManagerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": req.SessionID,
			"message_id": *req.MessageID,
		})

	case len(req.Survey) > 0:
		if err := h.manager.SubmitSurvey(r.Context(), req.SessionID, req.Survey); err != nil {
			h.writeManagerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session_id": req.SessionID})

	default:
		h.writeError(w, http.StatusBadRequest, "request must carry text, feedback, or a survey")
	}
}

// feedbackFlag reads the boolean form of the feedback field.
func feedbackFlag(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	var flag bool
	if err := json.Unmarshal(raw, &flag); err != nil {
		return false, errors.New("feedback must be a boolean when text is present")
	}
	return flag, nil
}

// feedbackValue reads the integer form of the feedback field.
func feedbackValue(raw json.RawMessage) (int, error) {
	var value int
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, errors.New("feedback must be an integer when message_id is present")
	}
	return value, nil
}

func (h *Handler) writeManagerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadInput),
		errors.Is(err, ErrInvalidTurnIndex),
		errors.Is(err, intent.ErrUnknownFeedbackOption):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case scoring.IsOracleError(err):
		h.logger.Error("scoring oracle unavailable", "error", err)
		h.writeError(w, http.StatusBadGateway, "scoring service unavailable")
	default:
		h.logger.Error("dialog request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
