package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abroad-hub/counsellor/internal/application/counsellor"
	"github.com/abroad-hub/counsellor/internal/domain/shared"
	"github.com/abroad-hub/counsellor/pkg/logger"
)

// apiHandlers serves /v1/users/:userID.
type apiHandlers struct {
	svc Counsellor
	log *logger.Logger
}

// bind decodes the JSON body, reporting binding failures as validation errors.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, shared.WrapError("http", "Bind", shared.ErrInvalidInput, "invalid request body", err))
		return false
	}
	return true
}

// actionStatusCode keeps the counsellor's text in the body for every outcome.
func actionStatusCode(s counsellor.ActionStatus) int {
	switch s {
	case counsellor.StatusNotFound:
		return http.StatusNotFound
	case counsellor.StatusBlocked:
		return http.StatusForbidden
	case counsellor.StatusRejected:
		return http.StatusConflict
	default:
		return http.StatusOK
	}
}

func (h *apiHandlers) getStage(c *gin.Context) {
	view, err := h.svc.GetStage(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, stageDTO(view.Stage))
}

func (h *apiHandlers) postMessage(c *gin.Context) {
	var req MessageRequest
	if !bind(c, &req) {
		return
	}
	resp, err := h.svc.HandleMessage(c.Request.Context(), userID(c), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, messageResponse(resp))
}

func (h *apiHandlers) getRecommendations(c *gin.Context) {
	recs, err := h.svc.Recommendations(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, recommendationsResponse(recs))
}

func (h *apiHandlers) getLedger(c *gin.Context) {
	ledger, err := h.svc.Ledger(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, ledgerResponse(ledger))
}

func (h *apiHandlers) postLock(c *gin.Context) {
	var req ActionRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.RequestLock(c.Request.Context(), userID(c), req.University, req.Confirmation)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, actionStatusCode(res.Status), actionResponse(res))
}

func (h *apiHandlers) postUnlock(c *gin.Context) {
	var req ActionRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.RequestUnlock(c.Request.Context(), userID(c), req.University, req.Confirmation)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, actionStatusCode(res.Status), actionResponse(res))
}

func (h *apiHandlers) toggleShortlist(c *gin.Context) {
	uid, err := universityID(c.Param("universityID"))
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.svc.ToggleShortlist(c.Request.Context(), userID(c), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toggleResponse(res))
}

func (h *apiHandlers) generateTasks(c *gin.Context) {
	var req GenerateTasksRequest
	if !bind(c, &req) {
		return
	}
	uid, err := universityID(req.UniversityID)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.svc.GenerateTasks(c.Request.Context(), userID(c), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"tasks": taskDTOs(res.Tasks)})
}

func (h *apiHandlers) syncDocuments(c *gin.Context) {
	res, err := h.svc.SyncShortlistDocuments(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, syncDocumentsResponse(res))
}

func (h *apiHandlers) purgeOrphans(c *gin.Context) {
	res, err := h.svc.PurgeOrphanedRecords(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	h.log.Debug("orphans purged",
		logger.UserID(userID(c).String()),
		logger.String("result", fmt.Sprintf("%d tasks, %d documents", res.TasksDeleted, res.DocumentsDeleted)))
	writeJSON(c, http.StatusOK, purgeResponse(res))
}
