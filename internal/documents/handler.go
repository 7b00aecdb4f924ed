package documents

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"notary-chain/notary-portal/notary-portal-backend/internal/workflow"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/documents")
	{
		docs.POST("", h.Submit)
		docs.GET("", h.List)
		docs.GET("/:id/status", h.GetStatus)
		docs.GET("/:id/history", h.GetHistory)
		docs.POST("/:id/forward", h.ForwardStatus)
		docs.POST("/:id/approve", h.ApproveByUser)
		docs.POST("/:id/approve/notary", h.ApproveByNotary)
		docs.POST("/auto-verify", h.AutoVerify)
	}
}

func (h *Handler) Submit(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}

	requesterID, err := uuid.Parse(c.PostForm("requester_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid requester_id"})
		return
	}
	amount, _ := strconv.ParseInt(c.PostForm("amount"), 10, 64)

	var uploads []FileUpload
	for _, file := range form.File["files"] {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer f.Close()
		uploads = append(uploads, FileUpload{Filename: file.Filename, Content: f})
	}

	doc, err := h.service.Submit(c.Request.Context(), SubmitRequest{
		RequesterID:       requesterID,
		Name:              c.PostForm("name"),
		ServiceCode:       c.PostForm("service_code"),
		RequiredDocuments: form.Value["required_documents"],
		Amount:            amount,
		Files:             uploads,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) List(c *gin.Context) {
	requesterID, err := uuid.Parse(c.Query("requester_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid requester_id"})
		return
	}

	docs, err := h.service.ListByRequester(c.Request.Context(), requesterID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) ForwardStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	actorID, err := uuid.Parse(c.PostForm("actor_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid actor_id"})
		return
	}
	action := workflow.Action(c.PostForm("action"))
	role := workflow.Role(c.PostForm("role"))
	feedback := c.PostForm("feedback")

	var uploads []FileUpload
	if form, err := c.MultipartForm(); err == nil {
		for _, file := range form.File["output_files"] {
			f, err := file.Open()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			defer f.Close()
			uploads = append(uploads, FileUpload{Filename: file.Filename, Content: f})
		}
	}

	result, err := h.service.ForwardStatus(c.Request.Context(), id, action, role, actorID, feedback, uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ApproveByUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var body struct {
		SignatureImage string `json:"signature_image" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature_image is required"})
		return
	}

	approval, err := h.service.ApproveByUser(c.Request.Context(), id, body.SignatureImage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, approval)
}

func (h *Handler) ApproveByNotary(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var body struct {
		ActorID uuid.UUID `json:"actor_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor_id is required"})
		return
	}

	result, err := h.service.ApproveByNotary(c.Request.Context(), id, body.ActorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	rec, err := h.service.GetStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) GetHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	entries, err := h.service.GetHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) AutoVerify(c *gin.Context) {
	results, err := h.service.AutoVerify(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// respondError maps workflow error kinds to HTTP statuses; internal details
// never reach the caller.
func respondError(c *gin.Context, err error) {
	kind := workflow.KindOf(err)
	status := kind.HTTPStatus()
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.JSON(status, gin.H{"error": message, "kind": string(kind)})
}
