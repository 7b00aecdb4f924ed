package sessions

import (
	"net/http"

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
	sessions := rg.Group("/sessions")
	{
		sessions.POST("", h.Create)
		sessions.POST("/:id/members", h.AddMember)
		sessions.PUT("/:id/members/respond", h.RespondToInvite)
		sessions.GET("/:id/members", h.ListMembers)
		sessions.POST("/:id/files", h.UploadFile)
		sessions.GET("/:id/files", h.ListFiles)
		sessions.POST("/:id/send", h.SendForNotarization)
		sessions.GET("/:id/status", h.GetStatus)
		sessions.GET("/:id/history", h.GetHistory)
		sessions.POST("/:id/forward", h.ForwardStatus)
		sessions.POST("/:id/approve", h.ApproveBySessionUser)
		sessions.POST("/:id/approve/secretary", h.ApproveBySecretary)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var body struct {
		CreatorID    uuid.UUID `json:"creator_id" binding:"required"`
		Name         string    `json:"name" binding:"required"`
		Notes        string    `json:"notes"`
		InviteEmails []string  `json:"invite_emails"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.service.Create(c.Request.Context(), CreateRequest{
		CreatorID:    body.CreatorID,
		Name:         body.Name,
		Notes:        body.Notes,
		InviteEmails: body.InviteEmails,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *Handler) AddMember(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var body struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid email is required"})
		return
	}

	member, err := h.service.AddMember(c.Request.Context(), id, body.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (h *Handler) RespondToInvite(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var body struct {
		Email  string    `json:"email" binding:"required,email"`
		UserID uuid.UUID `json:"user_id" binding:"required"`
		Accept *bool     `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.service.RespondToInvite(c.Request.Context(), id, body.Email, body.UserID, *body.Accept)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *Handler) ListMembers(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	members, err := h.service.ListMembers(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *Handler) UploadFile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	uploadedBy, err := uuid.Parse(c.PostForm("uploaded_by"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uploaded_by"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	stored, err := h.service.UploadFile(c.Request.Context(), id, uploadedBy, FileUpload{
		Filename: file.Filename,
		Content:  f,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (h *Handler) ListFiles(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	files, err := h.service.ListFiles(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (h *Handler) SendForNotarization(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	rec, err := h.service.SendForNotarization(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ForwardStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var body struct {
		Action   workflow.Action `json:"action" binding:"required"`
		Role     workflow.Role   `json:"role" binding:"required"`
		ActorID  uuid.UUID       `json:"actor_id" binding:"required"`
		Feedback string          `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.ForwardStatus(c.Request.Context(), id, body.Action, body.Role, body.ActorID, body.Feedback)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ApproveBySessionUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var body struct {
		SignatureImage string `json:"signature_image" binding:"required"`
		Amount         int64  `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	approval, err := h.service.ApproveBySessionUser(c.Request.Context(), id, body.SignatureImage, body.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, approval)
}

func (h *Handler) ApproveBySecretary(c *gin.Context) {
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

	result, err := h.service.ApproveBySecretary(c.Request.Context(), id, body.ActorID)
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

func respondError(c *gin.Context, err error) {
	kind := workflow.KindOf(err)
	status := kind.HTTPStatus()
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.JSON(status, gin.H{"error": message, "kind": string(kind)})
}
