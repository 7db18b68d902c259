package handler

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailnight/internal/model"
	"mailnight/internal/service/mail"
	"mailnight/internal/storage"
)

// maxFormMemory is how much of a multipart body gin keeps in memory before
// spilling to temporary files.
const maxFormMemory = 32 << 20

type MailService interface {
	Send(ctx context.Context, senderID int, in mail.SendInput) (int, error)
	SaveDraft(ctx context.Context, senderID int, in mail.DraftInput) (int, error)
	GetDetail(ctx context.Context, id, viewerID int) (*model.EmailDetail, error)
	Inbox(ctx context.Context, userID, page int) (*model.EmailPage, error)
	Sent(ctx context.Context, userID, page int) (*model.EmailPage, error)
	Starred(ctx context.Context, userID, page int) (*model.EmailPage, error)
	Drafts(ctx context.Context, userID, page int) (*model.EmailPage, error)
	Category(ctx context.Context, userID, categoryID, page int) (*model.Category, *model.EmailPage, error)
	Search(ctx context.Context, userID int, q string, page int) (*model.EmailPage, error)
	Counts(ctx context.Context, userID int) (model.MailboxCounts, error)
	ToggleStar(ctx context.Context, id, userID int) (bool, error)
	MarkAsRead(ctx context.Context, id, userID int) error
	Delete(ctx context.Context, id, userID int) error
	GenerateReply(ctx context.Context, id, userID int, tone string) (string, error)
	RegenerateAnalysis(ctx context.Context, id, userID int) (model.AnalysisResult, error)
	OpenAttachment(ctx context.Context, attachmentID, userID int) (*model.Attachment, io.ReadCloser, error)
}

type MailHandler struct {
	mailService MailService
	logger      *zap.Logger
}

func NewMailHandler(mailService MailService, logger *zap.Logger) *MailHandler {
	return &MailHandler{mailService: mailService, logger: orNop(logger)}
}

type composeRequest struct {
	ID      int    `json:"id" form:"id"`
	To      string `json:"to" form:"to"`
	Subject string `json:"subject" form:"subject"`
	Body    string `json:"body" form:"body"`
}

// Send handles POST /api/mail. It accepts JSON, or multipart form data with
// files under "attachments".
func (h *MailHandler) Send(c *gin.Context) {
	var req composeRequest
	var uploads []storage.Upload

	if isMultipart(c) {
		if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
			return
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		files, err := openUploads(c.Request.MultipartForm, "attachments")
		defer closeAll(files)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attachment"})
			return
		}
		uploads = uploadsOf(files)
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	id, err := h.mailService.Send(c.Request.Context(), currentUserID(c), mail.SendInput{
		To:          req.To,
		Subject:     req.Subject,
		Body:        req.Body,
		Attachments: uploads,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// SaveDraft handles POST /api/mail/drafts
func (h *MailHandler) SaveDraft(c *gin.Context) {
	var req composeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	id, err := h.mailService.SaveDraft(c.Request.Context(), currentUserID(c), mail.DraftInput{
		ID:      req.ID,
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

// Detail handles GET /api/mail/:id
func (h *MailHandler) Detail(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.mailService.GetDetail(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type pageFunc func(ctx context.Context, userID, page int) (*model.EmailPage, error)

func (h *MailHandler) page(c *gin.Context, fn pageFunc) {
	page, err := fn(c.Request.Context(), currentUserID(c), pageParam(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse(page))
}

// Inbox handles GET /api/mail/inbox
func (h *MailHandler) Inbox(c *gin.Context) { h.page(c, h.mailService.Inbox) }

// Sent handles GET /api/mail/sent
func (h *MailHandler) Sent(c *gin.Context) { h.page(c, h.mailService.Sent) }

// Starred handles GET /api/mail/starred
func (h *MailHandler) Starred(c *gin.Context) { h.page(c, h.mailService.Starred) }

// Drafts handles GET /api/mail/drafts
func (h *MailHandler) Drafts(c *gin.Context) { h.page(c, h.mailService.Drafts) }

// Category handles GET /api/mail/category/:id
func (h *MailHandler) Category(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	category, page, err := h.mailService.Category(c.Request.Context(), currentUserID(c), id, pageParam(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	resp := pageResponse(page)
	resp["category"] = category
	c.JSON(http.StatusOK, resp)
}

// Search handles GET /api/mail/search?q=
func (h *MailHandler) Search(c *gin.Context) {
	q := c.Query("q")
	page, err := h.mailService.Search(c.Request.Context(), currentUserID(c), q, pageParam(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	resp := pageResponse(page)
	resp["query"] = q
	c.JSON(http.StatusOK, resp)
}

// Counts handles GET /api/mail/counts
func (h *MailHandler) Counts(c *gin.Context) {
	counts, err := h.mailService.Counts(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// ToggleStar handles POST /api/mail/:id/star
func (h *MailHandler) ToggleStar(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	starred, err := h.mailService.ToggleStar(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_starred": starred})
}

// MarkAsRead handles POST /api/mail/:id/read
func (h *MailHandler) MarkAsRead(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.mailService.MarkAsRead(c.Request.Context(), id, currentUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /api/mail/:id
func (h *MailHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.mailService.Delete(c.Request.Context(), id, currentUserID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GenerateReply handles POST /api/mail/:id/reply
func (h *MailHandler) GenerateReply(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Tone string `json:"tone"`
	}
	// an empty body means the default tone
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	reply, err := h.mailService.GenerateReply(c.Request.Context(), id, currentUserID(c), req.Tone)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// RegenerateAnalysis handles POST /api/mail/:id/analyze
func (h *MailHandler) RegenerateAnalysis(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	result, err := h.mailService.RegenerateAnalysis(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Attachment handles GET /api/attachments/:id
func (h *MailHandler) Attachment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	att, content, err := h.mailService.OpenAttachment(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer content.Close()

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, att.FileSize, contentType, content, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": att.FileName}),
	})
}

func pageResponse(p *model.EmailPage) gin.H {
	return gin.H{
		"items":       p.Items,
		"page":        p.Page,
		"page_size":   p.PageSize,
		"total":       p.Total,
		"total_pages": p.TotalPages(),
	}
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

type openedFile struct {
	header *multipart.FileHeader
	file   multipart.File
}

// openUploads opens every file under field. Already opened files are
// returned alongside an error so the caller can close them.
func openUploads(form *multipart.Form, field string) ([]openedFile, error) {
	if form == nil {
		return nil, nil
	}
	var out []openedFile
	for _, fh := range form.File[field] {
		f, err := fh.Open()
		if err != nil {
			return out, err
		}
		out = append(out, openedFile{header: fh, file: f})
	}
	return out, nil
}

func uploadsOf(files []openedFile) []storage.Upload {
	uploads := make([]storage.Upload, 0, len(files))
	for _, f := range files {
		uploads = append(uploads, storage.Upload{
			FileName:    f.header.Filename,
			ContentType: f.header.Header.Get("Content-Type"),
			Size:        f.header.Size,
			Content:     f.file,
		})
	}
	return uploads
}

func closeAll(files []openedFile) {
	for _, f := range files {
		_ = f.file.Close()
	}
}
