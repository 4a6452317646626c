package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pradeepmisra81/trudesk/internal/models"
	"github.com/pradeepmisra81/trudesk/internal/service"
)

type attachmentAdder interface {
	AddAttachment(ctx context.Context, ticketID int64, att models.Attachment, entry models.HistoryEntry) (*models.Ticket, error)
}

type AttachmentHandler struct {
	store   *service.AttachmentStore
	tickets attachmentAdder
	logger  *log.Logger
}

// NewAttachmentHandler wires the upload endpoint.
func NewAttachmentHandler(store *service.AttachmentStore, tickets attachmentAdder, logger *log.Logger) *AttachmentHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &AttachmentHandler{store: store, tickets: tickets, logger: logger}
}

// upload streams one multipart file to disk and records it on the ticket.
// The ticketId and ownerId fields must precede the file part so the
// destination is known before any bytes are written.
func (h *AttachmentHandler) upload(c *gin.Context) {
	reader, err := c.Request.MultipartReader()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart request"})
		return
	}

	var ticketID, ownerID int64
	var handled bool
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed multipart request"})
			return
		}

		if part.FileName() == "" {
			value, err := readFieldValue(part)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "malformed form field"})
				return
			}
			switch part.FormName() {
			case "ticketId":
				ticketID, _ = strconv.ParseInt(value, 10, 64)
			case "ownerId":
				ownerID, _ = strconv.ParseInt(value, 10, 64)
			}
			continue
		}

		if ticketID <= 0 || ownerID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ticketId and ownerId are required"})
			return
		}
		if handled {
			c.JSON(http.StatusBadRequest, gin.H{"error": "only one file per upload"})
			return
		}
		handled = true
		h.saveFile(c, ticketID, ownerID, part.FileName(), part.Header.Get("Content-Type"), part)
		if c.IsAborted() || c.Writer.Written() {
			return
		}
	}

	if !handled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
	}
}

func (h *AttachmentHandler) saveFile(c *gin.Context, ticketID, ownerID int64, filename, mimeType string, src io.Reader) {
	if !service.AllowedMimeType(mimeType) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid mimetype"})
		return
	}

	diskPath, publicPath, err := h.store.Save(ticketID, filename, src)
	if err != nil {
		h.logger.Printf("api: save attachment for ticket %d: %v", ticketID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": uploadErrorMessage(err)})
		return
	}

	name := service.SanitizeFilename(filename)
	ticket, err := h.tickets.AddAttachment(c.Request.Context(), ticketID, models.Attachment{
		OwnerID:  ownerID,
		Name:     name,
		Path:     publicPath,
		MimeType: strings.ToLower(mimeType),
	}, models.HistoryEntry{
		Action:      models.HistoryAttachmentAdded,
		Description: fmt.Sprintf("Attachment %s was added.", name),
		OwnerID:     ownerID,
	})
	if err != nil {
		// Do not leave an orphaned file behind a failed record.
		h.store.Remove(diskPath)
		h.logger.Printf("api: record attachment for ticket %d: %v", ticketID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save attachment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrAttachmentTooLarge):
		return "file exceeds size limit"
	case errors.Is(err, service.ErrAttachmentExists):
		return "file already exists"
	case errors.Is(err, service.ErrAttachmentNoContent):
		return "file is empty"
	default:
		return "could not store file"
	}
}

func readFieldValue(part io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, 1024))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
