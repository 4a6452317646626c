package service

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxAttachmentBytes caps a single uploaded file.
const MaxAttachmentBytes = 10 * 1024 * 1024

// Attachment store failures surfaced to the upload handler.
var (
	ErrAttachmentTooLarge  = errors.New("attachment exceeds size limit")
	ErrAttachmentExists    = errors.New("attachment already exists")
	ErrAttachmentType      = errors.New("attachment type not allowed")
	ErrAttachmentNoContent = errors.New("attachment is empty")
)

var allowedExactTypes = map[string]bool{
	"audio/mpeg":                   true,
	"audio/mp3":                    true,
	"audio/wav":                    true,
	"application/x-zip-compressed": true,
	"application/pdf":              true,
}

// AllowedMimeType reports whether an upload content type is accepted.
// Images and text are allowed wholesale, everything else by exact match.
func AllowedMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if strings.HasPrefix(mimeType, "image/") || strings.HasPrefix(mimeType, "text/") {
		return true
	}
	return allowedExactTypes[mimeType]
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9.]`)

// SanitizeFilename folds a client filename to lowercase and replaces
// anything outside [a-z0-9.] with underscores.
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(strings.ToLower(name), "_")
}

// AttachmentStore writes ticket attachments under a per-ticket directory.
type AttachmentStore struct {
	root     string
	maxBytes int64
}

// NewAttachmentStore builds a store rooted at the uploads directory.
func NewAttachmentStore(root string) *AttachmentStore {
	return &AttachmentStore{root: root, maxBytes: MaxAttachmentBytes}
}

// Path returns the on-disk location for a ticket attachment.
func (s *AttachmentStore) Path(ticketID int64, sanitizedName string) string {
	return filepath.Join(s.root, fmt.Sprintf("%d", ticketID), "attachment_"+sanitizedName)
}

// PublicPath returns the URL path recorded on the ticket.
func (s *AttachmentStore) PublicPath(ticketID int64, sanitizedName string) string {
	return fmt.Sprintf("/uploads/tickets/%d/attachment_%s", ticketID, sanitizedName)
}

// Save streams one upload to disk. The filename is sanitized first. A file
// already present at the destination is rejected, and a stream running past
// the size cap aborts the write and removes the partial file.
func (s *AttachmentStore) Save(ticketID int64, filename string, src io.Reader) (diskPath, publicPath string, err error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return "", "", ErrAttachmentNoContent
	}
	diskPath = s.Path(ticketID, name)
	publicPath = s.PublicPath(ticketID, name)

	if err := os.MkdirAll(filepath.Dir(diskPath), 0o755); err != nil {
		return "", "", fmt.Errorf("create attachment dir: %w", err)
	}
	if _, err := os.Stat(diskPath); err == nil {
		return "", "", ErrAttachmentExists
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", "", fmt.Errorf("stat attachment: %w", err)
	}

	dst, err := os.OpenFile(diskPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", "", ErrAttachmentExists
		}
		return "", "", fmt.Errorf("create attachment: %w", err)
	}

	written, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	closeErr := dst.Close()
	switch {
	case err != nil:
		s.Remove(diskPath)
		return "", "", fmt.Errorf("write attachment: %w", err)
	case written > s.maxBytes:
		s.Remove(diskPath)
		return "", "", ErrAttachmentTooLarge
	case written == 0:
		s.Remove(diskPath)
		return "", "", ErrAttachmentNoContent
	case closeErr != nil:
		s.Remove(diskPath)
		return "", "", fmt.Errorf("close attachment: %w", closeErr)
	}
	return diskPath, publicPath, nil
}

// Remove deletes a stored attachment file, ignoring files already gone.
func (s *AttachmentStore) Remove(diskPath string) {
	if diskPath == "" {
		return
	}
	_ = os.Remove(diskPath)
}
