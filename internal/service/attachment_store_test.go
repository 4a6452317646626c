package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowedMimeType(t *testing.T) {
	allowed := []string{
		"image/png", "image/jpeg", "text/plain", "text/csv",
		"audio/mpeg", "audio/mp3", "audio/wav",
		"application/x-zip-compressed", "application/pdf",
		"Application/PDF",
	}
	for _, mt := range allowed {
		require.True(t, AllowedMimeType(mt), mt)
	}

	rejected := []string{
		"application/zip", "application/octet-stream",
		"application/x-msdownload", "video/mp4", "",
	}
	for _, mt := range rejected {
		require.False(t, AllowedMimeType(mt), mt)
	}
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "report_final.pdf", SanitizeFilename("Report Final.pdf"))
	require.Equal(t, "a_b_c.txt", SanitizeFilename("a/b\\c.txt"))
	require.Equal(t, ".._secret.png", SanitizeFilename("../secret.png"))
	require.Equal(t, "caf_.jpg", SanitizeFilename("café.jpg"))
}

func TestSaveWritesUnderTicketDirectory(t *testing.T) {
	root := t.TempDir()
	store := NewAttachmentStore(root)

	diskPath, publicPath, err := store.Save(42, "My File.TXT", strings.NewReader("hello"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "42", "attachment_my_file.txt"), diskPath)
	require.Equal(t, "/uploads/tickets/42/attachment_my_file.txt", publicPath)

	data, err := os.ReadFile(diskPath)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestSaveRejectsDuplicate(t *testing.T) {
	store := NewAttachmentStore(t.TempDir())

	_, _, err := store.Save(1, "a.txt", strings.NewReader("one"))
	require.NoError(t, err)

	_, _, err = store.Save(1, "a.txt", strings.NewReader("two"))
	require.ErrorIs(t, err, ErrAttachmentExists)
}

func TestSaveEnforcesSizeCap(t *testing.T) {
	store := NewAttachmentStore(t.TempDir())
	store.maxBytes = 16

	diskPath := store.Path(1, "big.bin")
	_, _, err := store.Save(1, "big.bin", strings.NewReader(strings.Repeat("x", 17)))
	require.ErrorIs(t, err, ErrAttachmentTooLarge)

	_, statErr := os.Stat(diskPath)
	require.True(t, os.IsNotExist(statErr), "partial file must be removed")
}

func TestSaveAtCapSucceeds(t *testing.T) {
	store := NewAttachmentStore(t.TempDir())
	store.maxBytes = 16

	_, _, err := store.Save(1, "ok.bin", strings.NewReader(strings.Repeat("x", 16)))
	require.NoError(t, err)
}

func TestSaveRejectsEmptyFile(t *testing.T) {
	store := NewAttachmentStore(t.TempDir())
	_, _, err := store.Save(1, "empty.txt", strings.NewReader(""))
	require.ErrorIs(t, err, ErrAttachmentNoContent)
}

func TestRemoveIgnoresMissingFile(t *testing.T) {
	store := NewAttachmentStore(t.TempDir())
	store.Remove(filepath.Join(t.TempDir(), "nope"))
	store.Remove("")
}
