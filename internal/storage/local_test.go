package storage

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// minimal but sniffable PDF payload
var pdfContent = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir(), zerolog.New(io.Discard))
	require.NoError(t, err)
	return store
}

func uploadHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := bytes.NewBuffer(nil)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("pdf", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	_, header, err := req.FormFile("pdf")
	require.NoError(t, err)
	return header
}

func TestSavePDFStoresRandomizedName(t *testing.T) {
	store := testStore(t)

	name, err := store.SavePDF(uploadHeader(t, "My Homework.PDF", pdfContent))
	require.NoError(t, err)
	require.Len(t, name, 32+len(".pdf"))
	require.Equal(t, ".pdf", filepath.Ext(name))

	resolved, ok := store.Resolve(name)
	require.True(t, ok)
	stored, err := os.ReadFile(resolved)
	require.NoError(t, err)
	require.Equal(t, pdfContent, stored)

	second, err := store.SavePDF(uploadHeader(t, "My Homework.PDF", pdfContent))
	require.NoError(t, err)
	require.NotEqual(t, name, second, "storage names must not collide")
}

func TestSavePDFRejectsWrongExtension(t *testing.T) {
	store := testStore(t)

	_, err := store.SavePDF(uploadHeader(t, "notes.txt", []byte("plain text")))
	require.ErrorIs(t, err, ErrNotPDF)
}

func TestSavePDFRejectsMismatchedContent(t *testing.T) {
	store := testStore(t)

	_, err := store.SavePDF(uploadHeader(t, "fake.pdf", []byte("just text pretending")))
	require.ErrorIs(t, err, ErrNotPDF)
}

func TestResolveFallsBackToBasename(t *testing.T) {
	store := testStore(t)

	name, err := store.SavePDF(uploadHeader(t, "essay.pdf", pdfContent))
	require.NoError(t, err)

	resolved, ok := store.Resolve("/some/stale/prefix/" + name)
	require.True(t, ok)
	require.Equal(t, filepath.Base(resolved), name)

	_, ok = store.Resolve("missing.pdf")
	require.False(t, ok)
}

func TestRemoveIsBestEffort(t *testing.T) {
	store := testStore(t)

	name, err := store.SavePDF(uploadHeader(t, "essay.pdf", pdfContent))
	require.NoError(t, err)

	store.Remove(name)
	_, ok := store.Resolve(name)
	require.False(t, ok)

	// removing again must not panic or error
	store.Remove(name)
	store.Remove("")
}
