package storage_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aldoetobex/lawmatch-backend/internal/storage"
	"github.com/aldoetobex/lawmatch-backend/internal/storage/mocks"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

func objs(names ...string) []storage.Object {
	out := make([]storage.Object, 0, len(names))
	for _, n := range names {
		out = append(out, storage.Object{
			Folder: "cases/1", Name: n, ContentType: "application/pdf", Size: 3, Body: strings.NewReader("pdf"),
		})
	}
	return out
}

func byName(name string) any {
	return mock.MatchedBy(func(o storage.Object) bool { return o.Name == name })
}

func TestUploadAll_Success(t *testing.T) {
	gw := mocks.NewGateway(t)
	gw.On("Upload", mock.Anything, byName("a.pdf")).Return(storage.Ref{ID: "raw/a", URL: "https://cdn/a"}, nil).Once()
	gw.On("Upload", mock.Anything, byName("b.pdf")).Return(storage.Ref{ID: "raw/b", URL: "https://cdn/b"}, nil).Once()

	docs, err := storage.UploadAll(context.Background(), gw, zap.NewNop(), objs("a.pdf", "b.pdf"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, models.Document{
		RefID: "raw/a", URL: "https://cdn/a", OriginalName: "a.pdf", Size: 3, MimeType: "application/pdf",
	}, docs[0])
	assert.Equal(t, "raw/b", docs[1].RefID)
}

func TestUploadAll_NoFilesIsNoop(t *testing.T) {
	gw := mocks.NewGateway(t)

	docs, err := storage.UploadAll(context.Background(), gw, zap.NewNop(), nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
	gw.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestUploadAll_FailureDeletesEarlierUploads(t *testing.T) {
	gw := mocks.NewGateway(t)
	gw.On("Upload", mock.Anything, byName("a.pdf")).Return(storage.Ref{ID: "raw/a"}, nil).Once()
	gw.On("Upload", mock.Anything, byName("b.pdf")).Return(storage.Ref{ID: "raw/b"}, nil).Once()
	gw.On("Upload", mock.Anything, byName("c.pdf")).Return(storage.Ref{}, errors.New("quota exceeded")).Once()
	gw.On("Delete", mock.Anything, "raw/a").Return(nil).Once()
	gw.On("Delete", mock.Anything, "raw/b").Return(errors.New("timeout")).Once()

	docs, err := storage.UploadAll(context.Background(), gw, zap.NewNop(), objs("a.pdf", "b.pdf", "c.pdf", "d.pdf"))
	assert.Nil(t, docs)
	assert.ErrorContains(t, err, "quota exceeded")
	gw.AssertNotCalled(t, "Upload", mock.Anything, byName("d.pdf"))
}

func TestDeleteAll_SurvivesCancelledContext(t *testing.T) {
	gw := mocks.NewGateway(t)
	gw.On("Delete", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), "raw/a").Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	storage.DeleteAll(ctx, gw, zap.NewNop(), []models.Document{{RefID: "raw/a"}})
}
