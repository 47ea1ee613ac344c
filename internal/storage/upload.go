package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

// cleanupTimeout bounds compensating deletes, which outlive the request context.
const cleanupTimeout = 30 * time.Second

// UploadAll uploads objs in order. If any upload fails, everything uploaded so
// far is deleted and the error is returned. Zero objects is a no-op.
func UploadAll(ctx context.Context, gw Gateway, log *zap.Logger, objs []Object) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(objs))
	for _, obj := range objs {
		ref, err := gw.Upload(ctx, obj)
		if err != nil {
			DeleteAll(ctx, gw, log, docs)
			return nil, fmt.Errorf("upload %q: %w", obj.Name, err)
		}
		docs = append(docs, models.Document{
			RefID:        ref.ID,
			URL:          ref.URL,
			OriginalName: obj.Name,
			Size:         obj.Size,
			MimeType:     obj.ContentType,
		})
	}
	return docs, nil
}

// DeleteAll removes the given documents, best effort. Failures are logged and
// otherwise ignored; the caller is already on an error path.
func DeleteAll(ctx context.Context, gw Gateway, log *zap.Logger, docs []models.Document) {
	if len(docs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.RefID)
	}

	if bd, ok := gw.(BulkDeleter); ok {
		err := bd.BulkDelete(ctx, ids)
		if err == nil {
			return
		}
		log.Warn("bulk delete failed, deleting one by one", zap.Int("count", len(ids)), zap.Error(err))
	}

	for _, id := range ids {
		if err := gw.Delete(ctx, id); err != nil {
			log.Error("orphaned upload", zap.String("ref_id", id), zap.Error(err))
		}
	}
}
