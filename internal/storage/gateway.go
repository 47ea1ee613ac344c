// Package storage hides the document store behind a small upload/delete
// gateway. Documents are uploaded before any database write and deleted
// again when that write fails.
package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Object is one file to upload.
type Object struct {
	Folder      string // e.g. cases/<caseID>/case-intake
	Name        string // original file name
	ContentType string
	Size        int64
	Body        io.Reader
}

// Ref identifies an uploaded object. ID is what Delete takes.
type Ref struct {
	ID  string
	URL string
}

// Gateway uploads and deletes opaque blobs.
type Gateway interface {
	Upload(ctx context.Context, obj Object) (Ref, error)
	Delete(ctx context.Context, id string) error
}

// BulkDeleter is implemented by backends that can remove many objects in one call.
type BulkDeleter interface {
	BulkDelete(ctx context.Context, ids []string) error
}

// objectKey builds a collision-free key: <folder>/<uuid>-<safe name>.
func objectKey(folder, name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if base == "" || base == "." || base == "/" {
		base = "file"
	}
	return path.Join(folder, uuid.NewString()+"-"+base)
}
