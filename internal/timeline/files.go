package timeline

import (
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aldoetobex/lawmatch-backend/internal/storage"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

const (
	maxFiles    = 10
	maxFileSize = 10 * 1024 * 1024
)

var allowedTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

// readForm extracts the remarks and the attached files of a multipart
// submission. A request without a multipart body carries no files. Every file
// is checked before anything is opened; one bad file rejects the request.
// The returned func closes the opened files.
func readForm(c *fiber.Ctx) (models.Remarks, []storage.Object, func(), error) {
	noop := func() {}
	r := models.Remarks{
		JudgeCourtRemarks: c.FormValue("judge_court_remarks"),
		LawyerRemarks:     c.FormValue("lawyer_remarks"),
		OpponentRemarks:   c.FormValue("opponent_remarks"),
	}

	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return r, nil, noop, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return r, nil, noop, fiber.NewError(fiber.StatusBadRequest, "invalid multipart form")
	}
	// Swagger UI and some clients send "files" even when "files[]" is documented.
	headers := form.File["files[]"]
	if len(headers) == 0 {
		headers = form.File["files"]
	}
	if len(headers) > maxFiles {
		return r, nil, noop, fiber.NewError(fiber.StatusBadRequest, "max 10 files allowed")
	}

	types := make([]string, len(headers))
	for i, fh := range headers {
		ct, err := checkFile(fh)
		if err != nil {
			return r, nil, noop, err
		}
		types[i] = ct
	}

	var opened []io.Closer
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	objs := make([]storage.Object, 0, len(headers))
	for i, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return r, nil, noop, fiber.NewError(fiber.StatusBadRequest, "cannot read file "+fh.Filename)
		}
		opened = append(opened, f)
		objs = append(objs, storage.Object{
			Name:        fh.Filename,
			ContentType: types[i],
			Size:        fh.Size,
			Body:        f,
		})
	}
	return r, objs, closeAll, nil
}

func checkFile(fh *multipart.FileHeader) (string, error) {
	if fh.Size <= 0 {
		return "", fiber.NewError(fiber.StatusBadRequest, fh.Filename+": empty file")
	}
	if fh.Size > maxFileSize {
		return "", fiber.NewError(fiber.StatusBadRequest, fh.Filename+": max 10MB per file")
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename)))
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	if !allowedTypes[ct] {
		return "", fiber.NewError(fiber.StatusBadRequest, fh.Filename+": only PDF, PNG or JPEG are allowed")
	}
	return ct, nil
}
