package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary stores documents as Cloudinary assets. Ref IDs carry the
// resource type because Destroy needs it: "<resourceType>/<publicID>".
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(cloudName, apiKey, apiSecret, folder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	if folder == "" {
		folder = "lawmatch"
	}
	return &Cloudinary{cld: cld, folder: folder}, nil
}

func (s *Cloudinary) Upload(ctx context.Context, obj Object) (Ref, error) {
	res, err := s.cld.Upload.Upload(ctx, obj.Body, uploader.UploadParams{
		Folder:       path.Join(s.folder, obj.Folder),
		ResourceType: "auto",
	})
	if err != nil {
		return Ref{}, err
	}
	if res.Error.Message != "" {
		return Ref{}, errors.New("cloudinary upload: " + res.Error.Message)
	}
	return Ref{ID: res.ResourceType + "/" + res.PublicID, URL: res.SecureURL}, nil
}

// Delete treats "not found" as success.
func (s *Cloudinary) Delete(ctx context.Context, id string) error {
	resourceType, publicID, ok := strings.Cut(id, "/")
	if !ok || publicID == "" {
		return fmt.Errorf("malformed cloudinary ref %q", id)
	}
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return err
	}
	if res.Error.Message != "" {
		return errors.New("cloudinary destroy: " + res.Error.Message)
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("cloudinary destroy: %s", res.Result)
	}
	return nil
}
