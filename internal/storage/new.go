package storage

import (
	"context"
	"fmt"

	"github.com/aldoetobex/lawmatch-backend/internal/config"
)

// New builds the gateway selected by cfg.StorageDriver.
func New(ctx context.Context, cfg config.Config) (Gateway, error) {
	switch cfg.StorageDriver {
	case config.StorageCloudinary:
		c := cfg.Cloudinary
		return NewCloudinary(c.CloudName, c.APIKey, c.APISecret, c.Folder)
	case config.StorageSupabase:
		c := cfg.Supabase
		return NewSupabase(c.URL, c.ServiceKey, c.Bucket), nil
	case config.StorageMinIO:
		c := cfg.MinIO
		m, err := NewMinIO(c.Endpoint, c.AccessKey, c.SecretKey, c.Bucket, c.UseSSL)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
