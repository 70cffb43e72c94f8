package artifact

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	storage_go "github.com/supabase-community/storage-go"
)

// uploader is the subset of the storage-go client used here.
type uploader interface {
	UploadFile(bucketID, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
}

// SupabaseMirror uploads artifacts to a Supabase Storage bucket.
type SupabaseMirror struct {
	client uploader
	bucket string
	prefix string
}

// NewSupabaseMirror connects to the Storage API of the Supabase project at
// projectURL.
func NewSupabaseMirror(projectURL, serviceKey, bucket string) (*SupabaseMirror, error) {
	if projectURL == "" || serviceKey == "" || bucket == "" {
		return nil, eris.New("artifact: supabase url, key and bucket are required")
	}
	c := storage_go.NewClient(strings.TrimRight(projectURL, "/")+"/storage/v1", serviceKey, nil)
	return &SupabaseMirror{client: c, bucket: bucket, prefix: "reports"}, nil
}

// Upload implements Mirror. Existing objects are overwritten.
func (m *SupabaseMirror) Upload(_ context.Context, name string, data []byte, contentType string) error {
	upsert := true
	_, err := m.client.UploadFile(m.bucket, path.Join(m.prefix, name), bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return eris.Wrapf(err, "artifact: upload %s to bucket %s", name, m.bucket)
	}
	return nil
}
