package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobWriter uploads reports to an Azure Blob Storage container,
// authenticated with the ambient Azure credential chain (env vars, managed
// identity, az login).
type BlobWriter struct {
	client    *azblob.Client
	container string
	compress  bool
	log       *slog.Logger
}

func NewBlobWriter(serviceURL, container string, compress bool, log *slog.Logger) (*BlobWriter, error) {
	if log == nil {
		log = slog.Default()
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("building azure credential: %w", err)
	}

	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("building blob client for %s: %w", serviceURL, err)
	}

	return &BlobWriter{client: client, container: container, compress: compress, log: log}, nil
}

// Write implements [Writer].
func (w *BlobWriter) Write(ctx context.Context, report *Report) error {
	data, err := encode(report, w.compress)
	if err != nil {
		return err
	}

	name := Filename(report, w.compress)
	if _, err := w.client.UploadBuffer(ctx, w.container, name, data, nil); err != nil {
		return fmt.Errorf("upload report %s: %w", name, err)
	}

	w.log.Info("report uploaded", "container", w.container, "blob", name)
	return nil
}
