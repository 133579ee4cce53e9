package upload_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/fleetdesk/rentalconsole/pkg/service/upload"
	"github.com/m-mizutani/gt"
)

func TestMemory_Upload(t *testing.T) {
	m := upload.NewMemory("http://localhost:8080/files/")
	ctx := context.Background()

	p, err := m.Upload(ctx, "drivers", &model.FileBlob{
		Name:        "Budi.JPG",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg-bytes"),
	})
	gt.NoError(t, err).Required()
	gt.String(t, p).HasPrefix("drivers/")
	gt.String(t, p).HasSuffix(".jpg")
	gt.Value(t, m.PublicURL(p)).Equal("http://localhost:8080/files/" + p)

	uploads := m.Uploads()
	gt.Array(t, uploads).Length(1).Required()
	gt.Value(t, uploads[0].Location).Equal("drivers")
	gt.Value(t, string(uploads[0].Blob.Data)).Equal("jpeg-bytes")

	blob, ok := m.Open(p)
	gt.Bool(t, ok).True()
	gt.Value(t, blob.ContentType).Equal("image/jpeg")
}

func TestMemory_UploadUsesContentTypeExtension(t *testing.T) {
	m := upload.NewMemory("http://files")

	p, err := m.Upload(context.Background(), "service", &model.FileBlob{
		Name:        "photo",
		ContentType: "image/png",
	})
	gt.NoError(t, err).Required()
	gt.String(t, p).HasSuffix(".png")
}

func TestMemory_UploadEmptyLocation(t *testing.T) {
	m := upload.NewMemory("http://files")

	p, err := m.Upload(context.Background(), "", &model.FileBlob{Name: "a.txt"})
	gt.NoError(t, err).Required()
	gt.String(t, p).HasPrefix(config.DefaultUploadLocation + "/")
}

func TestMemory_UploadFailure(t *testing.T) {
	m := upload.NewMemory("http://files")
	m.FailOn("drivers", errors.New("bucket is full"))

	_, err := m.Upload(context.Background(), "drivers", &model.FileBlob{Name: "a.jpg"})
	gt.Error(t, err).Is(model.ErrUpload)
	gt.Array(t, m.Uploads()).Length(0)

	_, err = m.Upload(context.Background(), "drivers", nil)
	gt.Error(t, err).Is(model.ErrUpload)
}

func TestTargets(t *testing.T) {
	def := upload.NewMemory("http://default")
	drv := upload.NewMemory("http://driver")
	targets := upload.NewTargets(def).With(upload.TargetDriver, drv)

	gt.Value(t, targets.Get(upload.TargetDriver).PublicURL("x")).Equal("http://driver/x")
	gt.Value(t, targets.Get(upload.TargetDefault).PublicURL("x")).Equal("http://default/x")
	gt.Value(t, targets.Get("unknown").PublicURL("x")).Equal("http://default/x")
	gt.Value(t, targets.Get("").PublicURL("x")).Equal("http://default/x")
}

func TestGCS_Upload(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET not set")
	}

	ctx := context.Background()
	g, err := upload.NewGCS(ctx, bucket, nil)
	gt.NoError(t, err).Required()
	defer func() { _ = g.Close() }()

	p, err := g.Upload(ctx, "test/uploads", &model.FileBlob{
		Name:        "hello.txt",
		ContentType: "text/plain",
		Data:        []byte("hello"),
	})
	gt.NoError(t, err).Required()
	gt.Bool(t, strings.HasPrefix(g.PublicURL(p), upload.DefaultPublicBase+"/"+bucket+"/test/uploads/")).True()
}

func TestNewGCS_RequiresBucket(t *testing.T) {
	_, err := upload.NewGCS(context.Background(), "", nil)
	gt.Error(t, err)
}
