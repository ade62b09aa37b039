package storage

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestNewSignerWithoutBucketIsNoop(t *testing.T) {
	signer, err := NewSigner(context.Background(), config.StorageConfig{})
	require.NoError(t, err)
	assert.IsType(t, NoopSigner{}, signer)

	got, err := signer.AttachmentURL(context.Background(), domain.Attachment{URL: "https://cdn/x.png", StorageKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.png", got)
}

func TestS3SignerPresignsStorageKey(t *testing.T) {
	signer, err := NewS3Signer(context.Background(), config.StorageConfig{
		Bucket:          "attachments",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		URLTTLMinutes:   10,
	})
	require.NoError(t, err)

	raw, err := signer.AttachmentURL(context.Background(), domain.Attachment{StorageKey: "tickets/t1/photo.jpg"})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/attachments/tickets/t1/photo.jpg", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestS3SignerPassesThroughExternalURLs(t *testing.T) {
	signer, err := NewS3Signer(context.Background(), config.StorageConfig{
		Bucket: "attachments", Region: "us-east-1", AccessKeyID: "a", SecretAccessKey: "b",
	})
	require.NoError(t, err)

	got, err := signer.AttachmentURL(context.Background(), domain.Attachment{URL: "https://example.com/a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.pdf", got)
}
