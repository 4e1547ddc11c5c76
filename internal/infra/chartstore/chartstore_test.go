package chartstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoragePutGet(t *testing.T) {
	store := NewMemoryStorage()
	data := []byte("<svg/>")

	obj, err := store.Put(context.Background(), "charts/1/7/a.svg", "image/svg+xml", data)
	require.NoError(t, err)
	require.Equal(t, int64(6), obj.Size)

	data[0] = 'X'
	got, contentType, ok := store.Get("charts/1/7/a.svg")
	require.True(t, ok)
	require.Equal(t, "<svg/>", string(got))
	require.Equal(t, "image/svg+xml", contentType)
}

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "acct.r2.cloudflarestorage.com", sanitizeEndpoint("https://acct.r2.cloudflarestorage.com/bucket"))
	require.Equal(t, "localhost:9000", sanitizeEndpoint(" http://localhost:9000 "))
	require.Equal(t, "", sanitizeEndpoint(""))
}

func TestS3ObjectURL(t *testing.T) {
	store, err := NewS3Storage(S3Config{
		Endpoint:      "http://localhost:9000",
		AccessKey:     "minio",
		SecretKey:     "minio123",
		Bucket:        "charts",
		PublicBaseURL: "https://cdn.example.com/charts/",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/charts/a/b.png", store.objectURL("a/b.png"))
}
