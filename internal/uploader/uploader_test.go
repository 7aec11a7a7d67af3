package uploader

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-video/client/internal/api"
	"github.com/aura-video/client/internal/media"
	"github.com/aura-video/client/internal/models"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func init() {
	gin.SetMode(gin.TestMode)
}

// writeSampleMP4 writes a minimal container whose movie header reports the
// given duration in seconds.
func writeSampleMP4(t *testing.T, name string, durationSec int) (string, []byte) {
	t.Helper()
	mvhd := make([]byte, 28)
	binary.BigEndian.PutUint32(mvhd[:4], 28)
	copy(mvhd[4:8], "mvhd")
	binary.BigEndian.PutUint32(mvhd[20:24], 1000)                     // timescale
	binary.BigEndian.PutUint32(mvhd[24:28], uint32(durationSec*1000)) // duration

	moov := make([]byte, 8, 8+len(mvhd))
	binary.BigEndian.PutUint32(moov[:4], uint32(8+len(mvhd)))
	copy(moov[4:8], "moov")
	content := append(moov, mvhd...)

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path, content
}

func bearerToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestUploadSuccess(t *testing.T) {
	path, content := writeSampleMP4(t, "demo.mp4", 42)

	// Fake object storage capturing the direct PUT.
	var putBody []byte
	var putHeader http.Header
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		putHeader = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		putBody = body
		w.WriteHeader(http.StatusOK)
	}))
	defer storage.Close()

	// Fake backend issuing the presigned target.
	var presignReq models.PresignRequest
	router := gin.New()
	router.POST("/api/presign-upload", func(c *gin.Context) {
		require.NoError(t, c.BindJSON(&presignReq))
		c.JSON(http.StatusOK, gin.H{"uploadUrl": storage.URL + "/bucket/v-1", "videoId": "v-1"})
	})
	backend := httptest.NewServer(router)
	defer backend.Close()

	client := api.New(backend.URL, bearerToken(t, "user-123"), 5*time.Second, nil)
	videoID, err := New(client, nil).Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "v-1", videoID)

	// Presign request carries the probed and hashed identity of the file.
	assert.Equal(t, "demo.mp4", presignReq.Filename)
	assert.Equal(t, int64(len(content)), presignReq.SizeBytes)
	assert.Equal(t, 42, presignReq.DurationSeconds)
	assert.Equal(t, "video/mp4", presignReq.ContentType)
	assert.Regexp(t, hexDigest, presignReq.VideoHash)

	// Transfer carries the raw bytes plus object metadata for the processor.
	assert.Equal(t, content, putBody)
	assert.Equal(t, "video/mp4", putHeader.Get("Content-Type"))
	assert.Equal(t, "v-1", putHeader.Get("X-Amz-Meta-Video_id"))
	assert.Equal(t, presignReq.VideoHash, putHeader.Get("X-Amz-Meta-Video_hash"))
	assert.Equal(t, "user-123", putHeader.Get("X-Amz-Meta-Cognito_user_id"))
}

func TestUploadPresignRejected(t *testing.T) {
	path, _ := writeSampleMP4(t, "demo.mp4", 10)

	var transfers atomic.Int32
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transfers.Add(1)
	}))
	defer storage.Close()

	router := gin.New()
	router.POST("/api/presign-upload", func(c *gin.Context) {
		c.JSON(http.StatusForbidden, gin.H{"error": "quota exceeded"})
	})
	backend := httptest.NewServer(router)
	defer backend.Close()

	client := api.New(backend.URL, bearerToken(t, "user-123"), 5*time.Second, nil)
	_, err := New(client, nil).Upload(context.Background(), path)
	require.Error(t, err)

	var presignErr *PresignError
	require.True(t, errors.As(err, &presignErr))
	assert.Equal(t, "quota exceeded", presignErr.Error(), "server message surfaced verbatim")
	assert.Equal(t, int32(0), transfers.Load(), "no transfer after a rejected presign")
}

func TestUploadTransferRejected(t *testing.T) {
	path, _ := writeSampleMP4(t, "demo.mp4", 10)

	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "access denied", http.StatusForbidden)
	}))
	defer storage.Close()

	router := gin.New()
	router.POST("/api/presign-upload", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uploadUrl": storage.URL + "/bucket/v-2", "videoId": "v-2"})
	})
	backend := httptest.NewServer(router)
	defer backend.Close()

	client := api.New(backend.URL, bearerToken(t, "user-123"), 5*time.Second, nil)
	_, err := New(client, nil).Upload(context.Background(), path)
	require.Error(t, err)

	var transferErr *TransferError
	require.True(t, errors.As(err, &transferErr))
	assert.Equal(t, http.StatusForbidden, transferErr.StatusCode)

	var presignErr *PresignError
	assert.False(t, errors.As(err, &presignErr), "transfer failures are distinct from presign failures")
}

func TestUploadAbortsOnProbeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.mp4")
	require.NoError(t, os.WriteFile(path, []byte("plain text, no container"), 0o600))

	var requests atomic.Int32
	router := gin.New()
	router.POST("/api/presign-upload", func(c *gin.Context) {
		requests.Add(1)
		c.JSON(http.StatusOK, gin.H{})
	})
	backend := httptest.NewServer(router)
	defer backend.Close()

	client := api.New(backend.URL, bearerToken(t, "user-123"), 5*time.Second, nil)
	_, err := New(client, nil).Upload(context.Background(), path)
	require.Error(t, err)

	var probeErr *media.ProbeError
	assert.True(t, errors.As(err, &probeErr))
	assert.Equal(t, int32(0), requests.Load(), "probe failure is a hard stop before any network call")
}

func TestUploadMissingFile(t *testing.T) {
	client := api.New("http://unused", bearerToken(t, "user-123"), 5*time.Second, nil)
	_, err := New(client, nil).Upload(context.Background(), filepath.Join(t.TempDir(), "gone.mp4"))
	require.Error(t, err)

	var probeErr *media.ProbeError
	assert.True(t, errors.As(err, &probeErr))
}

func TestUploadBadToken(t *testing.T) {
	path, _ := writeSampleMP4(t, "demo.mp4", 5)

	var requests atomic.Int32
	router := gin.New()
	router.POST("/api/presign-upload", func(c *gin.Context) { requests.Add(1) })
	backend := httptest.NewServer(router)
	defer backend.Close()

	client := api.New(backend.URL, "not-a-jwt", 5*time.Second, nil)
	_, err := New(client, nil).Upload(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, int32(0), requests.Load())
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "video/mp4", contentTypeFor("a/b/demo.mp4"))
	assert.Equal(t, "video/mp4", contentTypeFor("noext"))
}
