// internal/network/compression_test.go
package network

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const compressionPayload = "raccoon compression payload, long enough to be worth encoding"

func compressWith(t *testing.T, encoding string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "br":
		w = brotli.NewWriter(&buf)
	case "zlib":
		w = zlib.NewWriter(&buf)
	case "flate":
		var err error
		w, err = flate.NewWriter(&buf, flate.DefaultCompression)
		require.NoError(t, err)
	default:
		t.Fatalf("unknown encoding %s", encoding)
	}
	_, err := w.Write([]byte(compressionPayload))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestCompressionMiddleware_DecodesEncodings(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		encoding string
	}{
		{"gzip", "gzip", "gzip"},
		{"brotli", "br", "br"},
		{"deflate zlib-wrapped", "deflate", "zlib"},
		{"deflate raw", "deflate", "flate"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			compressed := compressWith(t, tc.encoding)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("Accept-Encoding"), "br", "middleware must advertise brotli")
				w.Header().Set("Content-Encoding", tc.header)
				w.Write(compressed)
			}))
			defer server.Close()

			client := &http.Client{Transport: NewCompressionMiddleware(nil)}
			resp, err := client.Get(server.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, compressionPayload, string(body))
			assert.Empty(t, resp.Header.Get("Content-Encoding"), "encoding header is consumed")
			assert.True(t, resp.Uncompressed)
		})
	}
}

func TestCompressionMiddleware_PassesIdentityThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(compressionPayload))
	}))
	defer server.Close()

	client := &http.Client{Transport: NewCompressionMiddleware(nil)}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, compressionPayload, string(body))
}

func TestDecompressResponse_GarbageGzipFails(t *testing.T) {
	resp := &http.Response{
		Header: http.Header{"Content-Encoding": []string{"gzip"}},
		Body:   io.NopCloser(bytes.NewReader([]byte("definitely not gzip"))),
	}

	err := DecompressResponse(resp)
	assert.Error(t, err)
}

func TestDecompressResponse_NilSafe(t *testing.T) {
	assert.NoError(t, DecompressResponse(nil))
	assert.NoError(t, DecompressResponse(&http.Response{}))
}

func TestDecompressResponse_LayeredEncodingsDecodeInReverse(t *testing.T) {
	// deflate applied first, then gzip on top; decoding must peel gzip first.
	var inner bytes.Buffer
	fw, err := flate.NewWriter(&inner, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = fw.Write([]byte(compressionPayload))
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	var outer bytes.Buffer
	gw := gzip.NewWriter(&outer)
	_, err = gw.Write(inner.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	resp := &http.Response{
		Header: http.Header{"Content-Encoding": []string{"deflate", "gzip"}},
		Body:   io.NopCloser(bytes.NewReader(outer.Bytes())),
	}
	require.NoError(t, DecompressResponse(resp))
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, compressionPayload, string(body))
	assert.True(t, resp.Uncompressed)
	assert.EqualValues(t, -1, resp.ContentLength)
}

func TestIsZlibHeader(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want bool
	}{
		{"zlib default compression", []byte{0x78, 0x9c}, true},
		{"zlib best compression", []byte{0x78, 0xda}, true},
		{"raw flate block", []byte{0xf3, 0x48}, false},
		{"wrong method", []byte{0x71, 0x9c}, false},
		{"checksum mismatch", []byte{0x78, 0x9d}, false},
		{"too short", []byte{0x78}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isZlibHeader(tc.data))
		})
	}
}

func TestCompressionMiddleware_SequentialRequestsReuseClient(t *testing.T) {
	compressed := compressWith(t, "gzip")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(compressed)
	}))
	defer server.Close()

	client := &http.Client{Transport: NewCompressionMiddleware(nil)}
	for i := 0; i < 8; i++ {
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, compressionPayload, string(body))
	}
}
