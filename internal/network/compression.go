// File: internal/network/compression.go
package network

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// acceptEncodings is advertised on outgoing requests unless the action set its
// own negotiation header.
const acceptEncodings = "br, gzip, deflate, identity"

// CompressionMiddleware is an http.RoundTripper that advertises compression
// support on outgoing requests and transparently decodes response bodies
// according to the Content-Encoding header received.
//
// Supported encodings: gzip, brotli, and deflate (zlib-wrapped or raw).
type CompressionMiddleware struct {
	next http.RoundTripper
}

// NewCompressionMiddleware wraps the provided http.RoundTripper. A nil
// transport falls back to http.DefaultTransport.
func NewCompressionMiddleware(transport http.RoundTripper) *CompressionMiddleware {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &CompressionMiddleware{next: transport}
}

// RoundTrip implements the http.RoundTripper interface.
func (cm *CompressionMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptEncodings)
	}

	resp, err := cm.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := DecompressResponse(resp); err != nil {
		// The body stream may be partially consumed at this point; close it
		// and discard the response to prevent corruption.
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to initialize response decompression: %w", err)
	}

	return resp, nil
}

// DecompressResponse wraps resp.Body with a decoder for each Content-Encoding
// layer, applied in reverse of the order the server applied them. On success
// the Content-Encoding and Content-Length headers are cleared and the response
// is marked uncompressed.
//
// If this function returns an error the body may have been partially read;
// the caller must close it and discard the response.
func DecompressResponse(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}

	encodings := resp.Header.Values("Content-Encoding")
	if len(encodings) == 0 {
		return nil
	}

	wrapped := false
	for i := len(encodings) - 1; i >= 0; i-- {
		encoding := strings.ToLower(strings.TrimSpace(encodings[i]))
		if encoding == "" || encoding == "identity" {
			continue
		}

		decoded, err := newDecoder(encoding, resp.Body)
		if err != nil {
			return fmt.Errorf("%s initialization error: %w", encoding, err)
		}
		resp.Body = &decodedBody{decoded: decoded, original: resp.Body}
		wrapped = true
	}

	if !wrapped {
		return nil
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1 // Length is now unknown
	resp.Uncompressed = true
	return nil
}

// newDecoder returns a reader that decodes one encoding layer from r.
func newDecoder(encoding string, r io.Reader) (io.ReadCloser, error) {
	switch encoding {
	case "gzip":
		return gzip.NewReader(r)
	case "br":
		// The brotli reader has no Close method.
		return io.NopCloser(brotli.NewReader(r)), nil
	case "deflate":
		return newDeflateReader(r)
	default:
		return nil, fmt.Errorf("unsupported Content-Encoding layer: %s", encoding)
	}
}

// decodedBody closes both the decoder and the underlying connection body so
// http.Transport can reuse the connection.
type decodedBody struct {
	decoded  io.ReadCloser
	original io.ReadCloser
}

func (b *decodedBody) Read(p []byte) (int, error) {
	return b.decoded.Read(p)
}

func (b *decodedBody) Close() error {
	return errors.Join(b.decoded.Close(), b.original.Close())
}

// newDeflateReader decodes a deflate body. Servers disagree on whether
// "deflate" means a zlib stream (RFC 1950) or a bare flate stream (RFC 1951);
// the two-byte zlib header is checked without consuming the stream to pick
// the right decoder.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err == nil && isZlibHeader(header) {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

// isZlibHeader reports whether h starts a valid RFC 1950 stream: compression
// method 8 with a header checksum divisible by 31.
func isZlibHeader(h []byte) bool {
	if len(h) < 2 {
		return false
	}
	if h[0]&0x0f != 8 {
		return false
	}
	return (uint16(h[0])<<8|uint16(h[1]))%31 == 0
}
