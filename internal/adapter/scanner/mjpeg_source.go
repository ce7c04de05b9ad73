package scanner

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

// MJPEGSource reads frames from a network camera serving an MJPEG stream
// (multipart/x-mixed-replace). Requested stream parameters are whatever the
// URL encodes; the source accepts the stream shape the camera actually
// grants and never inspects frame dimensions.
type MJPEGSource struct {
	resp   *http.Response
	reader *multipart.Reader
}

// OpenMJPEGSource connects to the camera stream at streamURL. The stream
// stays open until Close; cancelling ctx tears it down.
func OpenMJPEGSource(ctx context.Context, client *http.Client, streamURL string) (*MJPEGSource, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open camera stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("open camera stream: unexpected status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("parse stream content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		resp.Body.Close()
		return nil, fmt.Errorf("not an mjpeg stream: content type %q", mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("mjpeg stream missing boundary")
	}

	return &MJPEGSource{
		resp:   resp,
		reader: multipart.NewReader(resp.Body, boundary),
	}, nil
}

// Next blocks until the camera delivers the next frame and decodes it.
func (s *MJPEGSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	part, err := s.reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("read stream part: %w", err)
	}
	defer part.Close()

	img, err := jpeg.Decode(part)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// Close tears down the stream connection.
func (s *MJPEGSource) Close() error {
	return s.resp.Body.Close()
}
