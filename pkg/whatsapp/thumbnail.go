package whatsapp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sunshineplan/imgconv"
)

const thumbnailWidth = 72

// FetchThumbnail downloads an image and shrinks it to a JPEG link preview
func FetchThumbnail(ctx context.Context, httpClient *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch thumbnail: unexpected status %d", resp.StatusCode)
	}
	return Thumbnail(resp.Body)
}

// Thumbnail decodes any supported image and re-encodes it as a small JPEG
func Thumbnail(r io.Reader) ([]byte, error) {
	img, err := imgconv.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail: %w", err)
	}
	if img.Bounds().Dx() > thumbnailWidth {
		img = imgconv.Resize(img, &imgconv.ResizeOption{Width: thumbnailWidth})
	}

	var buf bytes.Buffer
	if err = imgconv.Write(&buf, img, &imgconv.FormatOption{Format: imgconv.JPEG}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
