package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const (
	defaultQRSize = 300
	minQRSize     = 100
	maxQRSize     = 1000

	qrAPIEndpoint = "https://api.qrserver.com/v1/create-qr-code/"
)

// ShortURLResolver yields the absolute short URL for a stored link,
// returning ErrLinkNotFound for unknown codes.
type ShortURLResolver interface {
	GetOwnedLink(ctx context.Context, shortCode string, userID int64) (string, error)
}

// QRCodeService renders QR codes for short links through an external
// image API.
type QRCodeService struct {
	client   *http.Client
	links    ShortURLResolver
	endpoint string
}

func NewQRCodeService(client *http.Client, links ShortURLResolver) *QRCodeService {
	if client == nil {
		client = http.DefaultClient
	}

	return &QRCodeService{
		client:   client,
		links:    links,
		endpoint: qrAPIEndpoint,
	}
}

// Generate fetches a PNG QR code for the caller's short link. Size is
// clamped to the renderer's supported range.
func (s *QRCodeService) Generate(ctx context.Context, shortCode string, userID int64, size int) ([]byte, error) {
	const op = "service.QRCodeService.Generate"

	shortURL, err := s.links.GetOwnedLink(ctx, shortCode, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve link: %w", op, err)
	}

	if size < minQRSize || size > maxQRSize {
		size = defaultQRSize
	}

	query := url.Values{}
	query.Set("data", shortURL)
	query.Set("size", strconv.Itoa(size)+"x"+strconv.Itoa(size))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", op, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to fetch qr code: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: qr renderer returned status %d", op, resp.StatusCode)
	}

	png, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read qr image: %w", op, err)
	}

	return png, nil
}
