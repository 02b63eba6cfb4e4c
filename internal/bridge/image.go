package bridge

import (
	"context"
	"image"
	"time"

	"github.com/disintegration/imaging"

	apperrors "docbridge/internal/errors"
	"docbridge/internal/location"
	"docbridge/internal/provider"
)

// LoadImage decodes the image stored at loc, applying its EXIF orientation.
// Formats are those imaging decodes (JPEG, PNG, GIF, TIFF, BMP).
func (b *Bridge) LoadImage(ctx context.Context, loc location.Location) (img image.Image, err error) {
	defer observe("load_image", time.Now(), &err)

	_, doc, err := b.openDocument(ctx, loc, provider.ModeRead)
	if err != nil {
		return nil, apperrors.NewContentError("load_image", loc.String(), apperrors.ErrNotFound, err)
	}
	defer doc.Close()

	img, err = imaging.Decode(doc, imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperrors.NewContentError("load_image", loc.String(), apperrors.ErrReadFailure, err)
	}
	return img, nil
}
