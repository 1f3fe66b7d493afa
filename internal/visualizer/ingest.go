package visualizer

import (
	"context"
	"errors"

	"github.com/vending-visualizer/backend/internal/imaging"
	"github.com/vending-visualizer/backend/internal/models"
)

// Upload is a candidate background photo.
type Upload struct {
	FileID      string
	Name        string
	ContentType string
	Data        []byte
}

// Ingest decodes u and makes it the background. Non-image uploads and
// oversized images are rejected as invalid input; undecodable images fail
// with a decode error. Either way the previous state is kept. On success all
// placed machines are cleared and any drag ends; the selection is kept.
func (v *Visualizer) Ingest(ctx context.Context, u Upload) (*models.BackgroundInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contentType := imaging.DetectContentType(u.ContentType, u.Data)
	if !imaging.IsImageType(contentType) {
		return nil, v.fail(invalidInput(MsgNotImage, nil))
	}

	img, _, err := imaging.Decode(u.Data, v.opts.Limits)
	if err != nil {
		if errors.Is(err, imaging.ErrTooLarge) {
			return nil, v.fail(invalidInput(MsgImageTooLarge, err))
		}
		return nil, v.fail(decodeFailure(MsgDecodeFailed, err))
	}

	b := img.Bounds()
	displayW, displayH := imaging.FitWithin(float64(b.Dx()), float64(b.Dy()), v.opts.DisplayMax.Width, v.opts.DisplayMax.Height)

	v.background = &models.BackgroundInfo{
		FileID:        u.FileID,
		Name:          u.Name,
		ContentType:   contentType,
		NaturalWidth:  b.Dx(),
		NaturalHeight: b.Dy(),
		DisplayWidth:  displayW,
		DisplayHeight: displayH,
	}
	v.backgroundImage = img
	v.placements.Reset()
	v.interaction.DragEnd()
	v.status = MsgPhotoLoaded

	info := *v.background
	return &info, nil
}
