// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// encodeWebP writes img to w as lossy WebP at the given quality. The source
// is cloned to NRGBA first: the encoder only accepts RGBA-family images, and
// the clone carries the alpha channel through for transparent sources.
func encodeWebP(w io.Writer, img image.Image, quality int) error {
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
	if err != nil {
		return fmt.Errorf("building encoder options: %w", err)
	}
	if err := webp.Encode(w, imaging.Clone(img), opts); err != nil {
		return fmt.Errorf("encoding webp: %w", err)
	}
	return nil
}
