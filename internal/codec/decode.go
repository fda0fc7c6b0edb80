// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package codec

import (
	"bytes"
	"fmt"
	"image"

	// Register the decoders image.Decode dispatches to. BMP and TIFF come
	// from golang.org/x/image; the rest ship with the standard library.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
)

// sniffLen is the number of leading bytes filetype needs to identify a
// format. Matching never looks past this prefix.
const sniffLen = 261

// decodeImage decodes data in any registered raster format and returns the
// image together with the format name image.Decode identified. When decoding
// fails, the content is sniffed so the error can name the actual format
// instead of whatever the file extension claims.
func decodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if kind := sniff(data); kind != "" {
			return nil, "", fmt.Errorf("decoding %s data: %w", kind, err)
		}
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}
	return img, format, nil
}

// sniff returns the detected format extension for data ("png", "jpg", ...)
// or "" when the content matches no known signature.
func sniff(data []byte) string {
	kind, err := filetype.Match(head(data))
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.Extension
}

// isHEIF reports whether data is a HEIF/HEIC container.
func isHEIF(data []byte) bool {
	return filetype.IsType(head(data), matchers.TypeHeif)
}

func head(data []byte) []byte {
	if len(data) > sniffLen {
		return data[:sniffLen]
	}
	return data
}
