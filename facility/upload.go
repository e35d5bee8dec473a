package facility

import (
	"bufio"
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"slices"

	"bloodbank/apperr"
)

// Uploaded logos are sniffed before decoding and bounded in size.
var logoMIMEs = []string{"image/jpeg", "image/png", "image/gif"}

const maxLogoSide = 4096

// sniffImage rejects payloads whose leading bytes are not an allowed image type.
func sniffImage(src io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(src, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, apperr.Validation("Could not read logo upload")
	}
	if !slices.Contains(logoMIMEs, http.DetectContentType(head)) {
		return nil, apperr.Validation("Logo must be a PNG, JPEG or GIF image")
	}
	return br, nil
}

// checkDimensions reads only the image header and rejects oversized logos
// before any pixels are allocated. The returned reader replays the header.
func checkDimensions(src io.Reader) (io.Reader, error) {
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(src, &head))
	if err != nil {
		return nil, apperr.Validation("Logo must be a PNG, JPEG or GIF image")
	}
	if cfg.Width > maxLogoSide || cfg.Height > maxLogoSide {
		return nil, apperr.Validationf("Logo dimensions %dx%d exceed %dx%d", cfg.Width, cfg.Height, maxLogoSide, maxLogoSide)
	}
	return io.MultiReader(&head, src), nil
}
