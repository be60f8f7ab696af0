package reports

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrBadImage indicates an inline image payload that could not be decoded.
var ErrBadImage = errors.New("invalid image payload")

// ParseImageDataURL decodes a "data:image/<subtype>;base64,<payload>" string.
// Validation is strict: a missing prefix, a non-image MIME type or a payload
// that is not valid base64 all reject the input.
func ParseImageDataURL(s string) (*Image, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: not a data URL", ErrBadImage)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload", ErrBadImage)
	}
	contentType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, fmt.Errorf("%w: unsupported encoding %q", ErrBadImage, meta)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: unsupported media type %q", ErrBadImage, contentType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrBadImage)
	}
	return &Image{ContentType: contentType, Data: data}, nil
}

// EncodeDataURL wraps raw image bytes into an inline data URL so the image
// can travel through a JSON response.
func EncodeDataURL(contentType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}
