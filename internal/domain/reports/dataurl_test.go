package reports

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestParseImageDataURL(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	img, err := ParseImageDataURL(url)
	if err != nil {
		t.Fatalf("ParseImageDataURL failed: %v", err)
	}
	if img.ContentType != "image/png" {
		t.Errorf("content type = %q, want image/png", img.ContentType)
	}
	if !bytes.Equal(img.Data, payload) {
		t.Errorf("decoded payload mismatch")
	}
}

func TestParseImageDataURL_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"not a data url", "http://example.com/x.png"},
		{"missing payload", "data:image/png;base64"},
		{"not base64 encoded", "data:image/png,rawbytes"},
		{"non-image media type", "data:text/plain;base64,aGVsbG8="},
		{"invalid base64", "data:image/png;base64,@@@not-base64@@@"},
		{"empty payload", "data:image/png;base64,"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseImageDataURL(tc.input)
			if err == nil {
				t.Fatalf("expected error for %q", tc.input)
			}
			if !errors.Is(err, ErrBadImage) {
				t.Errorf("error %v does not wrap ErrBadImage", err)
			}
		})
	}
}

func TestEncodeDataURL_RoundTrip(t *testing.T) {
	data := []byte("jpegbytes")
	url := EncodeDataURL("image/jpeg", data)
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected prefix: %q", url)
	}
	img, err := ParseImageDataURL(url)
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if !bytes.Equal(img.Data, data) {
		t.Errorf("round trip payload mismatch")
	}
}
