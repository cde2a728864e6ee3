package kitchen

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// PNGPrefix is the prefix every generated image carries.
const PNGPrefix = "data:image/png;base64,"

// DataURI is an inline image, e.g. "data:image/png;base64,iVBOR...".
// The zero value means "no image".
type DataURI string

// NewPNGDataURI encodes raw PNG bytes as a data URI.
func NewPNGDataURI(data []byte) DataURI {
	return DataURI(PNGPrefix + base64.StdEncoding.EncodeToString(data))
}

// PNGDataURIFromBase64 wraps an already base64-encoded payload.
func PNGDataURIFromBase64(payload string) DataURI {
	return DataURI(PNGPrefix + payload)
}

// IsZero reports whether the URI is absent.
func (d DataURI) IsZero() bool {
	return d == ""
}

// String implements fmt.Stringer.
func (d DataURI) String() string {
	return string(d)
}

// Payload strips the "data:<mime>;base64," prefix and returns the base64 text.
func (d DataURI) Payload() (string, error) {
	s := string(d)
	if !strings.HasPrefix(s, "data:") {
		return "", ErrInvalidDataURI
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return "", ErrInvalidDataURI
	}
	if !strings.HasSuffix(s[:comma], ";base64") {
		return "", ErrInvalidDataURI
	}
	return s[comma+1:], nil
}

// MIMEType returns the media type declared by the URI.
func (d DataURI) MIMEType() string {
	s := strings.TrimPrefix(string(d), "data:")
	if end := strings.IndexAny(s, ";,"); end >= 0 {
		return s[:end]
	}
	return ""
}

// Bytes decodes the image payload.
func (d DataURI) Bytes() ([]byte, error) {
	payload, err := d.Payload()
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return data, nil
}
