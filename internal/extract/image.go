package extract

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotImage is returned when the payload does not sniff as an image.
var ErrNotImage = errors.New("not an image")

// ImageMIME sniffs data and returns its image MIME type.
func ImageMIME(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	mime := strings.ToLower(strings.TrimSpace(strings.Split(mt.String(), ";")[0]))
	if !strings.HasPrefix(mime, "image/") {
		return "", ErrNotImage
	}
	return mime, nil
}

// DataURI encodes data as a base64 data URI with the given MIME type.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI splits a base64 data URI into its MIME type and payload.
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.New("not a data uri")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("data uri missing payload")
	}
	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, errors.New("data uri is not base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	return mime, data, nil
}
