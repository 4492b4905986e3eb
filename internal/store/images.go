package store

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

func DecodeImageData(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, errors.New("no image data")
	}
	parts := strings.SplitN(data, ",", 2)
	if len(parts) == 2 {
		data = parts[1]
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

func EncodeImageData(image []byte) string {
	if len(image) == 0 {
		return ""
	}
	return "data:" + ImageContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
}

// ImageContentType sniffs the payload; doodles are PNG or JPEG in practice.
func ImageContentType(image []byte) string {
	contentType := http.DetectContentType(image)
	if strings.HasPrefix(contentType, "image/") {
		return contentType
	}
	return "application/octet-stream"
}
