package main

import (
	"encoding/base64"
	"net/http"
)

// dataURL encodes an image as a data: URL, the form logos are stored in.
func dataURL(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
