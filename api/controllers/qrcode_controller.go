package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 200
	maxQRSize     = 512
)

// GenerateQRCode returns a PNG QR code image of the server address, so a
// client on another machine can scan instead of typing. GET ?size=200x200
// with an optional ?data= override.
func GenerateQRCode(c *gin.Context) {
	data := c.Query("data")
	if data == "" {
		statusMu.RLock()
		info := serverInfo
		statusMu.RUnlock()
		if info.ListenAddr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameter: data"})
			return
		}
		data = info.Transport + "://" + info.ListenAddr
	}

	size := parseSize(c.Query("size"))
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}

	png, err := qrcode.Encode(data, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode QR code: " + err.Error()})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// parseSize parses size from "200x200" or "200" and returns the pixel dimension.
func parseSize(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if idx := strings.Index(s, "x"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
