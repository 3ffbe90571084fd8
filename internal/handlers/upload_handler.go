package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"works-matching-backend/internal/logger"
	"works-matching-backend/internal/services/fileproc"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	processor *fileproc.Processor
	maxBytes  int64
	log       *logger.Logger
}

func NewUploadHandler(processor *fileproc.Processor, maxFileSizeMB int, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		processor: processor,
		maxBytes:  int64(maxFileSizeMB) * 1024 * 1024,
		log:       log.With("handler", "upload"),
	}
}

func (h *UploadHandler) readUpload(c *gin.Context) ([]byte, string, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return nil, "", false
	}
	defer file.Close()

	name := strings.ToLower(header.Filename)
	if !strings.HasSuffix(name, ".txt") && !strings.HasSuffix(name, ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only TXT and CSV files are supported"})
		return nil, "", false
	}

	if header.Size > h.maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("File too large. Maximum size is %dMB", h.maxBytes/(1024*1024)),
		})
		return nil, "", false
	}

	raw, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil || int64(len(raw)) > h.maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return nil, "", false
	}

	return raw, header.Filename, true
}

// Upload processes a usage file, streaming progress frames back as
// server-sent events. The connection stays open for the whole pipeline.
func (h *UploadHandler) Upload(c *gin.Context) {
	raw, filename, ok := h.readUpload(c)
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	emit := func(ev fileproc.ProgressEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", data)
		c.Writer.Flush()
	}

	if err := h.processor.Process(c.Request.Context(), raw, filename, emit); err != nil {
		// Terminal error frame already emitted; nothing more to send.
		h.log.Warn("upload processing ended with error", "filename", filename, "error", err)
	}
}

// Validate parses a file and reports the record count plus sample rows
// without creating anything.
func (h *UploadHandler) Validate(c *gin.Context) {
	raw, _, ok := h.readUpload(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, fileproc.Validate(raw))
}
