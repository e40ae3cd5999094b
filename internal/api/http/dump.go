package http

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// Dump renders the diagnostic dump for ?args=... as plain text. The output
// is compressed when ?encoding= or Accept-Encoding asks for zstd or gzip.
// Rejected arguments still return the dump text, with the scene code in
// the X-Scene-Code header.
func (h *Handlers) Dump(c *gin.Context) {
	if h.dumper == nil {
		respondError(c, fmt.Errorf("dump: %w", types.WSErrorUnavailable))
		return
	}

	args := c.QueryArray("args")
	var buf bytes.Buffer
	dumpErr := h.dumper.Dump(&buf, args)
	if dumpErr != nil {
		h.logger.Info("dump rejected", zap.Strings("args", args), zap.Error(dumpErr))
	}

	code := types.Code(dumpErr)
	c.Header("X-Scene-Code", fmt.Sprint(int32(code)))
	status := statusFor(code)

	encoding := negotiateEncoding(c)
	if encoding == "" {
		c.Data(status, "text/plain; charset=utf-8", buf.Bytes())
		return
	}

	body, err := compress(encoding, buf.Bytes())
	if err != nil {
		h.logger.Error("compress dump failed", zap.String("encoding", encoding), zap.Error(err))
		c.Data(status, "text/plain; charset=utf-8", buf.Bytes())
		return
	}
	c.Header("Content-Encoding", encoding)
	c.Header("Vary", "Accept-Encoding")
	c.Data(status, "text/plain; charset=utf-8", body)
}

// negotiateEncoding prefers an explicit ?encoding= over Accept-Encoding, and zstd over gzip
func negotiateEncoding(c *gin.Context) string {
	if enc := c.Query("encoding"); enc != "" {
		switch enc {
		case "zstd", "gzip":
			return enc
		default:
			return ""
		}
	}
	accept := c.GetHeader("Accept-Encoding")
	switch {
	case strings.Contains(accept, "zstd"):
		return "zstd"
	case strings.Contains(accept, "gzip"):
		return "gzip"
	default:
		return ""
	}
}

func compress(encoding string, data []byte) ([]byte, error) {
	var out bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "zstd":
		zw, err := zstd.NewWriter(&out)
		if err != nil {
			return nil, err
		}
		w = zw
	case "gzip":
		w = gzip.NewWriter(&out)
	default:
		return data, nil
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
