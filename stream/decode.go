package stream

import (
	"io"
	"log/slog"
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// NewDecodingReader wraps r so that it yields UTF-8 text, using the charset
// declared in contentType. Bodies without a charset, or with a UTF-8 or
// unknown one, are passed through unchanged.
//
// Decoding happens on the reader rather than per chunk, so multi-byte
// sequences split across chunks are decoded correctly.
func NewDecodingReader(r io.Reader, contentType string) io.Reader {
	charset := declaredCharset(contentType)
	if charset == "" {
		return r
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		slog.Warn("unknown stream charset, reading as UTF-8", "charset", charset, "error", err)
		return r
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return r
	}
	return enc.NewDecoder().Reader(r)
}

func declaredCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}
