package clauseinsight

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Upload sends a PDF for ingestion. The document is fully chunked, embedded
// and indexed before the call returns; the result carries the chunk count
// and the embedding token spend.
//
// filename must end in .pdf, matching what the service accepts.
func (c *Client) Upload(ctx context.Context, filename string, pdf io.Reader) (out UploadResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upload", start, err) }()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return out, fmt.Errorf("clauseinsight: build multipart body: %w", err)
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return out, fmt.Errorf("clauseinsight: read pdf: %w", err)
	}
	if err := mw.Close(); err != nil {
		return out, fmt.Errorf("clauseinsight: build multipart body: %w", err)
	}

	h, err := c.do(ctx, http.MethodPost, "/upload", mw.FormDataContentType(), &buf, &out)
	if err != nil {
		return out, err
	}
	out.Usage = usageFromHeader(h)
	return out, nil
}
