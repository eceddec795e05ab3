package httputil

import (
	"bytes"
	"mime"
	"net/http"
	"time"

	"fknsrs.biz/p/vidshelf/internal/ctxlogger"
	"fknsrs.biz/p/vidshelf/internal/ctxtemplate"
)

// NotFound renders the not found page with a 404 status. If that page
// cannot be rendered a plain text 404 is sent instead.
func NotFound(rw http.ResponseWriter, r *http.Request) {
	if err := ctxtemplate.ExecuteTemplateIntoResponseWithStatus(r, rw, http.StatusNotFound, "page_not_found", map[string]interface{}{
		"Path": r.URL.Path,
	}); err != nil {
		ctxlogger.GetLogger(r.Context()).WithError(err).Warn("could not render not found page")
		http.Error(rw, "Not found", http.StatusNotFound)
	}
}

// Attachment sends data as a download called fileName. The content type is
// sniffed when contentType is empty.
func Attachment(rw http.ResponseWriter, r *http.Request, fileName, contentType string, data []byte) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	rw.Header().Set("content-type", contentType)
	rw.Header().Set("content-disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))

	http.ServeContent(rw, r, "", time.Time{}, bytes.NewReader(data))
}
