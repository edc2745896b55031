package httpclient

import (
	"io"
	"mime"
	"net/http"
	"strings"
)

// Response wraps an HTTP response already drained into memory. Bytes is
// read eagerly so callers can inspect status and decide whether to keep
// the body without worrying about closing anything.
type Response struct {
	StatusCode int
	Header     http.Header
	Bytes      []byte
}

func newResponse(resp *http.Response) (Response, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}
	return Response{StatusCode: resp.StatusCode, Header: resp.Header, Bytes: body}, nil
}

func (r Response) Text() string {
	return string(r.Bytes)
}

func (r Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r Response) IsRateLimited() bool {
	return r.StatusCode == 429 || r.StatusCode == 503
}

func (r Response) NotModified() bool {
	return r.StatusCode == 304
}

func (r Response) ETag() string {
	return r.Header.Get("ETag")
}

func (r Response) LastModified() string {
	return r.Header.Get("Last-Modified")
}

func (r Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// ContentDispositionFilename extracts the filename parameter from a
// Content-Disposition header, if present, returning "" otherwise.
func (r Response) ContentDispositionFilename() string {
	cd := r.Header.Get("Content-Disposition")
	if cd == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	if name, ok := params["filename"]; ok {
		return strings.Trim(name, `"`)
	}
	return ""
}

// HeadResponse is the trimmed-down result of a HEAD request: headers only,
// body always empty.
type HeadResponse struct {
	StatusCode int
	Header     http.Header
}

func (r HeadResponse) ETag() string {
	return r.Header.Get("ETag")
}

func (r HeadResponse) LastModified() string {
	return r.Header.Get("Last-Modified")
}
