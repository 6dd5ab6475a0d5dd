package catalogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"
)

// HTTPSDE talks to the secure-data-environment REST API.
type HTTPSDE struct {
	rest restClient
}

var _ SDEClient = (*HTTPSDE)(nil)

// NewHTTPSDE creates an SDE client rooted at baseURL.
func NewHTTPSDE(baseURL, apiKey string, timeout time.Duration) *HTTPSDE {
	return &HTTPSDE{rest: newRestClient(baseURL, apiKey, timeout)}
}

func (c *HTTPSDE) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.rest.doJSON(ctx, http.MethodGet, c.rest.endpoint("projects"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPSDE) FindDataRequest(ctx context.Context, specificationID string) (*DataRequest, error) {
	u := c.rest.endpoint("dataRequests") + "?" + url.Values{"specificationId": {specificationID}}.Encode()
	var out []DataRequest
	if err := c.rest.doJSON(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (c *HTTPSDE) CreateDataRequest(ctx context.Context, projectID, specificationID string) (*DataRequest, error) {
	in := map[string]string{"specificationId": specificationID}
	var out DataRequest
	if err := c.rest.doJSON(ctx, http.MethodPost, c.rest.endpoint("projects", projectID, "dataRequests"), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPSDE) GetDataRequest(ctx context.Context, requestID string) (*DataRequest, error) {
	var out DataRequest
	if err := c.rest.doJSON(ctx, http.MethodGet, c.rest.endpoint("dataRequests", requestID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPSDE) SubmitForApproval(ctx context.Context, requestID string) (*DataRequest, error) {
	var out DataRequest
	if err := c.rest.doJSON(ctx, http.MethodPost, c.rest.endpoint("dataRequests", requestID, "submit"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPSDE) ListAttachments(ctx context.Context, requestID string) ([]Attachment, error) {
	var out []Attachment
	if err := c.rest.doJSON(ctx, http.MethodGet, c.rest.endpoint("dataRequests", requestID, "attachments"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPSDE) AttachFile(ctx context.Context, requestID, fileID, attachmentType string) error {
	in := map[string]string{"fileId": fileID, "attachmentType": attachmentType}
	return c.rest.doJSON(ctx, http.MethodPost, c.rest.endpoint("dataRequests", requestID, "attachments"), in, nil)
}

func (c *HTTPSDE) UploadFile(ctx context.Context, file *FileProperties, progress func(UploadProgress)) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.FileName))
	if file.ContentType != "" {
		h.Set("Content-Type", file.ContentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", file.FileName, err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return "", fmt.Errorf("upload %s: %w", file.FileName, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", file.FileName, err)
	}

	total := int64(buf.Len())
	var body io.Reader = &buf
	if progress != nil {
		body = &progressReader{r: &buf, total: total, report: progress}
	}
	u := c.rest.endpoint("files")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return "", fmt.Errorf("build POST %s: %w", u, err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.rest.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode POST %s: %w", u, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("upload %s: response carried no file id", file.FileName)
	}
	if progress != nil {
		progress(UploadProgress{Loaded: total, Total: total, Done: true, FileID: out.ID})
	}
	return out.ID, nil
}

// progressReader reports bytes handed to the transport.
type progressReader struct {
	r      io.Reader
	loaded int64
	total  int64
	report func(UploadProgress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		p.report(UploadProgress{Loaded: p.loaded, Total: p.total})
	}
	return n, err
}
