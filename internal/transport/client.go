package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/xerrors"

	"github.com/scenepack/scenepack/internal/report"
)

// Client talks to a session's remote endpoint: checkout fetches a
// bundle archive over the framed stream (§6), commit uploads one.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient builds a Client authenticated with a static bearer token,
// the same oauth2.StaticTokenSource + oauth2.NewClient pattern the
// corpus uses for its own GitHub API access.
func NewClient(ctx context.Context, baseURL, token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{BaseURL: baseURL, HTTP: oauth2.NewClient(ctx, ts)}
}

// Checkout fetches projectPath's bundle archive, reporting each status
// frame via onStatus as it streams in.
func (c *Client) Checkout(ctx context.Context, projectPath string, onStatus func(string)) ([]byte, error) {
	url := fmt.Sprintf("%s/checkout?path=%s", c.BaseURL, projectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, report.New(report.IO, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, report.New(report.IO, url, xerrors.Errorf("checkout: unexpected status %s", resp.Status))
	}
	return DecodeCheckout(resp.Body, onStatus)
}

// Commit uploads archive as a multipart body alongside a JSON-encoded
// arguments object carrying the commit message (§6 "The commit request
// uploads one archive as a multipart body alongside a JSON-encoded
// arguments object").
func (c *Client) Commit(ctx context.Context, sessionPath, message string, archive []byte) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	args, err := json.Marshal(struct {
		Path    string `json:"path"`
		Message string `json:"message"`
	}{sessionPath, message})
	if err != nil {
		return err
	}
	if err := w.WriteField("args", string(args)); err != nil {
		return err
	}
	part, err := w.CreateFormFile("archive", "commit.zip")
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, bytes.NewReader(archive)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	url := c.BaseURL + "/commit"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return report.New(report.IO, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return report.New(report.IO, url, xerrors.Errorf("commit: unexpected status %s", resp.Status))
	}
	return nil
}
