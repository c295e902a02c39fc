// Package docmerge is a client for the Adobe PDF Services document
// generation API. A template is uploaded as an asset, merged with JSON data by
// an asynchronous job, and the rendered document is downloaded once the job
// is done.
package docmerge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Lllllllleong/noticeflow/internal/models"
)

const (
	DefaultBaseURL      = "https://pdf-services.adobe.io"
	defaultTokenPath    = "/token"
	docxMediaType       = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	defaultPollInterval = 2 * time.Second
	maxErrorBody        = 4 << 10
)

// Job statuses reported by the service.
const (
	statusInProgress = "in progress"
	statusDone       = "done"
	statusFailed     = "failed"
)

// Client renders merge requests. It is safe for concurrent use and reuses its
// access token until it expires.
type Client struct {
	baseURL      string
	clientID     string
	api          *http.Client
	transfer     *http.Client
	pollInterval time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	baseURL      string
	tokenURL     string
	httpClient   *http.Client
	pollInterval time.Duration
}

// WithBaseURL points the client at another API host.
func WithBaseURL(u string) ClientOption {
	return func(o *clientOptions) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithTokenURL overrides the token endpoint. It defaults to BaseURL + /token.
func WithTokenURL(u string) ClientOption {
	return func(o *clientOptions) { o.tokenURL = u }
}

// WithHTTPClient sets the client used for every request.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithPollInterval sets the delay between job status checks.
func WithPollInterval(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.pollInterval = d }
}

// NewClient creates a client authenticated with creds.
func NewClient(ctx context.Context, creds Credentials, opts ...ClientOption) *Client {
	o := clientOptions{
		baseURL:      DefaultBaseURL,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tokenURL == "" {
		o.tokenURL = o.baseURL + defaultTokenPath
	}

	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     o.tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)

	return &Client{
		baseURL:      o.baseURL,
		clientID:     creds.ClientID,
		api:          cc.Client(ctx),
		transfer:     o.httpClient,
		pollInterval: o.pollInterval,
	}
}

// Generate merges req.Data into the template at req.TemplatePath and returns
// the rendered document. The caller must close it.
func (c *Client) Generate(ctx context.Context, req *models.GenerationRequest) (io.ReadCloser, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	logCtx := slog.With("template", req.TemplatePath, "format", req.Format)

	template, err := os.ReadFile(req.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	logCtx.Debug("Uploading template asset.")
	assetID, err := c.uploadAsset(ctx, template, docxMediaType)
	if err != nil {
		return nil, err
	}

	logCtx.Debug("Submitting document merge job.", "assetId", assetID)
	location, err := c.submitJob(ctx, assetID, req)
	if err != nil {
		return nil, err
	}

	downloadURI, err := c.waitForJob(ctx, location)
	if err != nil {
		return nil, err
	}

	logCtx.Debug("Downloading rendered document.")
	return c.download(ctx, downloadURI)
}

type assetResponse struct {
	UploadURI string `json:"uploadUri"`
	AssetID   string `json:"assetID"`
}

func (c *Client) uploadAsset(ctx context.Context, content []byte, mediaType string) (string, error) {
	var asset assetResponse
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/assets", map[string]string{"mediaType": mediaType}, &asset, nil); err != nil {
		return "", fmt.Errorf("failed to create asset: %w", err)
	}
	if asset.UploadURI == "" || asset.AssetID == "" {
		return "", &ServiceError{Kind: KindTransient, Message: "asset response missing upload location"}
	}

	put, err := http.NewRequestWithContext(ctx, http.MethodPut, asset.UploadURI, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	put.Header.Set("Content-Type", mediaType)
	resp, err := c.transfer.Do(put)
	if err != nil {
		return "", fmt.Errorf("failed to upload template: %w", err)
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return "", fmt.Errorf("failed to upload template: %w", err)
	}
	return asset.AssetID, nil
}

type jobRequest struct {
	AssetID          string         `json:"assetID"`
	OutputFormat     string         `json:"outputFormat"`
	JSONDataForMerge map[string]any `json:"jsonDataForMerge"`
}

func (c *Client) submitJob(ctx context.Context, assetID string, req *models.GenerationRequest) (string, error) {
	body := jobRequest{AssetID: assetID, OutputFormat: string(req.Format), JSONDataForMerge: req.Data}
	var header http.Header
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/operation/documentgeneration", body, nil, &header); err != nil {
		return "", fmt.Errorf("failed to submit merge job: %w", err)
	}
	location := header.Get("Location")
	if location == "" {
		return "", &ServiceError{Kind: KindTransient, Message: "merge job accepted without a status location"}
	}
	return location, nil
}

type jobStatus struct {
	Status string `json:"status"`
	Asset  struct {
		DownloadURI string `json:"downloadUri"`
	} `json:"asset"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
}

// waitForJob polls location until the job finishes or ctx is done.
func (c *Client) waitForJob(ctx context.Context, location string) (string, error) {
	for {
		var st jobStatus
		if err := c.doJSON(ctx, http.MethodGet, location, nil, &st, nil); err != nil {
			return "", fmt.Errorf("failed to poll merge job: %w", err)
		}

		switch st.Status {
		case statusDone:
			if st.Asset.DownloadURI == "" {
				return "", &ServiceError{Kind: KindTransient, Message: "merge job done without a download location"}
			}
			return st.Asset.DownloadURI, nil
		case statusFailed:
			kind := KindInput
			if st.Error.Status != 0 {
				kind = kindForStatus(st.Error.Status)
			}
			return "", &ServiceError{
				Kind:       kind,
				StatusCode: st.Error.Status,
				Message:    strings.TrimSpace(st.Error.Code + " " + st.Error.Message),
			}
		case statusInProgress, "":
		default:
			return "", &ServiceError{Kind: KindTransient, Message: fmt.Sprintf("unexpected job status %q", st.Status)}
		}

		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return "", fmt.Errorf("merge job did not finish: %w", ctx.Err())
		}
	}
}

func (c *Client) download(ctx context.Context, uri string) (io.ReadCloser, error) {
	get, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := c.transfer.Do(get)
	if err != nil {
		return nil, fmt.Errorf("failed to download rendered document: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download rendered document: %w", err)
	}
	return resp.Body, nil
}

// doJSON sends an authenticated API request. in is encoded as the body when
// non-nil, out receives the decoded response when non-nil and header receives
// the response headers when non-nil.
func (c *Client) doJSON(ctx context.Context, method, url string, in, out any, header *http.Header) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-API-Key", c.clientID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return tokenError(err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}
	if header != nil {
		*header = resp.Header
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// checkResponse maps a non-2xx response to a ServiceError.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(data))
	var apiErr struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &ServiceError{Kind: kindForStatus(resp.StatusCode), StatusCode: resp.StatusCode, Message: msg}
}
