package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/relaydesk/relay/internal/secret"
	"go.uber.org/zap"
)

// APICallerName is the registry name of the HTTP API caller tool.
const APICallerName = "api_caller"

const defaultAPITimeoutSec = 30

// placeholderRe matches unresolved {param} segments left in a path template.
var placeholderRe = regexp.MustCompile(`\{[^{}]+\}`)

// APICaller invokes operator-configured HTTP endpoints on behalf of an
// agent. Endpoints, allowed methods, and authentication live in the merged
// tool configuration; the model supplies only the endpoint name and call
// arguments.
type APICaller struct {
	client  *http.Client
	secrets *secret.Codec
	logger  *zap.Logger
}

// NewAPICaller creates the API caller tool. secrets may be nil when no
// encrypted credentials are in use.
func NewAPICaller(secrets *secret.Codec, logger *zap.Logger) *APICaller {
	return &APICaller{
		client:  &http.Client{},
		secrets: secrets,
		logger:  logger,
	}
}

func (c *APICaller) Name() string { return APICallerName }

func (c *APICaller) Description() string {
	return "Call a configured external HTTP API endpoint by name with path, query, and body parameters"
}

// Validate requires the endpoint name the model wants to call.
func (c *APICaller) Validate(params map[string]any) error {
	if cfgString(params, "endpoint_name") == "" {
		return fmt.Errorf("endpoint_name is required")
	}
	return nil
}

// Execute resolves the named endpoint, builds the request, applies
// authentication, and returns the status, headers, and parsed body.
func (c *APICaller) Execute(ctx context.Context, params, config map[string]any) (any, error) {
	endpointName := cfgString(params, "endpoint_name")

	endpoints := cfgMap(config, "endpoints")
	ep := cfgMap(endpoints, endpointName)
	if ep == nil {
		return nil, fmt.Errorf("endpoint %q is not configured", endpointName)
	}

	baseURL := cfgString(ep, "base_url")
	if baseURL == "" {
		return nil, fmt.Errorf("endpoint %q has no base_url", endpointName)
	}
	allowed := cfgStringSlice(ep, "methods")

	method := strings.ToUpper(cfgString(params, "method"))
	if method == "" {
		if len(allowed) > 0 {
			method = strings.ToUpper(allowed[0])
		} else {
			method = http.MethodGet
		}
	}
	if len(allowed) > 0 && !containsFold(allowed, method) {
		return nil, fmt.Errorf("method %s is not allowed for endpoint %q", method, endpointName)
	}

	path, err := substitutePath(cfgString(ep, "path"), stringify(cfgMap(params, "path_params")))
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	query := u.Query()
	for k, v := range stringify(cfgMap(params, "query_params")) {
		query.Set(k, v)
	}

	var body io.Reader
	if bodyData, ok := params["body_data"]; ok && method != http.MethodGet && method != http.MethodHead {
		encoded, merr := json.Marshal(bodyData)
		if merr != nil {
			return nil, fmt.Errorf("encode body: %w", merr)
		}
		body = bytes.NewReader(encoded)
	}

	timeout := time.Duration(cfgInt(config, "timeout_sec", defaultAPITimeoutSec)) * time.Second
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range stringify(cfgMap(params, "headers")) {
		req.Header.Set(k, v)
	}
	if err := c.applyAuth(req, query, cfgMap(config, "auth")); err != nil {
		return nil, err
	}
	req.URL.RawQuery = query.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call endpoint %q: %w", endpointName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	data := parseBody(resp.Header.Get("Content-Type"), respBody)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("endpoint %q returned status %d: %s",
			endpointName, resp.StatusCode, snippet(respBody, fallbackSnippetLength))
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"data":        data,
	}, nil
}

// applyAuth applies the configured authentication descriptor. Credentials
// may be stored encrypted; they are decrypted just before use.
func (c *APICaller) applyAuth(req *http.Request, query url.Values, auth map[string]any) error {
	if auth == nil {
		return nil
	}
	switch authType := cfgString(auth, "type"); authType {
	case "":
		return nil
	case "bearer_token":
		token, err := c.credential(cfgString(auth, "token"))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case "api_key":
		key, err := c.credential(cfgString(auth, "key"))
		if err != nil {
			return err
		}
		// Some providers want the key as a query parameter, not a header.
		if qp := cfgString(auth, "query_param"); qp != "" {
			query.Set(qp, key)
			return nil
		}
		header := cfgString(auth, "header_name")
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, key)
	case "cookie":
		cookie, err := c.credential(cfgString(auth, "cookie"))
		if err != nil {
			return err
		}
		req.Header.Set("Cookie", cookie)
	default:
		return fmt.Errorf("unsupported auth type %q", authType)
	}
	return nil
}

func (c *APICaller) credential(value string) (string, error) {
	if !strings.HasPrefix(value, secret.Prefix) {
		return value, nil
	}
	if c.secrets == nil {
		return "", fmt.Errorf("encrypted credential but no decryption key configured")
	}
	return c.secrets.Decrypt(value)
}

// substitutePath fills {param} placeholders from pathParams and fails when
// any placeholder remains unresolved.
func substitutePath(path string, pathParams map[string]string) (string, error) {
	for k, v := range pathParams {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}
	if leftover := placeholderRe.FindString(path); leftover != "" {
		return "", fmt.Errorf("unresolved path parameter %s", leftover)
	}
	return path, nil
}

// parseBody decodes JSON bodies and returns raw text for everything else.
func parseBody(contentType string, body []byte) any {
	if strings.Contains(contentType, "json") {
		var parsed any
		if err := json.Unmarshal(body, &parsed); err == nil {
			return parsed
		}
	}
	return string(body)
}

func stringify(m map[string]any) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = trimFloat(val)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

// trimFloat renders JSON numbers without a spurious trailing ".000000".
func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}

func snippet(data []byte, max int) string {
	if len(data) <= max {
		return string(data)
	}
	return string(data[:max]) + "..."
}
