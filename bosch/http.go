package bosch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/OlliL/bosch-thermostat-mqtt/logging"
)

const (
	httpUserAgent = "TeleHeater/2.2.3"
	httpTimeout   = 30 * time.Second
)

// Transport fetches the decrypted JSON document behind a gateway path.
type Transport interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Close() error
}

// HTTPTransport talks to a gateway on the local network.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	cipher  *Cipher
	headers map[string]string
	logger  *slog.Logger
}

// NewHTTPTransport creates a transport for host, which is either an
// address or a full base URL. A nil client gets a default one.
func NewHTTPTransport(host string, cipher *Cipher, client *http.Client, logger *slog.Logger) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: httpTimeout}
	}
	baseURL := host
	if !strings.Contains(host, "://") {
		baseURL = "http://" + host
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		cipher:  cipher,
		headers: map[string]string{
			"User-Agent": httpUserAgent,
			"Accept":     "application/json",
		},
		logger: logger,
	}
}

func (t *HTTPTransport) Get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range t.headers {
		req.Header.Set(key, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, path); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	plain, err := t.cipher.Decrypt(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.logger.Log(ctx, logging.LevelTrace, "gateway response", "path", path, "body", string(plain))
	return plain, nil
}

func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
