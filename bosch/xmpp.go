package bosch

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	xmpp "github.com/mattn/go-xmpp"

	"github.com/OlliL/bosch-thermostat-mqtt/logging"
)

const xmppPort = "5222"

// XMPPTransport reaches a gateway through the vendor's XMPP relay. Each
// request is a chat message carrying an HTTP-like GET; the gateway answers
// with an HTTP-like reply whose body is the encrypted document.
type XMPPTransport struct {
	client     *xmpp.Client
	send       func(xmpp.Chat) error
	gatewayJID string
	userAgent  string
	cipher     *Cipher
	logger     *slog.Logger

	// mu serialises requests; replies carry no correlation id, so the
	// replies owed to abandoned requests are skipped by count.
	mu        sync.Mutex
	abandoned int
	replies   chan string
	done      chan struct{}
	recvErr   error
	once      sync.Once
}

// DialXMPP logs in as the contact account for serial and starts reading
// replies from the gateway.
func DialXMPP(family Family, serial, token string, cipher *Cipher, logger *slog.Logger) (*XMPPTransport, error) {
	opts := xmpp.Options{
		Host:     family.XMPPHost + ":" + xmppPort,
		User:     family.ContactPrefix + serial + "@" + family.XMPPHost,
		Password: family.AccessPrefix + token,
		NoTLS:    true,
		StartTLS: true,
		TLSConfig: &tls.Config{
			ServerName: family.XMPPHost,
			MinVersion: tls.VersionTLS12,
		},
		Session: true,
	}
	logger.Debug("xmpp connecting", "host", opts.Host, "user", opts.User)

	client, err := opts.NewClient()
	if err != nil {
		return nil, fmt.Errorf("xmpp login: %w", err)
	}

	t := newXMPPTransport(client, family.GatewayPrefix+serial+"@"+family.XMPPHost, family.UserAgent, cipher, logger)
	go t.readLoop()
	return t, nil
}

func newXMPPTransport(client *xmpp.Client, gatewayJID, userAgent string, cipher *Cipher, logger *slog.Logger) *XMPPTransport {
	return &XMPPTransport{
		client: client,
		send: func(chat xmpp.Chat) error {
			_, err := client.Send(chat)
			return err
		},
		gatewayJID: gatewayJID,
		userAgent:  userAgent,
		cipher:     cipher,
		logger:     logger,
		replies:    make(chan string),
		done:       make(chan struct{}),
	}
}

func (t *XMPPTransport) readLoop() {
	defer close(t.replies)
	for {
		stanza, err := t.client.Recv()
		if err != nil {
			t.recvErr = err
			return
		}
		chat, ok := stanza.(xmpp.Chat)
		if !ok || !strings.HasPrefix(chat.Remote, t.gatewayJID) {
			continue
		}
		select {
		case t.replies <- chat.Text:
		case <-t.done:
			return
		}
	}
}

func (t *XMPPTransport) Get(ctx context.Context, path string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.send(xmpp.Chat{
		Remote: t.gatewayJID,
		Type:   "chat",
		Text:   requestBody(path, t.userAgent),
	})
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			t.abandoned++
			return nil, ctx.Err()
		case text, ok := <-t.replies:
			if !ok {
				return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, t.recvErr)
			}
			if t.abandoned > 0 {
				t.abandoned--
				t.logger.Debug("discarding late xmpp reply", "path", path)
				continue
			}
			t.logger.Log(ctx, logging.LevelTrace, "xmpp reply", "path", path, "body", text)
			return t.decodeReply(path, text)
		}
	}
}

func (t *XMPPTransport) decodeReply(path, text string) ([]byte, error) {
	code, body, err := parseReply(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := statusError(code, path); err != nil {
		return nil, err
	}
	plain, err := t.cipher.Decrypt([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plain, nil
}

// Close drops the XMPP session immediately, abandoning a request in flight.
func (t *XMPPTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.done)
		err = t.client.Close()
	})
	return err
}

func requestBody(path, userAgent string) string {
	return "GET " + path + " HTTP/1.1\rUser-Agent: " + userAgent + "\r\r"
}

// parseReply splits "HTTP/1.0 200 OK\n<headers>\n\n<body>" into status
// code and body. Line endings may be \r, \n or both.
func parseReply(text string) (int, string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	scanner := bufio.NewScanner(strings.NewReader(text))
	if !scanner.Scan() {
		return 0, "", fmt.Errorf("%w: empty reply", ErrRequestFailed)
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0, "", fmt.Errorf("%w: malformed status line %q", ErrRequestFailed, scanner.Text())
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, "", fmt.Errorf("%w: malformed status code %q", ErrRequestFailed, fields[1])
	}

	body := ""
	if i := strings.Index(text, "\n\n"); i >= 0 {
		body = strings.TrimSpace(text[i+2:])
	}
	return code, body, nil
}
