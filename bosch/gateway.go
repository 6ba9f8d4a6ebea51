// Package bosch is a client for Bosch thermostat gateways (Nefit Easy, IVT,
// EasyControl). It reads the gateway's register tree over the local HTTP
// interface or through the vendor XMPP relay and decodes it into records.
package bosch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/OlliL/bosch-thermostat-mqtt/data/model"
)

const (
	uuidPath     = "/gateway/uuid"
	firmwarePath = "/gateway/versionFirmware"

	// maxScanDepth bounds how far a scan follows refEnum references.
	maxScanDepth = 10
)

// jsonAPI keeps numbers as json.Number so values are republished verbatim.
var jsonAPI = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

var smallScanRoots = map[model.ScanKind]string{
	model.ScanHeatingCircuits: "/heatingCircuits",
	model.ScanHotWater:        "/dhwCircuits",
	model.ScanSensors:         "/system/sensors",
	model.ScanRecordings:      "/recordings",
}

// Options describe how to reach one gateway.
type Options struct {
	Protocol Protocol
	Family   Family
	// Host is the gateway address for HTTP and its serial number for XMPP.
	Host     string
	Token    string
	Password string
	// Magic overrides the family's built-in key material.
	Magic []byte
	// HTTPClient is used by the HTTP transport; nil selects a default.
	HTTPClient *http.Client
}

// Gateway is one session with a thermostat gateway. The transport is
// established lazily by CheckConnection and released by Close.
type Gateway struct {
	family    Family
	dial      func(ctx context.Context) (Transport, error)
	transport Transport
	uuid      string
	firmware  string
	logger    *slog.Logger
	mu        sync.Mutex
}

// New validates opts and prepares a session. No network traffic happens
// until CheckConnection.
func New(opts Options, logger *slog.Logger) (*Gateway, error) {
	magic := opts.Family.Magic
	if len(opts.Magic) > 0 {
		magic = opts.Magic
	}
	token := strings.ReplaceAll(opts.Token, "-", "")
	cipher, err := NewCipher(token, opts.Password, magic)
	if err != nil {
		return nil, err
	}

	g := &Gateway{family: opts.Family, logger: logger}
	switch opts.Protocol {
	case ProtocolHTTP:
		if opts.Family.Name != IVT {
			logger.Warn("You're using HTTP protocol, but your device probably doesn't support it. Check for mistakes!",
				"device", opts.Family.Name)
		}
		g.dial = func(context.Context) (Transport, error) {
			return NewHTTPTransport(opts.Host, cipher, opts.HTTPClient, logger), nil
		}
	case ProtocolXMPP:
		g.dial = func(context.Context) (Transport, error) {
			t, err := DialXMPP(opts.Family, opts.Host, token, cipher, logger)
			if err != nil {
				return nil, err
			}
			return t, nil
		}
	default:
		return nil, fmt.Errorf("unknown protocol %q", opts.Protocol)
	}
	return g, nil
}

// CheckConnection connects if needed and reads the gateway UUID. It
// returns false with the cause when the gateway cannot be reached.
func (g *Gateway) CheckConnection(ctx context.Context) (bool, error) {
	if err := g.connect(ctx); err != nil {
		return false, err
	}

	r, err := g.RawQuery(ctx, uuidPath)
	if err != nil {
		return false, fmt.Errorf("read uuid: %w", err)
	}
	if !r.HasValue || r.Value == nil {
		return false, fmt.Errorf("%w: %s has no value", ErrRequestFailed, uuidPath)
	}
	g.uuid = fmt.Sprint(r.Value)

	if fw, err := g.RawQuery(ctx, firmwarePath); err == nil && fw.HasValue {
		g.firmware = fmt.Sprint(fw.Value)
	} else if err != nil {
		g.logger.Debug("firmware version unavailable", "error", err)
	}
	g.logger.Debug("gateway identified", "uuid", g.uuid, "firmware", g.firmware, "device", g.family.Name)
	return true, nil
}

func (g *Gateway) connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.transport != nil {
		return nil
	}
	t, err := g.dial(ctx)
	if err != nil {
		return err
	}
	g.transport = t
	return nil
}

// RawQuery fetches and decodes the record at path.
func (g *Gateway) RawQuery(ctx context.Context, path string) (model.Record, error) {
	g.mu.Lock()
	t := g.transport
	g.mu.Unlock()
	if t == nil {
		return model.Record{}, ErrConnectionClosed
	}

	data, err := t.Get(ctx, path)
	if err != nil {
		return model.Record{}, err
	}

	var raw map[string]interface{}
	if err := jsonAPI.Unmarshal(data, &raw); err != nil {
		return model.Record{}, fmt.Errorf("%w: %s: decode: %w", ErrRequestFailed, path, err)
	}
	return model.RecordFromMap(raw)
}

// RawScan walks every root of the family's register tree and returns one
// list of records per root.
func (g *Gateway) RawScan(ctx context.Context) (model.ScanResult, error) {
	result := make(model.NestedList, 0, len(g.family.ScanRoots))
	for _, root := range g.family.ScanRoots {
		var records []model.Record
		if err := g.walk(ctx, root, 0, &records); err != nil {
			return nil, err
		}
		result = append(result, records)
	}
	return result, nil
}

// SmallScan walks the subtree of a single subsystem.
func (g *Gateway) SmallScan(ctx context.Context, kind model.ScanKind) (model.ScanResult, error) {
	root, ok := smallScanRoots[kind]
	if !ok {
		return nil, fmt.Errorf("unknown scan kind %v", kind)
	}
	var records []model.Record
	if err := g.walk(ctx, root, 0, &records); err != nil {
		return nil, err
	}
	return model.List(records), nil
}

// walk appends the record at path and, for refEnum containers, everything
// below it. Paths the gateway refuses or does not know are skipped.
func (g *Gateway) walk(ctx context.Context, path string, depth int, out *[]model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r, err := g.RawQuery(ctx, path)
	if errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrForbidden) {
		g.logger.Debug("skipping inaccessible path", "path", path, "error", err)
		return nil
	}
	if err != nil {
		return err
	}
	*out = append(*out, r)

	if !r.IsContainer() {
		return nil
	}
	if depth >= maxScanDepth {
		g.logger.Warn("scan depth limit reached", "path", path)
		return nil
	}
	for _, ref := range r.References {
		if err := g.walk(ctx, ref.ID, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}

// Close tears the transport down immediately. It is safe to call more
// than once and before CheckConnection.
func (g *Gateway) Close() error {
	g.mu.Lock()
	t := g.transport
	g.transport = nil
	g.mu.Unlock()
	if t == nil {
		return nil
	}
	return t.Close()
}

// DeviceModel names the device family, used in topics.
func (g *Gateway) DeviceModel() string {
	return g.family.Name
}

// UUID is known after a successful CheckConnection.
func (g *Gateway) UUID() string {
	return g.uuid
}

// Firmware is the reported firmware version, if the gateway exposes it.
func (g *Gateway) Firmware() string {
	return g.firmware
}

// Device identifies the gateway for topic construction.
func (g *Gateway) Device() *model.Device {
	return model.NewDevice(g.family.Name, g.uuid)
}
