package bosch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/OlliL/bosch-thermostat-mqtt/data/model"
	"github.com/OlliL/bosch-thermostat-mqtt/logging"
)

type fakeTransport struct {
	docs     map[string]string
	requests []string
	closed   int
}

func (f *fakeTransport) Get(_ context.Context, path string) ([]byte, error) {
	f.requests = append(f.requests, path)
	if path == "/system/locked" {
		return nil, statusError(403, path)
	}
	doc, ok := f.docs[path]
	if !ok {
		return nil, statusError(404, path)
	}
	return []byte(doc), nil
}

func (f *fakeTransport) Close() error {
	f.closed++
	return nil
}

func testDocs() map[string]string {
	return map[string]string{
		"/gateway/uuid":            `{"id":"/gateway/uuid","type":"stringValue","value":"123456789"}`,
		"/gateway/versionFirmware": `{"id":"/gateway/versionFirmware","type":"stringValue","value":"04.08.02"}`,
		"/gateway": `{"id":"/gateway","type":"refEnum","references":[
			{"id":"/gateway/uuid","uri":"http://127.0.0.1/gateway/uuid"},
			{"id":"/gateway/versionFirmware","uri":"http://127.0.0.1/gateway/versionFirmware"}]}`,
		"/system": `{"id":"/system","type":"refEnum","references":[
			{"id":"/system/sensors","uri":""},
			{"id":"/system/locked","uri":""},
			{"id":"/system/gone","uri":""}]}`,
		"/system/sensors": `{"id":"/system/sensors","type":"refEnum","references":[
			{"id":"/system/sensors/outdoorTemperatures/t1","uri":""}]}`,
		"/system/sensors/outdoorTemperatures/t1": `{"id":"/system/sensors/outdoorTemperatures/t1","type":"floatValue","writeable":0,"recordable":1,"value":7.5,"unitOfMeasure":"C"}`,
		"/dhwCircuits": `{"id":"/dhwCircuits","type":"refEnum","references":[{"id":"/dhwCircuits/dhw1","uri":""}]}`,
		"/dhwCircuits/dhw1": `{"id":"/dhwCircuits/dhw1","type":"refEnum","references":[{"id":"/dhwCircuits/dhw1/actualTemp","uri":""}]}`,
		"/dhwCircuits/dhw1/actualTemp": `{"id":"/dhwCircuits/dhw1/actualTemp","type":"floatValue","value":52.0,"unitOfMeasure":"C"}`,
	}
}

// newWithTransport wraps an already established transport.
func newWithTransport(family Family, t Transport, logger *slog.Logger) *Gateway {
	return &Gateway{
		family:    family,
		transport: t,
		logger:    logger,
		dial: func(context.Context) (Transport, error) {
			return nil, ErrConnectionClosed
		},
	}
}

func newTestGateway(t *testing.T) (*Gateway, *fakeTransport) {
	t.Helper()
	family, err := LookupFamily(NEFIT)
	if err != nil {
		t.Fatal(err)
	}
	family.ScanRoots = []string{"/gateway", "/system", "/dhwCircuits", "/heatSources"}
	ft := &fakeTransport{docs: testDocs()}
	return newWithTransport(family, ft, logging.Discard()), ft
}

func recordIDs(records []model.Record) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGateway_CheckConnection(t *testing.T) {
	g, _ := newTestGateway(t)

	ok, err := g.CheckConnection(context.Background())
	if !ok || err != nil {
		t.Fatalf("CheckConnection() = %v, %v", ok, err)
	}
	if g.UUID() != "123456789" {
		t.Errorf("UUID() = %q, want 123456789", g.UUID())
	}
	if g.Firmware() != "04.08.02" {
		t.Errorf("Firmware() = %q", g.Firmware())
	}
	if got := g.Device().Topic("/gateway/uuid"); got != "bosch/NEFIT-123456789/gateway/uuid" {
		t.Errorf("Device().Topic() = %q", got)
	}
}

func TestGateway_CheckConnectionFails(t *testing.T) {
	g, ft := newTestGateway(t)
	delete(ft.docs, "/gateway/uuid")

	ok, err := g.CheckConnection(context.Background())
	if ok {
		t.Fatal("CheckConnection() = true, want false")
	}
	if !errors.Is(err, ErrPathNotFound) {
		t.Errorf("CheckConnection() error = %v, want ErrPathNotFound", err)
	}
}

func TestGateway_RawQuery(t *testing.T) {
	g, _ := newTestGateway(t)

	r, err := g.RawQuery(context.Background(), "/system/sensors/outdoorTemperatures/t1")
	if err != nil {
		t.Fatalf("RawQuery() error = %v", err)
	}
	if !r.IsLeaf() || r.Recordable != 1 || r.UnitOfMeasure != "C" {
		t.Errorf("RawQuery() = %+v", r)
	}
	n, ok := r.Value.(json.Number)
	if !ok {
		t.Fatalf("Value type = %T, want json.Number", r.Value)
	}
	if n.String() != "7.5" {
		t.Errorf("Value = %s, want 7.5", n)
	}

	if _, err := g.RawQuery(context.Background(), "/nowhere"); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("RawQuery(/nowhere) error = %v, want ErrPathNotFound", err)
	}
}

func TestGateway_RawQueryKeepsNumberText(t *testing.T) {
	g, _ := newTestGateway(t)

	r, err := g.RawQuery(context.Background(), "/dhwCircuits/dhw1/actualTemp")
	if err != nil {
		t.Fatalf("RawQuery() error = %v", err)
	}
	if n, _ := r.Value.(json.Number); n.String() != "52.0" {
		t.Errorf("Value = %v, want 52.0 verbatim", r.Value)
	}
}

func TestGateway_RawScan(t *testing.T) {
	g, _ := newTestGateway(t)

	res, err := g.RawScan(context.Background())
	if err != nil {
		t.Fatalf("RawScan() error = %v", err)
	}
	nested, ok := res.(model.NestedList)
	if !ok {
		t.Fatalf("RawScan() type = %T, want NestedList", res)
	}
	if len(nested) != 4 {
		t.Fatalf("RawScan() roots = %d, want 4", len(nested))
	}

	want := [][]string{
		{"/gateway", "/gateway/uuid", "/gateway/versionFirmware"},
		{"/system", "/system/sensors", "/system/sensors/outdoorTemperatures/t1"},
		{"/dhwCircuits", "/dhwCircuits/dhw1", "/dhwCircuits/dhw1/actualTemp"},
		{},
	}
	for i := range want {
		if got := recordIDs(nested[i]); !equalStrings(got, want[i]) {
			t.Errorf("root %d = %v, want %v", i, got, want[i])
		}
	}

	leaves := recordIDs(model.Flatten(res))
	wantLeaves := []string{
		"/gateway/uuid",
		"/gateway/versionFirmware",
		"/system/sensors/outdoorTemperatures/t1",
		"/dhwCircuits/dhw1/actualTemp",
	}
	if !equalStrings(leaves, wantLeaves) {
		t.Errorf("Flatten(RawScan()) = %v, want %v", leaves, wantLeaves)
	}
}

func TestGateway_SmallScan(t *testing.T) {
	g, _ := newTestGateway(t)

	res, err := g.SmallScan(context.Background(), model.ScanHotWater)
	if err != nil {
		t.Fatalf("SmallScan() error = %v", err)
	}
	list, ok := res.(model.List)
	if !ok {
		t.Fatalf("SmallScan() type = %T, want List", res)
	}
	want := []string{"/dhwCircuits", "/dhwCircuits/dhw1", "/dhwCircuits/dhw1/actualTemp"}
	if got := recordIDs(list); !equalStrings(got, want) {
		t.Errorf("SmallScan(DHW) = %v, want %v", got, want)
	}

	res, err = g.SmallScan(context.Background(), model.ScanSensors)
	if err != nil {
		t.Fatalf("SmallScan(SENSORS) error = %v", err)
	}
	if model.Len(res) != 2 {
		t.Errorf("SmallScan(SENSORS) len = %d, want 2", model.Len(res))
	}
}

func TestGateway_ScanStopsOnCancel(t *testing.T) {
	g, ft := newTestGateway(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.RawScan(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RawScan() error = %v, want context.Canceled", err)
	}
	if len(ft.requests) != 0 {
		t.Errorf("requests after cancel = %v", ft.requests)
	}
}

func TestGateway_ScanDepthLimit(t *testing.T) {
	g, ft := newTestGateway(t)
	ft.docs["/loop"] = `{"id":"/loop","type":"refEnum","references":[{"id":"/loop","uri":""}]}`
	g.family.ScanRoots = []string{"/loop"}

	res, err := g.RawScan(context.Background())
	if err != nil {
		t.Fatalf("RawScan() error = %v", err)
	}
	if got := model.Len(res); got != maxScanDepth+1 {
		t.Errorf("records = %d, want %d", got, maxScanDepth+1)
	}
}

func TestGateway_Close(t *testing.T) {
	g, ft := newTestGateway(t)

	if err := g.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if ft.closed != 1 {
		t.Errorf("transport closed %d times, want 1", ft.closed)
	}
	if _, err := g.RawQuery(context.Background(), "/gateway/uuid"); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("RawQuery() after Close error = %v, want ErrConnectionClosed", err)
	}
}

func TestNew_Validation(t *testing.T) {
	easy, _ := LookupFamily(EASYCONTROL)
	_, err := New(Options{Protocol: ProtocolXMPP, Family: easy, Host: "1", Token: "t"}, logging.Discard())
	if !errors.Is(err, ErrNoKeyMaterial) {
		t.Errorf("New(EASYCONTROL) error = %v, want ErrNoKeyMaterial", err)
	}

	g, err := New(Options{Protocol: ProtocolXMPP, Family: easy, Host: "1", Token: "t", Magic: []byte{1, 2, 3}}, logging.Discard())
	if err != nil || g == nil {
		t.Errorf("New(EASYCONTROL, magic) = %v, %v", g, err)
	}

	ivt, _ := LookupFamily(IVT)
	if _, err := New(Options{Protocol: "FTP", Family: ivt, Host: "1", Token: "t"}, logging.Discard()); err == nil {
		t.Error("New(FTP) should fail")
	}
}
