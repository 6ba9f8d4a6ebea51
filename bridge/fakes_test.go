package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/OlliL/bosch-thermostat-mqtt/data/model"
)

type published struct {
	topic   string
	payload string
}

type fakeSession struct {
	mu           sync.Mutex
	messages     []published
	failOn       string
	disconnected int
}

func (s *fakeSession) Publish(_ context.Context, topic string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if topic == s.failOn {
		return errors.New("broker went away")
	}
	s.messages = append(s.messages, published{topic, string(payload)})
	return nil
}

func (s *fakeSession) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected++
}

type fakeConnector struct {
	session  *fakeSession
	err      error
	connects int
}

func (c *fakeConnector) Connect(context.Context) (Session, error) {
	c.connects++
	if c.err != nil {
		return nil, c.err
	}
	return c.session, nil
}

type fakeGateway struct {
	ok       bool
	checkErr error
	records  map[string]model.Record
	scan     model.ScanResult
	scanErr  error
	kinds    []model.ScanKind
	queries  []string
	scans    int
	closed   int
	onScan   func()
}

func (g *fakeGateway) CheckConnection(context.Context) (bool, error) {
	return g.ok, g.checkErr
}

func (g *fakeGateway) RawScan(context.Context) (model.ScanResult, error) {
	g.scans++
	if g.onScan != nil {
		g.onScan()
	}
	return g.scan, g.scanErr
}

func (g *fakeGateway) SmallScan(_ context.Context, kind model.ScanKind) (model.ScanResult, error) {
	g.kinds = append(g.kinds, kind)
	return g.scan, g.scanErr
}

func (g *fakeGateway) RawQuery(_ context.Context, path string) (model.Record, error) {
	g.queries = append(g.queries, path)
	r, ok := g.records[path]
	if !ok {
		return model.Record{}, errors.New("not found")
	}
	return r, nil
}

func (g *fakeGateway) Device() *model.Device {
	return model.NewDevice("IVT", "123456789")
}

func (g *fakeGateway) Close() error {
	g.closed++
	return nil
}
