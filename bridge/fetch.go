package bridge

import (
	"context"
	"fmt"

	"github.com/OlliL/bosch-thermostat-mqtt/data/model"
)

// Gateway is the part of a gateway session the pipeline needs.
// *bosch.Gateway implements it.
type Gateway interface {
	CheckConnection(ctx context.Context) (bool, error)
	RawScan(ctx context.Context) (model.ScanResult, error)
	SmallScan(ctx context.Context, kind model.ScanKind) (model.ScanResult, error)
	RawQuery(ctx context.Context, path string) (model.Record, error)
	Device() *model.Device
	Close() error
}

// Fetcher produces one cycle's result set.
type Fetcher interface {
	Fetch(ctx context.Context, gw Gateway) (model.ScanResult, error)
}

// ScanFetcher reads the whole register map, or a single subsystem when
// Small is set.
type ScanFetcher struct {
	Small bool
	Kind  model.ScanKind
}

func (f ScanFetcher) Fetch(ctx context.Context, gw Gateway) (model.ScanResult, error) {
	if f.Small {
		return gw.SmallScan(ctx, f.Kind)
	}
	return gw.RawScan(ctx)
}

// QueryFetcher reads a fixed list of paths one after another.
type QueryFetcher struct {
	Paths []string
}

func (f QueryFetcher) Fetch(ctx context.Context, gw Gateway) (model.ScanResult, error) {
	records := make([]model.Record, 0, len(f.Paths))
	for _, path := range f.Paths {
		r, err := gw.RawQuery(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", path, err)
		}
		records = append(records, r)
	}
	return model.NestedList{records}, nil
}
