package model

import (
	"fmt"
	"strings"
)

// ScanKind selects the subsystem fetched by a small scan.
type ScanKind int

const (
	ScanHeatingCircuits ScanKind = iota
	ScanHotWater
	ScanSensors
	ScanRecordings
)

func (sk ScanKind) String() string {
	return [...]string{"HC", "DHW", "SENSORS", "RECORDINGS"}[sk]
}

// ScanKinds lists every kind in option order.
func ScanKinds() []ScanKind {
	return []ScanKind{ScanHeatingCircuits, ScanHotWater, ScanSensors, ScanRecordings}
}

// ParseScanKind matches s case-insensitively against the kind names.
func ParseScanKind(s string) (ScanKind, error) {
	for _, sk := range ScanKinds() {
		if strings.EqualFold(strings.TrimSpace(s), sk.String()) {
			return sk, nil
		}
	}
	return 0, fmt.Errorf("unknown scan kind %q (valid: HC, DHW, SENSORS, RECORDINGS)", s)
}
