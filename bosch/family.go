package bosch

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	NEFIT       = "NEFIT"
	IVT         = "IVT"
	EASYCONTROL = "EASYCONTROL"
)

// Protocol is the transport used to reach a gateway.
type Protocol string

const (
	ProtocolXMPP Protocol = "XMPP"
	ProtocolHTTP Protocol = "HTTP"
)

// ParseProtocol accepts XMPP or HTTP, case-sensitively.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(s) {
	case ProtocolXMPP, ProtocolHTTP:
		return Protocol(s), nil
	}
	return "", fmt.Errorf("unknown protocol %q (valid: XMPP, HTTP)", s)
}

// Family holds the per-device-family connection constants.
type Family struct {
	Name          string
	XMPPHost      string
	ContactPrefix string
	GatewayPrefix string
	AccessPrefix  string
	UserAgent     string
	// Magic is the fixed half of the AES key material. Empty when the
	// family has none built in and the user must supply it.
	Magic []byte
	// ScanRoots are the top-level paths walked by a raw scan.
	ScanRoots []string
}

var commonRoots = []string{
	"/gateway",
	"/system",
	"/heatingCircuits",
	"/dhwCircuits",
	"/solarCircuits",
	"/heatSources",
	"/notifications",
	"/recordings",
}

var families = map[string]Family{
	NEFIT: {
		Name:          NEFIT,
		XMPPHost:      "wa2-mz36-qrmzh6.bosch.de",
		ContactPrefix: "rrccontact_",
		GatewayPrefix: "rrcgateway_",
		AccessPrefix:  "Ct7ZR03b_",
		UserAgent:     "NefitEasy",
		Magic:         mustHex("58f18d70f667c9c79ef7de435bf0f9b1553bbb6e61816212ab80e5b0d351fbb1"),
		ScanRoots:     commonRoots,
	},
	IVT: {
		Name:          IVT,
		XMPPHost:      "wa2-mz36-qrmzh6.bosch.de",
		ContactPrefix: "rrc2contact_",
		GatewayPrefix: "rrc2gateway_",
		AccessPrefix:  "Ct7ZR03b_",
		UserAgent:     "TeleHeater",
		Magic:         mustHex("867845e97c4e29dce522b9a7d3a3e07b152bffadddbed7f5ffd842e9895ad1e4"),
		ScanRoots:     append([]string{"/application"}, commonRoots...),
	},
	EASYCONTROL: {
		Name:          EASYCONTROL,
		XMPPHost:      "xmpp.rrcng.ticx.boschtt.net",
		ContactPrefix: "rrc2contact_",
		GatewayPrefix: "rrc2gateway_",
		AccessPrefix:  "C42i9NNp_",
		UserAgent:     "TeleHeater",
		ScanRoots:     append([]string{"/devices", "/zones"}, commonRoots...),
	},
}

// LookupFamily returns the family for name, case-insensitively.
func LookupFamily(name string) (Family, error) {
	f, ok := families[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Family{}, fmt.Errorf("unknown device %q (valid: NEFIT, IVT, EASYCONTROL)", name)
	}
	return f, nil
}

// ParseMagic decodes a user-supplied hex key override.
func ParseMagic(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decode magic: %w", err)
	}
	return b, nil
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
