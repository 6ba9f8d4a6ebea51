package bridge

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/OlliL/bosch-thermostat-mqtt/logging"
)

// closedPort returns a local port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, port, _ := net.SplitHostPort(l.Addr().String())
	l.Close()
	p, _ := strconv.Atoi(port)
	return p
}

// silentBroker accepts TCP connections and never answers, so an MQTT
// CONNECT is never acknowledged.
func silentBroker(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
			go io.Copy(io.Discard, conn)
		}
	}()
	t.Cleanup(func() {
		l.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			conn.Close()
		}
	})

	_, port, _ := net.SplitHostPort(l.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

func TestBrokerOptions(t *testing.T) {
	o := BrokerOptions{Host: "broker.local", Port: 1883, Username: "user"}
	if o.address() != "broker.local:1883" {
		t.Errorf("address() = %q", o.address())
	}
	if o.hasCredentials() {
		t.Error("hasCredentials() = true with only a username")
	}
	o.Password = "secret"
	if !o.hasCredentials() {
		t.Error("hasCredentials() = false with username and password")
	}
}

func TestPahoConnector_Refused(t *testing.T) {
	c := NewPahoConnector(BrokerOptions{Host: "127.0.0.1", Port: closedPort(t)}, logging.Discard())
	c.timeout = time.Second

	session, err := c.Connect(context.Background())
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if session != nil {
		t.Error("Connect() returned a session on failure")
	}
}

func TestAutopahoConnector_Timeout(t *testing.T) {
	c := NewAutopahoConnector(BrokerOptions{Host: "127.0.0.1", Port: closedPort(t)}, logging.Discard())
	c.timeout = 300 * time.Millisecond

	start := time.Now()
	session, err := c.Connect(context.Background())
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if session != nil {
		t.Error("Connect() returned a session on failure")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Connect() took %s, want about %s", elapsed, c.timeout)
	}
}

func TestConnectors_NoConnack(t *testing.T) {
	const timeout = 300 * time.Millisecond

	tests := []struct {
		name    string
		connect func(port int) (Session, error)
	}{
		{"paho", func(port int) (Session, error) {
			c := NewPahoConnector(BrokerOptions{Host: "127.0.0.1", Port: port}, logging.Discard())
			c.timeout = timeout
			return c.Connect(context.Background())
		}},
		{"autopaho", func(port int) (Session, error) {
			c := NewAutopahoConnector(BrokerOptions{Host: "127.0.0.1", Port: port}, logging.Discard())
			c.timeout = timeout
			return c.Connect(context.Background())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := silentBroker(t)

			start := time.Now()
			session, err := tt.connect(port)
			elapsed := time.Since(start)

			if !errors.Is(err, ErrConnectionFailed) {
				t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
			}
			if session != nil {
				t.Error("Connect() returned a session on failure")
			}
			if elapsed < timeout/2 || elapsed > 5*time.Second {
				t.Errorf("Connect() took %s, want about %s", elapsed, timeout)
			}
		})
	}
}

func TestConnectTimeoutDefault(t *testing.T) {
	if connectTimeout != 5*time.Second {
		t.Errorf("connectTimeout = %s, want 5s", connectTimeout)
	}
	if c := NewPahoConnector(BrokerOptions{}, logging.Discard()); c.timeout != connectTimeout {
		t.Errorf("paho timeout = %s, want %s", c.timeout, connectTimeout)
	}
	if c := NewAutopahoConnector(BrokerOptions{}, logging.Discard()); c.timeout != connectTimeout {
		t.Errorf("autopaho timeout = %s, want %s", c.timeout, connectTimeout)
	}
}
