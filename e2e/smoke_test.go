//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"cloudpico-aprs/internal/tnc"
)

const repoRootRel = ".."   // relative to ./e2e
const mainPkgRel = "./cmd" // main.go lives in cmd/

const mqttPort = nat.Port("1883/tcp")

func TestSmoke_LoopRecordReachesTNC(t *testing.T) {
	repoRoot := repoRootPath(t)
	brokerHost, brokerPort := startBroker(t)
	tncAddr, received := startFakeTNC(t)

	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=debug",
		"HTTP_ADDR="+addr,
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "aprs.db"),

		"MQTT_BROKER="+brokerHost,
		"MQTT_PORT="+brokerPort.Port(),
		"MQTT_TOPIC_PREFIX=e2e",

		"APRS_CALLSIGN=TEST",
		"APRS_SSID=1",
		"STATION_LATITUDE=52.1234",
		"STATION_LONGITUDE=21.5678",
		"APRS_BINDING=loop",
		"TX_INTERVAL=300",
		"TNC_ADDR="+tncAddr,
		"TNC_TIMEOUT=2s",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	client := &http.Client{Timeout: 2 * time.Second}
	waitForOK(t, client, "http://"+addr+"/healthz", 10*time.Second)

	pub := connectPublisher(t, brokerHost, brokerPort)
	payload := []byte(`{"dateTime": 1700000000, "usUnits": 1, "windDir": 90, "windSpeed": 10, "windGust": 0,
		"outTemp": 72, "outHumidity": 40, "barometer": 29.92}`)

	// The service subscribes asynchronously after connecting; repeats of the
	// same record are dropped by the interval gate.
	var got []byte
	deadline := time.After(20 * time.Second)
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
recv:
	for {
		select {
		case got = <-received:
			break recv
		case <-tick.C:
			pub.Publish("e2e/loop", 1, false, payload).WaitTimeout(2 * time.Second)
		case <-deadline:
			t.Fatal("fake TNC received nothing")
		}
	}

	if !bytes.HasPrefix(got, []byte(tnc.InitSequence)) {
		t.Fatalf("TNC stream does not start with the init sequence: %q", got)
	}
	frame := got[len(tnc.InitSequence):]
	if len(frame) < 3 {
		t.Fatalf("no frame after init sequence: % x", frame)
	}
	wantInfo := "/142213z5207.40N/02134.06E_090/010g000t072r000p000P000h40b10132 "
	if frame[0] != 0xc0 || frame[1] != 0x00 || frame[len(frame)-1] != 0xc0 {
		t.Errorf("frame not KISS framed: % x", frame)
	}
	if !bytes.HasSuffix(frame, append([]byte{0x03, 0xf0}, append([]byte(wantInfo), 0xc0)...)) {
		t.Errorf("frame info = %q, want %q", frame, wantInfo)
	}

	var status struct {
		Last struct {
			Status string `json:"status"`
			Packet string `json:"packet"`
		} `json:"last"`
		Recent []json.RawMessage `json:"recent"`
	}
	// The outcome is recorded once the TNC connection closes.
	statusDeadline := time.Now().Add(5 * time.Second)
	for {
		getJSON(t, client, "http://"+addr+"/status", &status)
		if len(status.Recent) > 0 || time.Now().After(statusDeadline) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if status.Last.Status != "sent" || status.Last.Packet != wantInfo {
		t.Errorf("status.last = %+v", status.Last)
	}
	if len(status.Recent) != 1 {
		t.Errorf("status.recent has %d entries, want 1", len(status.Recent))
	}

	stopServer(t, cmd)
}

func startBroker(t *testing.T) (string, nat.Port) {
	t.Helper()

	confDir := t.TempDir()
	conf := "listener 1883\nallow_anonymous true\n"
	if err := os.WriteFile(filepath.Join(confDir, "mosquitto.conf"), []byte(conf), 0o644); err != nil {
		t.Fatalf("write mosquitto.conf: %v", err)
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{string(mqttPort)},
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.Binds = append(hc.Binds, confDir+":/mosquitto/config:ro")
		},
		WaitingFor: wait.ForListeningPort(mqttPort).WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("broker host: %v", err)
	}
	port, err := c.MappedPort(ctx, mqttPort)
	if err != nil {
		t.Fatalf("broker port: %v", err)
	}
	return host, port
}

func connectPublisher(t *testing.T, host string, port nat.Port) mqtt.Client {
	t.Helper()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%s", host, port.Port()))
	opts.SetClientID("e2e-publisher")
	c := mqtt.NewClient(opts)

	token := c.Connect()
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("publisher connect: %v", token.Error())
	}
	t.Cleanup(func() { c.Disconnect(250) })
	return c
}

// startFakeTNC accepts connections and delivers each connection's bytes.
func startFakeTNC(t *testing.T) (string, <-chan []byte) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen fake TNC: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan []byte, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			b, _ := io.ReadAll(conn)
			_ = conn.Close()
			out <- b
		}
	}()
	return ln.Addr().String(), out
}

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status=%d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}
	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), "cloudpico-aprs")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}
	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("service not healthy after %s: %s", timeout, url)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("service did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("service exited non-zero: %v", err)
			}
			t.Fatalf("service wait error: %v", err)
		}
	}
}
