package zeromq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/openpnp-go/controller/pkg/config"
	customlog "github.com/openpnp-go/controller/pkg/log"
	"github.com/pebbe/zmq4"
)

// TestRequestClient sends requests to a running service over a REQ socket,
// the way a host application would
func TestRequestClient(t *testing.T) {
	bootstrap := &config.BootstrapConfig{}
	bootstrap.ZeroMQ.RequestBindAddress = "tcp://127.0.0.1:*"
	bootstrap.ZeroMQ.PublishBindAddress = "tcp://127.0.0.1:*"

	service, err := NewZeroMQService(bootstrap, customlog.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create ZeroMQ service: %v", err)
	}
	endpoint := service.RequestEndpoint()
	if endpoint == "" {
		t.Fatalf("Expected a resolved request endpoint")
	}

	RegisterConfigHandlers(service, staticSource{cfg: testMachineConfig()}, customlog.NewNopLogger())
	if err := service.Start(); err != nil {
		t.Fatalf("Failed to start service: %v", err)
	}
	defer service.Stop()

	socket, err := zmq4.NewSocket(zmq4.REQ)
	if err != nil {
		t.Fatalf("Failed to create REQ socket: %v", err)
	}
	defer socket.Close()
	socket.SetLinger(0)
	socket.SetRcvtimeo(5 * time.Second)

	if err := socket.Connect(endpoint); err != nil {
		t.Fatalf("Failed to connect to %s: %v", endpoint, err)
	}

	roundTrip := func(msg ZeroMQMessage) ZeroMQMessage {
		t.Helper()
		reqData, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("Failed to marshal request: %v", err)
		}
		if _, err := socket.SendBytes(reqData, 0); err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		respData, err := socket.RecvBytes(0)
		if err != nil {
			t.Fatalf("Failed to receive response: %v", err)
		}
		var resp ZeroMQMessage
		if err := json.Unmarshal(respData, &resp); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		return resp
	}

	resp := roundTrip(ZeroMQMessage{Type: MsgTypeConfigRequest, Timestamp: float64(time.Now().Unix())})
	if resp.Type != MsgTypeConfigResponse {
		t.Fatalf("Expected %s, got %s", MsgTypeConfigResponse, resp.Type)
	}

	resp = roundTrip(ZeroMQMessage{Type: "JOG"})
	if resp.Type != MsgTypeError {
		t.Fatalf("Expected %s, got %s", MsgTypeError, resp.Type)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected error data, got %T", resp.Data)
	}
	if code := data["code"].(float64); code != 400 {
		t.Errorf("Expected code 400, got %v", code)
	}

	if err := service.PublishJSON(TopicConfigNotification, MsgTypeConfigUpdated, nil); err != nil {
		t.Errorf("Publish on a running service failed: %v", err)
	}
}

func TestPublishAfterStop(t *testing.T) {
	bootstrap := &config.BootstrapConfig{}
	bootstrap.ZeroMQ.RequestBindAddress = "tcp://127.0.0.1:*"
	bootstrap.ZeroMQ.PublishBindAddress = "tcp://127.0.0.1:*"

	service, err := NewZeroMQService(bootstrap, customlog.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create ZeroMQ service: %v", err)
	}
	if err := service.Start(); err != nil {
		t.Fatalf("Failed to start service: %v", err)
	}
	service.Stop()

	if err := service.PublishMessage(TopicLocation, []byte{1}); err != ErrServiceClosed {
		t.Errorf("Expected ErrServiceClosed, got %v", err)
	}
}
