package zeromq

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/openpnp-go/controller/pkg/config"
	"github.com/openpnp-go/controller/pkg/driver"
	"github.com/openpnp-go/controller/pkg/geometry"
	customlog "github.com/openpnp-go/controller/pkg/log"
	"github.com/openpnp-go/controller/pkg/machine"
	"github.com/openpnp-go/controller/pkg/processing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	cfg *config.Config
}

func (s staticSource) GetCurrentConfig() *config.Config { return s.cfg }

type published struct {
	topic       string
	messageType string
	data        interface{}
	raw         []byte
}

type capturePublisher struct {
	mu       sync.Mutex
	messages []published
}

func (c *capturePublisher) PublishMessage(topic string, message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, raw: message})
	return nil
}

func (c *capturePublisher) PublishJSON(topic string, messageType string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, messageType: messageType, data: data})
	return nil
}

func testMachineConfig() *config.Config {
	return &config.Config{
		Version:   "1.0",
		ConfigID:  "bench",
		MachineID: "m1",
		Units:     "mm",
		Heads: []config.HeadConfig{{
			ID:        "H1",
			Nozzles:   []config.MountableConfig{{ID: "N1", Offset: geometry.Location{X: 1, Y: 2}}},
			Actuators: []config.MountableConfig{{ID: "A1"}},
		}},
	}
}

func newCommandRig(t *testing.T) *MessageDispatcher {
	t.Helper()
	logger := customlog.NewNopLogger()

	reg := machine.NewRegistry(logger)
	require.NoError(t, reg.LoadFromConfig(testMachineConfig()))

	director := processing.NewDirector(driver.NewNullDriver(driver.WithEnableGating()), logger, reg, nil)
	director.Start()
	t.Cleanup(director.Stop)

	dispatcher := NewMessageDispatcher(logger)
	RegisterCommandHandlers(dispatcher, reg, director, logger)
	dispatcher.RegisterHandler(MsgTypeConfigRequest, NewConfigHandler(staticSource{cfg: testMachineConfig()}, logger))
	return dispatcher
}

func request(t *testing.T, msgType string, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(ZeroMQMessage{Type: msgType, Timestamp: 1, Data: data})
	require.NoError(t, err)
	return raw
}

type reply struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dispatch(t *testing.T, d *MessageDispatcher, msgType string, data interface{}) (reply, error) {
	t.Helper()
	raw, err := d.Dispatch(request(t, msgType, data))
	if err != nil {
		return reply{}, err
	}
	var r reply
	require.NoError(t, json.Unmarshal(raw, &r))
	return r, nil
}

func statusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}

func TestMoveAndLocate(t *testing.T) {
	d := newCommandRig(t)

	r, err := dispatch(t, d, MsgTypeMoveTo, map[string]interface{}{
		"mountable_id": "N1", "x": 10, "y": 10, "z": 5, "rotation": 90,
	})
	require.NoError(t, err)
	assert.Equal(t, MsgTypeAck, r.Type)
	var ack AckResponse
	require.NoError(t, json.Unmarshal(r.Data, &ack))
	assert.Equal(t, "OK", ack.Status)
	assert.NotEmpty(t, ack.CommandID)
	require.NotNil(t, ack.Location)
	assert.Equal(t, 10.0, ack.Location.X)

	_, err = dispatch(t, d, MsgTypeMoveTo, map[string]interface{}{"mountable_id": "N1", "y": 7})
	require.NoError(t, err)

	r, err = dispatch(t, d, MsgTypeGetLocation, map[string]interface{}{"mountable_id": "N1"})
	require.NoError(t, err)
	assert.Equal(t, MsgTypeLocation, r.Type)
	var loc processing.LocationResponse
	require.NoError(t, json.Unmarshal(r.Data, &loc))
	assert.Equal(t, processing.LocationResponse{
		HeadID: "H1", MountableID: "N1", X: 10, Y: 7, Z: 5, Rotation: 90, Unit: "mm",
	}, loc)
}

func TestToolCommandsAndEnableGating(t *testing.T) {
	d := newCommandRig(t)

	_, err := dispatch(t, d, MsgTypePick, map[string]interface{}{"mountable_id": "N1"})
	require.NoError(t, err)
	_, err = dispatch(t, d, MsgTypeActuate, map[string]interface{}{"mountable_id": "A1", "on": true})
	require.NoError(t, err)
	_, err = dispatch(t, d, MsgTypeActuate, map[string]interface{}{"mountable_id": "A1", "value": 0.5})
	require.NoError(t, err)

	_, err = dispatch(t, d, MsgTypeSetEnabled, map[string]interface{}{"enabled": false})
	require.NoError(t, err)

	_, err = dispatch(t, d, MsgTypeHome, map[string]interface{}{"head_id": "H1"})
	assert.ErrorIs(t, err, driver.ErrDisabled)
	assert.Equal(t, 409, statusCode(err))
}

func TestCommandErrors(t *testing.T) {
	d := newCommandRig(t)

	_, err := dispatch(t, d, MsgTypeHome, map[string]interface{}{"head_id": "H9"})
	assert.ErrorIs(t, err, machine.ErrNotFound)
	assert.Equal(t, 404, statusCode(err))

	_, err = dispatch(t, d, MsgTypePlace, map[string]interface{}{"mountable_id": "A1"})
	assert.ErrorIs(t, err, machine.ErrWrongKind)
	assert.Equal(t, 400, statusCode(err))

	_, err = dispatch(t, d, MsgTypeSetEnabled, map[string]interface{}{})
	assert.Equal(t, 400, statusCode(err))

	_, err = dispatch(t, d, MsgTypeMoveTo, map[string]interface{}{"mountable_id": "N1", "unit": "parsec"})
	assert.ErrorIs(t, err, geometry.ErrInvalidAxis)

	_, err = dispatch(t, d, "JOG", nil)
	assert.ErrorIs(t, err, ErrUnknownMessageType)

	_, err = d.Dispatch([]byte("not json"))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestConfigRequest(t *testing.T) {
	d := newCommandRig(t)

	r, err := dispatch(t, d, MsgTypeConfigRequest, nil)
	require.NoError(t, err)
	assert.Equal(t, MsgTypeConfigResponse, r.Type)

	var cfg config.Config
	require.NoError(t, json.Unmarshal(r.Data, &cfg))
	assert.Equal(t, "m1", cfg.MachineID)

	handler := NewConfigHandler(staticSource{}, customlog.NewNopLogger())
	_, err = handler.HandleMessage(request(t, MsgTypeConfigRequest, nil))
	assert.Equal(t, 404, statusCode(err))
}

func TestErrorReply(t *testing.T) {
	var r struct {
		Type string        `json:"type"`
		Data ErrorResponse `json:"data"`
	}

	require.NoError(t, json.Unmarshal(errorReply(ErrUnknownMessageType), &r))
	assert.Equal(t, MsgTypeError, r.Type)
	assert.Equal(t, 400, r.Data.Code)

	require.NoError(t, json.Unmarshal(errorReply(&StatusError{Code: 504, Err: driver.ErrTimeout}), &r))
	assert.Equal(t, 504, r.Data.Code)
	assert.Equal(t, "timed out", r.Data.Message)

	require.NoError(t, json.Unmarshal(errorReply(errors.New("boom")), &r))
	assert.Equal(t, 500, r.Data.Code)
}

func TestLocationPublisherEncodesFlatbuffer(t *testing.T) {
	capture := &capturePublisher{}
	publisher := NewLocationPublisher(capture, customlog.NewNopLogger())

	loc := geometry.NewLocation(geometry.Inches, 1.5, -2, 0.25, 45)
	require.NoError(t, publisher.PublishLocation("H1", "N1", loc, 1234))

	require.Len(t, capture.messages, 1)
	assert.Equal(t, TopicLocation, capture.messages[0].topic)

	headID, mountableID, decoded, ts := DecodeLocationEvent(capture.messages[0].raw)
	assert.Equal(t, "H1", headID)
	assert.Equal(t, "N1", mountableID)
	assert.Equal(t, loc, decoded)
	assert.Equal(t, int64(1234), ts)
}

func TestConfigPublisherNotification(t *testing.T) {
	capture := &capturePublisher{}
	publisher := NewConfigPublisher(capture, staticSource{cfg: testMachineConfig()}, customlog.NewNopLogger())

	require.NoError(t, publisher.PublishConfigUpdatedNotification())
	require.Len(t, capture.messages, 1)
	msg := capture.messages[0]
	assert.Equal(t, TopicConfigNotification, msg.topic)
	assert.Equal(t, MsgTypeConfigUpdated, msg.messageType)
	assert.Equal(t, "bench", msg.data.(map[string]interface{})["config_id"])
}
