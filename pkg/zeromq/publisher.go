package zeromq

import (
	flatbuffers "github.com/google/flatbuffers/go"
	motion "github.com/openpnp-go/controller/pkg/flatbuffers/pnp/motion"
	"github.com/openpnp-go/controller/pkg/geometry"
	customlog "github.com/openpnp-go/controller/pkg/log"
)

// Publisher sends messages on the PUB socket
type Publisher interface {
	PublishMessage(topic string, message []byte) error
	PublishJSON(topic string, messageType string, data interface{}) error
}

// ConfigPublisher publishes configuration updates to subscribers
type ConfigPublisher struct {
	publisher Publisher
	source    ConfigSource
	logger    customlog.Logger
}

// NewConfigPublisher creates a new publisher for configuration updates
func NewConfigPublisher(publisher Publisher, source ConfigSource, logger customlog.Logger) *ConfigPublisher {
	return &ConfigPublisher{
		publisher: publisher,
		source:    source,
		logger:    logger,
	}
}

// PublishConfigUpdatedNotification publishes a notification that the config has been updated
func (p *ConfigPublisher) PublishConfigUpdatedNotification() error {
	cfg := p.source.GetCurrentConfig()
	if cfg == nil {
		return nil
	}

	p.logger.Infof("Publishing configuration update notification (ID: %s)", cfg.ConfigID)

	notification := map[string]interface{}{
		"config_id":    cfg.ConfigID,
		"version":      cfg.Version,
		"machine_id":   cfg.MachineID,
		"last_updated": cfg.LastUpdated,
	}

	return p.publisher.PublishJSON(TopicConfigNotification, MsgTypeConfigUpdated, notification)
}

// RegisterConfigHandlers registers the configuration request handler and
// returns the publisher for update notifications
func RegisterConfigHandlers(service *ZeroMQService, source ConfigSource, logger customlog.Logger) *ConfigPublisher {
	service.RegisterHandler(MsgTypeConfigRequest, NewConfigHandler(source, logger))

	publisher := NewConfigPublisher(service, source, logger)

	logger.Infof("Registered configuration handlers and publisher")
	return publisher
}

// LocationPublisher publishes LocationEvent flatbuffers on the location topic
type LocationPublisher struct {
	publisher Publisher
	logger    customlog.Logger
}

// NewLocationPublisher creates a new publisher for location updates
func NewLocationPublisher(publisher Publisher, logger customlog.Logger) *LocationPublisher {
	return &LocationPublisher{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishLocation publishes where a head or mountable is
func (p *LocationPublisher) PublishLocation(headID, mountableID string, location geometry.Location, timestampNs int64) error {
	data := EncodeLocationEvent(headID, mountableID, location, timestampNs)
	p.logger.Debugf("Publishing location of '%s/%s' (%d bytes)", headID, mountableID, len(data))
	return p.publisher.PublishMessage(TopicLocation, data)
}

var unitsToWire = map[geometry.LengthUnit]motion.LengthUnit{
	geometry.Millimeters: motion.LengthUnitMillimeters,
	geometry.Centimeters: motion.LengthUnitCentimeters,
	geometry.Meters:      motion.LengthUnitMeters,
	geometry.Inches:      motion.LengthUnitInches,
	geometry.Feet:        motion.LengthUnitFeet,
	geometry.Mils:        motion.LengthUnitMils,
	geometry.Microns:     motion.LengthUnitMicrons,
}

// EncodeLocationEvent builds a finished LocationEvent buffer. Locations in a
// unit without a wire value are sent in millimetres.
func EncodeLocationEvent(headID, mountableID string, location geometry.Location, timestampNs int64) []byte {
	unit, ok := unitsToWire[location.Unit]
	if !ok {
		location = location.ConvertToUnits(geometry.Millimeters)
		unit = motion.LengthUnitMillimeters
	}

	builder := flatbuffers.NewBuilder(128)
	headOffset := builder.CreateString(headID)
	mountableOffset := builder.CreateString(mountableID)

	motion.LocationEventStart(builder)
	motion.LocationEventAddHeadId(builder, headOffset)
	motion.LocationEventAddMountableId(builder, mountableOffset)
	motion.LocationEventAddX(builder, location.X)
	motion.LocationEventAddY(builder, location.Y)
	motion.LocationEventAddZ(builder, location.Z)
	motion.LocationEventAddRotation(builder, location.Rotation)
	motion.LocationEventAddUnit(builder, unit)
	motion.LocationEventAddTimestampNs(builder, timestampNs)
	event := motion.LocationEventEnd(builder)

	motion.FinishLocationEventBuffer(builder, event)
	return builder.FinishedBytes()
}

// DecodeLocationEvent reads a buffer built by EncodeLocationEvent
func DecodeLocationEvent(data []byte) (headID, mountableID string, location geometry.Location, timestampNs int64) {
	event := motion.GetRootAsLocationEvent(data, 0)

	unit := geometry.Millimeters
	for u, wire := range unitsToWire {
		if wire == event.Unit() {
			unit = u
			break
		}
	}

	location = geometry.NewLocation(unit, event.X(), event.Y(), event.Z(), event.Rotation())
	return string(event.HeadId()), string(event.MountableId()), location, event.TimestampNs()
}
