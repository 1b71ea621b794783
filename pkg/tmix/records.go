package tmix

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jfreymuth/pulse/proto"
)

// Volume is a raw PulseAudio volume value for a single channel
type Volume uint32

const (
	// VolumeMuted is silence
	VolumeMuted Volume = 0

	// VolumeNorm is the "normal" volume (100%)
	VolumeNorm Volume = 0x10000

	// InvalidIndex marks an index field that doesn't refer to anything (no owner module, no client...)
	InvalidIndex uint32 = 0xFFFFFFFF
)

// ChannelPosition identifies a speaker position within a channel map
type ChannelPosition uint8

// ChannelVolumes holds one raw volume per channel, along with the channel layout they apply to
type ChannelVolumes struct {
	Values []Volume
	Map    []ChannelPosition
}

// Average returns the mean raw volume across all channels
func (cv ChannelVolumes) Average() Volume {
	if len(cv.Values) == 0 {
		return VolumeMuted
	}

	var sum uint64
	for _, v := range cv.Values {
		sum += uint64(v)
	}

	return Volume(sum / uint64(len(cv.Values)))
}

// Percent converts the average channel volume to a display percentage, where 100 is VolumeNorm.
// Values above 100 are possible for amplified streams
func (cv ChannelVolumes) Percent() float32 {
	return float32(cv.Average()) / float32(VolumeNorm) * 100
}

// SinkState is the device state of a sink
type SinkState uint32

const (
	SinkRunning   SinkState = 0
	SinkIdle      SinkState = 1
	SinkSuspended SinkState = 2
	SinkInvalid   SinkState = 0xFFFFFFFF
)

func (s SinkState) String() string {
	switch s {
	case SinkRunning:
		return "running"
	case SinkIdle:
		return "idle"
	case SinkSuspended:
		return "suspended"
	}

	return "invalid"
}

// Record is a single item delivered by an introspection list query.
// It is implemented by SinkRecord and SinkInputRecord only
type Record interface {
	RecordIndex() uint32
	isRecord()
}

// SinkRecord describes an output device as the server reported it during one poll
type SinkRecord struct {
	Index       uint32
	Name        string
	Description string

	Volume     ChannelVolumes
	BaseVolume Volume
	Muted      bool
	State      SinkState

	Latency           time.Duration
	ConfiguredLatency time.Duration

	Driver             string
	OwnerModule        uint32
	Card               uint32
	MonitorSourceIndex uint32
	MonitorSourceName  string
	NumVolumeSteps     uint32
	SampleRate         uint32

	Properties map[string]string
}

// RecordIndex returns the sink index
func (s SinkRecord) RecordIndex() uint32 { return s.Index }

func (SinkRecord) isRecord() {}

// DisplayName prefers the human-readable description over the sink's unique name
func (s SinkRecord) DisplayName() string {
	if s.Description != "" {
		return s.Description
	}

	if s.Name != "" {
		return s.Name
	}

	return fmt.Sprintf("sink #%d", s.Index)
}

func (s SinkRecord) String() string {
	return fmt.Sprintf("<sink %d: %s, vol: %.0f%%, state: %s>", s.Index, s.DisplayName(), s.Volume.Percent(), s.State)
}

// SinkInputRecord describes a single stream playing into a sink
type SinkInputRecord struct {
	Index uint32
	Name  string

	// index of the sink this stream plays into. it may refer to a sink that's already gone
	Sink uint32

	Volume         ChannelVolumes
	Muted          bool
	Corked         bool
	HasVolume      bool
	VolumeWritable bool

	OwnerModule uint32
	Client      uint32

	BufferLatency  time.Duration
	SinkLatency    time.Duration
	ResampleMethod string
	Driver         string
	SampleRate     uint32

	// taken from the stream's property list; ProcessID is 0 when unknown
	ProcessID     int
	ProcessBinary string

	Properties map[string]string
}

// RecordIndex returns the sink input index
func (s SinkInputRecord) RecordIndex() uint32 { return s.Index }

func (SinkInputRecord) isRecord() {}

// ApplicationName returns the application.name property, if the stream has one
func (s SinkInputRecord) ApplicationName() string {
	return s.Properties[propApplicationName]
}

func (s SinkInputRecord) String() string {
	return fmt.Sprintf("<sink input %d: %s, sink: %d, vol: %.0f%%>", s.Index, s.Name, s.Sink, s.Volume.Percent())
}

const (
	propApplicationName   = "application.name"
	propProcessBinary     = "application.process.binary"
	propProcessID         = "application.process.id"
	propDeviceDescription = "device.description"
	propMediaName         = "media.name"
)

func sinkRecordFromReply(reply *proto.GetSinkInfoReply) SinkRecord {
	props := propertiesFromPropList(reply.Properties)

	return SinkRecord{
		Index:              reply.SinkIndex,
		Name:               reply.SinkName,
		Description:        sinkDescription(reply, props),
		Volume:             channelVolumesFromReply(reply.ChannelVolumes, reply.ChannelMap),
		BaseVolume:         Volume(reply.BaseVolume),
		Muted:              reply.Mute,
		State:              SinkState(reply.State),
		Latency:            microseconds(uint64(reply.Latency)),
		ConfiguredLatency:  microseconds(uint64(reply.RequestedLatency)),
		Driver:             reply.Driver,
		OwnerModule:        reply.ModuleIndex,
		Card:               reply.CardIndex,
		MonitorSourceIndex: reply.MonitorSourceIndex,
		MonitorSourceName:  reply.MonitorSourceName,
		NumVolumeSteps:     reply.NumVolumeSteps,
		SampleRate:         reply.Rate,
		Properties:         props,
	}
}

func sinkDescription(reply *proto.GetSinkInfoReply, props map[string]string) string {
	if desc, ok := props[propDeviceDescription]; ok && desc != "" {
		return desc
	}

	return reply.Device
}

func sinkInputRecordFromReply(reply *proto.GetSinkInputInfoReply) SinkInputRecord {
	props := propertiesFromPropList(reply.Properties)

	record := SinkInputRecord{
		Index:          reply.SinkInputIndex,
		Name:           reply.MediaName,
		Sink:           reply.SinkIndex,
		Volume:         channelVolumesFromReply(reply.ChannelVolumes, reply.ChannelMap),
		Muted:          reply.Muted,
		Corked:         reply.Corked,
		HasVolume:      reply.VolumeReadable,
		VolumeWritable: reply.VolumeWritable,
		OwnerModule:    reply.ModuleIndex,
		Client:         reply.ClientIndex,
		BufferLatency:  microseconds(uint64(reply.SinkInputLatency)),
		SinkLatency:    microseconds(uint64(reply.SinkLatency)),
		ResampleMethod: reply.ResampleMethod,
		Driver:         reply.Driver,
		SampleRate:     reply.Rate,
		ProcessBinary:  props[propProcessBinary],
		Properties:     props,
	}

	if record.Name == "" {
		record.Name = props[propMediaName]
	}

	if pidString, ok := props[propProcessID]; ok {
		if pid, err := strconv.Atoi(pidString); err == nil && pid > 0 {
			record.ProcessID = pid
		}
	}

	return record
}

func channelVolumesFromReply(volumes proto.ChannelVolumes, channelMap proto.ChannelMap) ChannelVolumes {
	cv := ChannelVolumes{
		Values: make([]Volume, len(volumes)),
		Map:    make([]ChannelPosition, len(channelMap)),
	}

	for i, v := range volumes {
		cv.Values[i] = Volume(v)
	}

	for i, position := range channelMap {
		cv.Map[i] = ChannelPosition(position)
	}

	return cv
}

func propertiesFromPropList(props proto.PropList) map[string]string {
	result := make(map[string]string, len(props))

	for key, entry := range props {
		result[key] = entry.String()
	}

	return result
}

func microseconds(us uint64) time.Duration {
	return time.Duration(us) * time.Microsecond
}
