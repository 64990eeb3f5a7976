package driver

import (
	"github.com/sarchlab/akita/v4/sim"
)

// A ConfigWriteMsg programs one configuration register of the fabric.
type ConfigWriteMsg struct {
	sim.MsgMeta

	Addr uint32
	Data uint32
}

// Meta returns the meta data associated with the message.
func (m *ConfigWriteMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *ConfigWriteMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// ConfigWriteMsgBuilder can build config write messages.
type ConfigWriteMsgBuilder struct {
	src, dst sim.RemotePort
	addr     uint32
	data     uint32
}

// WithSrc sets the source of the message.
func (b ConfigWriteMsgBuilder) WithSrc(src sim.RemotePort) ConfigWriteMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message.
func (b ConfigWriteMsgBuilder) WithDst(dst sim.RemotePort) ConfigWriteMsgBuilder {
	b.dst = dst
	return b
}

// WithAddr sets the configuration address to write.
func (b ConfigWriteMsgBuilder) WithAddr(addr uint32) ConfigWriteMsgBuilder {
	b.addr = addr
	return b
}

// WithData sets the data to write.
func (b ConfigWriteMsgBuilder) WithData(data uint32) ConfigWriteMsgBuilder {
	b.data = data
	return b
}

// Build creates the ConfigWriteMsg.
func (b ConfigWriteMsgBuilder) Build() *ConfigWriteMsg {
	m := &ConfigWriteMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.Addr = b.addr
	m.Data = b.data

	return m
}

// A ConfigReadMsg asks the fabric for the value of one configuration
// register.
type ConfigReadMsg struct {
	sim.MsgMeta

	Addr uint32
}

// Meta returns the meta data associated with the message.
func (m *ConfigReadMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *ConfigReadMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// ConfigReadMsgBuilder can build config read messages.
type ConfigReadMsgBuilder struct {
	src, dst sim.RemotePort
	addr     uint32
}

// WithSrc sets the source of the message.
func (b ConfigReadMsgBuilder) WithSrc(src sim.RemotePort) ConfigReadMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message.
func (b ConfigReadMsgBuilder) WithDst(dst sim.RemotePort) ConfigReadMsgBuilder {
	b.dst = dst
	return b
}

// WithAddr sets the configuration address to read.
func (b ConfigReadMsgBuilder) WithAddr(addr uint32) ConfigReadMsgBuilder {
	b.addr = addr
	return b
}

// Build creates the ConfigReadMsg.
func (b ConfigReadMsgBuilder) Build() *ConfigReadMsg {
	m := &ConfigReadMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.Addr = b.addr

	return m
}

// A ConfigReadRsp carries the value of a configuration register back
// to the reader.
type ConfigReadRsp struct {
	sim.MsgMeta

	Addr uint32
	Data uint32
}

// Meta returns the meta data associated with the message.
func (m *ConfigReadRsp) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *ConfigReadRsp) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// ConfigReadRspBuilder can build config read responses.
type ConfigReadRspBuilder struct {
	src, dst sim.RemotePort
	addr     uint32
	data     uint32
}

// WithSrc sets the source of the message.
func (b ConfigReadRspBuilder) WithSrc(src sim.RemotePort) ConfigReadRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message.
func (b ConfigReadRspBuilder) WithDst(dst sim.RemotePort) ConfigReadRspBuilder {
	b.dst = dst
	return b
}

// WithAddr sets the configuration address the response answers.
func (b ConfigReadRspBuilder) WithAddr(addr uint32) ConfigReadRspBuilder {
	b.addr = addr
	return b
}

// WithData sets the register value carried by the response.
func (b ConfigReadRspBuilder) WithData(data uint32) ConfigReadRspBuilder {
	b.data = data
	return b
}

// Build creates the ConfigReadRsp.
func (b ConfigReadRspBuilder) Build() *ConfigReadRsp {
	m := &ConfigReadRsp{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.Addr = b.addr
	m.Data = b.data

	return m
}

// A DataMsg carries one value for one boundary port of the fabric.
type DataMsg struct {
	sim.MsgMeta

	Port string
	Data uint64
}

// Meta returns the meta data associated with the message.
func (m *DataMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *DataMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// DataMsgBuilder can build data messages.
type DataMsgBuilder struct {
	src, dst sim.RemotePort
	port     string
	data     uint64
}

// WithSrc sets the source of the message.
func (b DataMsgBuilder) WithSrc(src sim.RemotePort) DataMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message.
func (b DataMsgBuilder) WithDst(dst sim.RemotePort) DataMsgBuilder {
	b.dst = dst
	return b
}

// WithPort sets the boundary port the value is for.
func (b DataMsgBuilder) WithPort(port string) DataMsgBuilder {
	b.port = port
	return b
}

// WithData sets the value carried by the message.
func (b DataMsgBuilder) WithData(data uint64) DataMsgBuilder {
	b.data = data
	return b
}

// Build creates the DataMsg.
func (b DataMsgBuilder) Build() *DataMsg {
	m := &DataMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.Port = b.port
	m.Data = b.data

	return m
}
