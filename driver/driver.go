package driver

import (
	"fmt"

	"github.com/sarchlab/akita/v4/noc/directconnection"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/Kuree/canal/interconnect"
)

// A feedTask streams a slice of values into one boundary port, one
// value per cycle.
type feedTask struct {
	port   string
	values []uint64
	next   int
}

func (t *feedTask) isFinished() bool {
	return t.next >= len(t.values)
}

// A CollectTask gathers values arriving from one boundary port. Values
// holds the result after Run returns.
type CollectTask struct {
	port   string
	count  int
	Values []uint64
}

func (t *CollectTask) isFinished() bool {
	return len(t.Values) >= t.count
}

// A Driver programs a fabric component and streams data through its
// boundary ports.
type Driver struct {
	*sim.TickingComponent

	fabric     *FabricComp
	configPort sim.Port
	localPorts map[string]sim.Port
	numConn    int

	configQueue  []interconnect.ConfigWrite
	readQueue    []uint32
	readValues   map[uint32]uint32
	feedTasks    []*feedTask
	collectTasks []*CollectTask
}

// RegisterFabric connects the driver to a fabric component, one direct
// connection per port.
func (d *Driver) RegisterFabric(f *FabricComp) {
	d.fabric = f

	d.configPort = NewPort(d, 4, 4, d.Name()+".Config")
	d.AddPort("Config", d.configPort)
	d.connect(d.configPort, f.ConfigPort())

	for _, name := range f.InputNames() {
		d.addLocalPort(f, name)
	}
	for _, name := range f.OutputNames() {
		port := d.addLocalPort(f, name)
		f.SetConsumer(name, port.AsRemote())
	}
}

func (d *Driver) addLocalPort(f *FabricComp, name string) sim.Port {
	port := NewPort(d, 4, 4, d.Name()+"."+name)
	d.AddPort(name, port)
	d.localPorts[name] = port
	d.connect(port, f.DataPort(name))

	return port
}

func (d *Driver) connect(p1, p2 sim.Port) {
	conn := directconnection.MakeBuilder().
		WithEngine(d.Engine).
		WithFreq(d.Freq).
		Build(fmt.Sprintf("%s.Conn[%d]", d.Name(), d.numConn))
	d.numConn++

	conn.PlugIn(p1)
	conn.PlugIn(p2)
}

// ProgramRoute queues configuration writes to send to the fabric.
func (d *Driver) ProgramRoute(writes []interconnect.ConfigWrite) {
	d.configQueue = append(d.configQueue, writes...)
}

// ReadConfig queues a configuration read. The value is available from
// ConfigValue after Run returns.
func (d *Driver) ReadConfig(addr uint32) {
	d.readQueue = append(d.readQueue, addr)
}

// ConfigValue returns the value a queued configuration read observed.
func (d *Driver) ConfigValue(addr uint32) (uint32, bool) {
	v, ok := d.readValues[addr]
	return v, ok
}

// FeedIn queues values to stream into one boundary port.
func (d *Driver) FeedIn(port string, values []uint64) {
	d.feedTasks = append(d.feedTasks, &feedTask{
		port:   port,
		values: values,
	})
}

// Collect queues the gathering of count values from one boundary port.
func (d *Driver) Collect(port string, count int) *CollectTask {
	t := &CollectTask{port: port, count: count}
	d.collectTasks = append(d.collectTasks, t)

	return t
}

// Run starts the driver and runs the simulation until all queued work
// drains.
func (d *Driver) Run() error {
	d.TickNow()

	return d.Engine.Run()
}

// Tick sends queued configuration, feeds inputs, and drains outputs.
func (d *Driver) Tick() bool {
	progress := d.doConfig()
	progress = d.doFeedIn() || progress
	progress = d.doCollect() || progress

	return progress
}

// doConfig sends one configuration message per cycle, writes before
// reads so that read back observes the programmed values.
func (d *Driver) doConfig() bool {
	if len(d.configQueue) > 0 {
		if !d.configPort.CanSend() {
			return false
		}

		w := d.configQueue[0]
		msg := ConfigWriteMsgBuilder{}.
			WithSrc(d.configPort.AsRemote()).
			WithDst(d.fabric.ConfigPort().AsRemote()).
			WithAddr(w.Addr).
			WithData(w.Data).
			Build()
		d.configPort.Send(msg)
		d.configQueue = d.configQueue[1:]

		return true
	}

	progress := false
	if len(d.readQueue) > 0 && d.configPort.CanSend() {
		msg := ConfigReadMsgBuilder{}.
			WithSrc(d.configPort.AsRemote()).
			WithDst(d.fabric.ConfigPort().AsRemote()).
			WithAddr(d.readQueue[0]).
			Build()
		d.configPort.Send(msg)
		d.readQueue = d.readQueue[1:]
		progress = true
	}

	if item := d.configPort.PeekIncoming(); item != nil {
		rsp := item.(*ConfigReadRsp)
		d.readValues[rsp.Addr] = rsp.Data
		d.configPort.RetrieveIncoming()
		progress = true
	}

	return progress
}

func (d *Driver) doFeedIn() bool {
	// hold data until the configuration has fully landed
	if len(d.configQueue) > 0 {
		return false
	}

	progress := false
	for _, t := range d.feedTasks {
		port := d.localPorts[t.port]
		if t.isFinished() || !port.CanSend() {
			continue
		}

		msg := DataMsgBuilder{}.
			WithSrc(port.AsRemote()).
			WithDst(d.fabric.DataPort(t.port).AsRemote()).
			WithPort(t.port).
			WithData(t.values[t.next]).
			Build()
		port.Send(msg)
		t.next++
		progress = true
	}
	d.removeFinishedFeedTasks()

	return progress
}

func (d *Driver) doCollect() bool {
	progress := false
	for _, t := range d.collectTasks {
		port := d.localPorts[t.port]
		item := port.PeekIncoming()
		if item == nil {
			continue
		}

		msg := item.(*DataMsg)
		if !t.isFinished() {
			t.Values = append(t.Values, msg.Data)
		}
		port.RetrieveIncoming()
		progress = true
	}
	d.removeFinishedCollectTasks()

	return progress
}

func (d *Driver) removeFinishedFeedTasks() {
	for i := len(d.feedTasks) - 1; i >= 0; i-- {
		if d.feedTasks[i].isFinished() {
			d.feedTasks = append(d.feedTasks[:i], d.feedTasks[i+1:]...)
		}
	}
}

func (d *Driver) removeFinishedCollectTasks() {
	for i := len(d.collectTasks) - 1; i >= 0; i-- {
		if d.collectTasks[i].isFinished() {
			d.collectTasks = append(
				d.collectTasks[:i], d.collectTasks[i+1:]...)
		}
	}
}

// DriverBuilder can build drivers.
type DriverBuilder struct {
	engine sim.Engine
	freq   sim.Freq
}

// MakeDriverBuilder creates a builder with default parameters.
func MakeDriverBuilder() DriverBuilder {
	return DriverBuilder{
		freq: 1 * sim.GHz,
	}
}

// WithEngine sets the engine that drives the driver.
func (b DriverBuilder) WithEngine(engine sim.Engine) DriverBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the tick frequency.
func (b DriverBuilder) WithFreq(freq sim.Freq) DriverBuilder {
	b.freq = freq
	return b
}

// Build creates the driver.
func (b DriverBuilder) Build(name string) *Driver {
	d := &Driver{
		localPorts: make(map[string]sim.Port),
		readValues: make(map[uint32]uint32),
	}
	d.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, d)

	return d
}
