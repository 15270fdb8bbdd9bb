//    Copyright 2017 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package bridge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Power-on register values of a PCA9685.
var pca9685ResetValues = map[uint8]uint8{
	0x00: 0x11, // MODE1: SLEEP, ALLCALL
	0x01: 0x04, // MODE2: OUTDRV
	0x02: 0xE2, // SUBADR1
	0x03: 0xE4, // SUBADR2
	0x04: 0xE8, // SUBADR3
	0x05: 0xE0, // ALLCALLADR
	0xFE: 0x1E, // PRE_SCALE, 200Hz
}

const (
	pca9685Mode1Reg     = 0x00
	pca9685SleepBit     = 0x10
	pca9685PrescaleReg  = 0xFE
	pca9685LEDBaseReg   = 0x06
	pca9685AllLEDReg    = 0xFA
	pca9685RegIncrement = 4
	pca9685OutputCount  = 16
)

// VirtualOp describes a single register access on a virtual device.
type VirtualOp struct {
	Write    bool
	Register uint8
	Length   int
}

// VirtualDevice is an in-memory register file.
type VirtualDevice struct {
	mutex       sync.Mutex
	address     uint8
	registers   [256]uint8
	isPCA9685   bool
	failReads   map[uint8]error
	failWrites  map[uint8]error
	ops         []VirtualOp
	transaction int
}

// VirtualBus is an I2C bus with in-memory devices.
type VirtualBus struct {
	mutex   sync.Mutex
	devices map[uint8]*VirtualDevice
}

// NewVirtualBus creates an empty virtual bus.
func NewVirtualBus() *VirtualBus {
	return &VirtualBus{
		devices: make(map[uint8]*VirtualDevice),
	}
}

// AddDevice adds a device with all registers zero.
func (b *VirtualBus) AddDevice(address uint8) *VirtualDevice {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	d := &VirtualDevice{
		address:    address,
		failReads:  make(map[uint8]error),
		failWrites: make(map[uint8]error),
	}
	b.devices[address] = d
	return d
}

// AddPCA9685 adds a device with the power-on registers of a PCA9685.
// Like the real chip, it ignores PRE_SCALE writes unless sleeping and
// mirrors ALL_LED writes into every LEDn register.
func (b *VirtualBus) AddPCA9685(address uint8) *VirtualDevice {
	d := b.AddDevice(address)
	d.isPCA9685 = true
	for reg, val := range pca9685ResetValues {
		d.registers[reg] = val
	}
	for i := 0; i < pca9685OutputCount; i++ {
		d.registers[pca9685LEDBaseReg+i*pca9685RegIncrement+3] = 0x10 // LEDn_OFF_H full off
	}
	d.registers[pca9685AllLEDReg+3] = 0x10
	return d
}

// Device returns the device at given address.
func (b *VirtualBus) Device(address uint8) (*VirtualDevice, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	d, ok := b.devices[address]
	return d, ok
}

// Execute an option on the bus.
func (b *VirtualBus) Execute(ctx context.Context, address uint8, op func(ctx context.Context, dev I2CDevice) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, ok := b.Device(address)
	if !ok {
		return fmt.Errorf("device %0x not found", address)
	}
	d.mutex.Lock()
	d.transaction++
	d.mutex.Unlock()
	return op(ctx, d)
}

// DetectSlaveAddresses returns the addresses of all devices on the bus.
func (b *VirtualBus) DetectSlaveAddresses() []byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	result := make([]byte, 0, len(b.devices))
	for addr := range b.devices {
		result = append(result, addr)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Close the bus
func (b *VirtualBus) Close() error {
	return nil
}

// Register returns the value of a single register.
func (d *VirtualDevice) Register(reg uint8) uint8 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.registers[reg]
}

// SetRegister sets the value of a single register without recording an operation.
func (d *VirtualDevice) SetRegister(reg, val uint8) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.registers[reg] = val
}

// FailReads makes every read that touches reg fail with err.
// A nil err removes the failure.
func (d *VirtualDevice) FailReads(reg uint8, err error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err == nil {
		delete(d.failReads, reg)
	} else {
		d.failReads[reg] = err
	}
}

// FailWrites makes every write that touches reg fail with err.
// A nil err removes the failure.
func (d *VirtualDevice) FailWrites(reg uint8, err error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err == nil {
		delete(d.failWrites, reg)
	} else {
		d.failWrites[reg] = err
	}
}

// Ops returns all recorded register accesses.
func (d *VirtualDevice) Ops() []VirtualOp {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]VirtualOp(nil), d.ops...)
}

// Writes returns all recorded register writes.
func (d *VirtualDevice) Writes() []VirtualOp {
	var result []VirtualOp
	for _, op := range d.Ops() {
		if op.Write {
			result = append(result, op)
		}
	}
	return result
}

// Transactions returns the number of bus transactions executed on the device.
func (d *VirtualDevice) Transactions() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.transaction
}

// ResetOps clears the recorded operations and transaction count.
func (d *VirtualDevice) ResetOps() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.ops = nil
	d.transaction = 0
}

func (d *VirtualDevice) ReadByteReg(reg uint8) (uint8, error) {
	var buf [1]byte
	if err := d.ReadBlockReg(reg, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *VirtualDevice) WriteByteReg(reg uint8, val uint8) error {
	return d.WriteBlockReg(reg, []byte{val})
}

func (d *VirtualDevice) ReadBlockReg(reg uint8, data []byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for i := range data {
		if err, ok := d.failReads[reg+uint8(i)]; ok {
			return err
		}
	}
	d.ops = append(d.ops, VirtualOp{Register: reg, Length: len(data)})
	for i := range data {
		data[i] = d.registers[reg+uint8(i)]
	}
	return nil
}

func (d *VirtualDevice) WriteBlockReg(reg uint8, data []byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for i := range data {
		if err, ok := d.failWrites[reg+uint8(i)]; ok {
			return err
		}
	}
	d.ops = append(d.ops, VirtualOp{Write: true, Register: reg, Length: len(data)})
	for i, val := range data {
		d.writeRegister(reg+uint8(i), val)
	}
	return nil
}

// writeRegister stores a single register value, applying PCA9685 rules
// when enabled.
func (d *VirtualDevice) writeRegister(reg, val uint8) {
	if d.isPCA9685 {
		switch {
		case reg == pca9685PrescaleReg && d.registers[pca9685Mode1Reg]&pca9685SleepBit == 0:
			// PRE_SCALE is write protected while the oscillator runs
			return
		case reg >= pca9685AllLEDReg && reg < pca9685AllLEDReg+pca9685RegIncrement:
			ofs := int(reg - pca9685AllLEDReg)
			for i := 0; i < pca9685OutputCount; i++ {
				d.registers[pca9685LEDBaseReg+i*pca9685RegIncrement+ofs] = val
			}
		}
	}
	d.registers[reg] = val
}

type virtualBridge struct {
	mutex         sync.Mutex
	bus           *VirtualBus
	outputEnabled bool
}

// VirtualBridge is a bridge without hardware, backed by a VirtualBus.
type VirtualBridge interface {
	API
	// Bus returns the virtual bus
	Bus() *VirtualBus
	// OutputEnabled returns the last state passed to SetOutputEnabled.
	OutputEnabled() bool
}

// NewVirtualBridge implements the bridge for a virtual controller.
func NewVirtualBridge(bus *VirtualBus) VirtualBridge {
	return &virtualBridge{bus: bus}
}

// Turn Green status led on/off
func (p *virtualBridge) SetGreenLED(on bool) error {
	return nil
}

// Turn Red status led on/off
func (p *virtualBridge) SetRedLED(on bool) error {
	return nil
}

// Blink Red status led with given duration between on/off
func (p *virtualBridge) BlinkRedLED(delay time.Duration) error {
	return nil
}

// Open the I2C bus
func (p *virtualBridge) I2CBus() (I2CBus, error) {
	return p.bus, nil
}

// Bus returns the virtual bus
func (p *virtualBridge) Bus() *VirtualBus {
	return p.bus
}

// SetOutputEnabled records the state of the OE pin.
func (p *virtualBridge) SetOutputEnabled(enabled bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.outputEnabled = enabled
	return nil
}

// OutputEnabled returns the last state passed to SetOutputEnabled.
func (p *virtualBridge) OutputEnabled() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.outputEnabled
}

func (p *virtualBridge) Close() error {
	return nil
}
