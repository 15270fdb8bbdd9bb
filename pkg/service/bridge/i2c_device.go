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

//go:build linux

package bridge

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// From  /usr/include/linux/i2c-dev.h:
	// ioctl signals
	I2C_SLAVE = 0x0703
	I2C_FUNCS = 0x0705
	I2C_RDWR  = 0x0707
	I2C_SMBUS = 0x0720
	// Read/write markers
	I2C_SMBUS_READ  = 1
	I2C_SMBUS_WRITE = 0

	// From  /usr/include/linux/i2c.h:
	I2C_M_RD = 0x0001
	// Adapter functionality
	I2C_FUNC_I2C                   = 0x00000001
	I2C_FUNC_SMBUS_QUICK           = 0x00010000
	I2C_FUNC_SMBUS_READ_BYTE_DATA  = 0x00080000
	I2C_FUNC_SMBUS_WRITE_BYTE_DATA = 0x00100000

	// Transaction types
	I2C_SMBUS_QUICK     = 0
	I2C_SMBUS_BYTE_DATA = 2
)

type i2cSmbusIoctlData struct {
	readWrite byte
	command   byte
	size      uint32
	data      uintptr
}

type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type i2cRdwrIoctlData struct {
	msgs  uintptr
	nmsgs uint32
}

type i2cDevice struct {
	address uint8
	file    *os.File
	funcs   uint64 // adapter functionality mask
}

// newI2CDevice returns accessors the the I2C address at the given location & address.
func newI2CDevice(location string, address uint8) (*i2cDevice, error) {
	d := &i2cDevice{
		address: address,
	}

	var err error
	if d.file, err = os.OpenFile(location, os.O_RDWR, os.ModeDevice); err != nil {
		return nil, err
	}
	if err := d.ioctl(I2C_FUNCS, uintptr(unsafe.Pointer(&d.funcs))); err != nil {
		d.file.Close()
		return nil, errors.Wrap(err, "querying functionality failed")
	}
	if err := d.ioctl(I2C_SLAVE, uintptr(address)); err != nil {
		d.file.Close()
		return nil, errors.Wrapf(err, "setting address (0x%0x) failed", address)
	}
	return d, nil
}

func (d *i2cDevice) closeFile() error {
	return d.file.Close()
}

// DetectDevice performs an SMBus quick command.
func (d *i2cDevice) DetectDevice() error {
	if d.funcs&I2C_FUNC_SMBUS_QUICK == 0 {
		return fmt.Errorf("SMBus quick not supported")
	}
	if err := d.smbusAccess(I2C_SMBUS_WRITE, 0, I2C_SMBUS_QUICK, 0); err != nil {
		return errors.Wrap(err, "quick failed")
	}
	return nil
}

func (d *i2cDevice) ReadByteReg(reg uint8) (uint8, error) {
	if d.funcs&I2C_FUNC_SMBUS_READ_BYTE_DATA == 0 {
		return 0, fmt.Errorf("SMBus read byte data not supported")
	}
	var data uint8
	if err := d.smbusAccess(I2C_SMBUS_READ, reg, I2C_SMBUS_BYTE_DATA, uintptr(unsafe.Pointer(&data))); err != nil {
		return 0, errors.Wrapf(err, "readByteData[0x%0x](0x%0x) failed", d.address, reg)
	}
	return data, nil
}

func (d *i2cDevice) WriteByteReg(reg uint8, val uint8) error {
	if d.funcs&I2C_FUNC_SMBUS_WRITE_BYTE_DATA == 0 {
		return fmt.Errorf("SMBus write byte data not supported")
	}
	data := val
	if err := d.smbusAccess(I2C_SMBUS_WRITE, reg, I2C_SMBUS_BYTE_DATA, uintptr(unsafe.Pointer(&data))); err != nil {
		return errors.Wrapf(err, "writeByteData[0x%0x](0x%0x, 0x%0x) failed", d.address, reg, val)
	}
	return nil
}

// ReadBlockReg writes the register address and reads len(data) bytes
// using a repeated start.
func (d *i2cDevice) ReadBlockReg(reg uint8, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	w := []byte{reg}
	msgs := []i2cMsg{
		{addr: uint16(d.address), len: 1, buf: uintptr(unsafe.Pointer(&w[0]))},
		{addr: uint16(d.address), flags: I2C_M_RD, len: uint16(len(data)), buf: uintptr(unsafe.Pointer(&data[0]))},
	}
	err := d.rdwr(msgs)
	// Buffers are only referenced through uintptr during the ioctl
	runtime.KeepAlive(w)
	runtime.KeepAlive(data)
	if err != nil {
		return errors.Wrapf(err, "readBlock[0x%0x](0x%0x, %d) failed", d.address, reg, len(data))
	}
	return nil
}

// WriteBlockReg writes the register address followed by data in a single message.
func (d *i2cDevice) WriteBlockReg(reg uint8, data []byte) error {
	w := append([]byte{reg}, data...)
	msgs := []i2cMsg{
		{addr: uint16(d.address), len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))},
	}
	err := d.rdwr(msgs)
	runtime.KeepAlive(w)
	if err != nil {
		return errors.Wrapf(err, "writeBlock[0x%0x](0x%0x, %d) failed", d.address, reg, len(data))
	}
	return nil
}

func (d *i2cDevice) rdwr(msgs []i2cMsg) error {
	if d.funcs&I2C_FUNC_I2C == 0 {
		return fmt.Errorf("plain i2c transfers not supported")
	}
	data := i2cRdwrIoctlData{
		msgs:  uintptr(unsafe.Pointer(&msgs[0])),
		nmsgs: uint32(len(msgs)),
	}
	err := d.ioctl(I2C_RDWR, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(msgs)
	return err
}

func (d *i2cDevice) smbusAccess(readWrite byte, command byte, size uint32, data uintptr) error {
	smbus := &i2cSmbusIoctlData{
		readWrite: readWrite,
		command:   command,
		size:      size,
		data:      data,
	}
	return d.ioctl(I2C_SMBUS, uintptr(unsafe.Pointer(smbus)))
}

func (d *i2cDevice) ioctl(req, arg uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), req, arg); errno != 0 {
		return errno
	}
	return nil
}
