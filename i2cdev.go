package cs43l22

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// BusTimeout bounds every register transaction. A transaction that takes this long indicates a bus fault.
const BusTimeout = time.Second

// I2CDev is a Bus backed by a Linux i2c-dev adapter (/dev/i2c-N).
type I2CDev struct {
	mu   sync.Mutex
	file *os.File
	addr uint16
}

// OpenI2CDev opens the i2c-dev adapter for bus number bus and binds it to the 7-bit device address addr.
// Note: the adapter must support plain I2C transfers (I2C_FUNC_I2C); SMBus-only adapters are rejected.
func OpenI2CDev(bus int, addr uint16) (*I2CDev, error) {
	path := fmt.Sprintf("/dev/i2c-%d", bus)

	return OpenI2CDevPath(path, addr)
}

// OpenI2CDevPath is like OpenI2CDev but takes the device node path.
func OpenI2CDevPath(path string, addr uint16) (*I2CDev, error) {
	if addr > 0x7F {
		return nil, fmt.Errorf("invalid 7-bit address 0x%02X", addr)
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c device %s: %w", path, err)
	}

	dev := &I2CDev{file: file, addr: addr}
	fd := int(file.Fd())

	funcs, err := unix.IoctlGetInt(fd, I2C_FUNCS)
	if err != nil {
		_ = dev.Close()

		return nil, fmt.Errorf("ioctl I2C_FUNCS failed: %w", err)
	}

	if funcs&I2C_FUNC_I2C == 0 {
		_ = dev.Close()

		return nil, fmt.Errorf("adapter %s does not support plain I2C transfers", path)
	}

	if err := unix.IoctlSetInt(fd, I2C_SLAVE, int(addr)); err != nil {
		_ = dev.Close()

		return nil, fmt.Errorf("ioctl I2C_SLAVE 0x%02X failed: %w", addr, err)
	}

	// Retry policy belongs to the caller.
	if err := unix.IoctlSetInt(fd, I2C_RETRIES, 0); err != nil {
		_ = dev.Close()

		return nil, fmt.Errorf("ioctl I2C_RETRIES failed: %w", err)
	}

	if err := unix.IoctlSetInt(fd, I2C_TIMEOUT, int(BusTimeout/(10*time.Millisecond))); err != nil {
		_ = dev.Close()

		return nil, fmt.Errorf("ioctl I2C_TIMEOUT failed: %w", err)
	}

	return dev, nil
}

// Close closes the adapter handle. Transactions after Close fail with os.ErrClosed.
func (d *I2CDev) Close() error {
	if d == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}

	err := d.file.Close()
	d.file = nil

	return err
}

// Addr returns the bound 7-bit device address.
func (d *I2CDev) Addr() uint16 {
	return d.addr
}

// WriteReg implements Bus with a single two-byte write transfer.
func (d *I2CDev) WriteReg(reg Register, val byte) error {
	if d == nil {
		return &BusError{Op: "write", Reg: reg, Val: val, Err: os.ErrClosed}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return &BusError{Op: "write", Reg: reg, Val: val, Err: os.ErrClosed}
	}

	n, err := unix.Write(int(d.file.Fd()), []byte{reg, val})
	if err != nil {
		return &BusError{Op: "write", Reg: reg, Val: val, Err: err}
	}

	if n != 2 {
		return &BusError{Op: "write", Reg: reg, Val: val, Err: fmt.Errorf("short write: %d of 2 bytes", n)}
	}

	return nil
}

// ReadReg implements Bus with a write of the register address followed by a one-byte read, joined by a repeated start.
func (d *I2CDev) ReadReg(reg Register) (byte, error) {
	if d == nil {
		return 0, &BusError{Op: "read", Reg: reg, Err: os.ErrClosed}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return 0, &BusError{Op: "read", Reg: reg, Err: os.ErrClosed}
	}

	out := []byte{reg}
	in := []byte{0}

	msgs := []i2cMsg{
		{Addr: d.addr, Flags: 0, Len: 1, Buf: uintptr(unsafe.Pointer(&out[0]))},
		{Addr: d.addr, Flags: I2C_M_RD, Len: 1, Buf: uintptr(unsafe.Pointer(&in[0]))},
	}

	err := ioctlRdwr(d.file.Fd(), msgs)
	runtime.KeepAlive(out)
	runtime.KeepAlive(in)

	if err != nil {
		return 0, &BusError{Op: "read", Reg: reg, Err: fmt.Errorf("ioctl I2C_RDWR failed: %w", err)}
	}

	return in[0], nil
}
