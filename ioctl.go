package cs43l22

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// i2c-dev ioctl requests, from <linux/i2c-dev.h>.
const (
	I2C_RETRIES = 0x0701 // Number of times a device address is polled when not acknowledging.
	I2C_TIMEOUT = 0x0702 // Adapter timeout in units of 10 ms.
	I2C_SLAVE   = 0x0703 // Use this slave address.
	I2C_FUNCS   = 0x0705 // Get the adapter functionality mask.
	I2C_RDWR    = 0x0707 // Combined R/W transfer (one STOP only).
)

// i2c_msg flags and adapter functionality bits, from <linux/i2c.h>.
const (
	I2C_M_RD     = 0x0001
	I2C_FUNC_I2C = 0x00000001
)

// ioctl performs a generic ioctl syscall with a pointer or integer argument.
func ioctl(fd uintptr, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, arg)
	if errno != 0 {
		return errno
	}

	return nil
}

// ioctlRdwr issues a combined I2C_RDWR transaction made of msgs.
func ioctlRdwr(fd uintptr, msgs []i2cMsg) error {
	if len(msgs) == 0 {
		return nil
	}

	data := i2cRdwrIoctlData{
		Msgs:  uintptr(unsafe.Pointer(&msgs[0])),
		Nmsgs: uint32(len(msgs)),
	}

	err := ioctl(fd, I2C_RDWR, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(msgs)
	runtime.KeepAlive(&data)

	return err
}
