package cs43l22

import (
	"fmt"
	"sync"
)

// Bus is a synchronous register interface to a single device on the control bus.
// Each call is one bounded-latency transaction. Implementations must not retry.
type Bus interface {
	// WriteReg writes one 8-bit register.
	WriteReg(reg Register, val byte) error
	// ReadReg reads one 8-bit register.
	ReadReg(reg Register) (byte, error)
}

// Pin is a digital output line, such as the codec reset line or a meter LED.
// TinyGo's machine.Pin satisfies this interface.
type Pin interface {
	Set(high bool)
}

// NoPin is a Pin that is not connected.
var NoPin Pin = noPin{}

type noPin struct{}

func (noPin) Set(bool) {}

// RegisterValue is a register and its value, as recorded by a write or read back by Dump.
type RegisterValue struct {
	Reg Register
	Val byte
}

func (w RegisterValue) String() string {
	name, ok := RegisterNames[w.Reg]
	if !ok {
		name = fmt.Sprintf("0x%02X", w.Reg)
	}

	return fmt.Sprintf("%s=0x%02X", name, w.Val)
}

// RegisterFile is an in-memory register map implementing Bus.
// It records every write in order and can be told to fail writes to chosen registers.
type RegisterFile struct {
	mu     sync.Mutex
	regs   [256]byte
	writes []RegisterValue
	fail   map[Register]error
}

// NewRegisterFile returns a register file holding the codec's reset ID value.
func NewRegisterFile() *RegisterFile {
	rf := &RegisterFile{fail: make(map[Register]error)}
	rf.regs[REG_ID] = CHIP_ID<<3 | 0x03

	return rf
}

// WriteReg implements Bus.
func (rf *RegisterFile) WriteReg(reg Register, val byte) error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if err, ok := rf.fail[reg]; ok {
		return &BusError{Op: "write", Reg: reg, Val: val, Err: err}
	}

	rf.regs[reg] = val
	rf.writes = append(rf.writes, RegisterValue{Reg: reg, Val: val})

	return nil
}

// ReadReg implements Bus.
func (rf *RegisterFile) ReadReg(reg Register) (byte, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	return rf.regs[reg], nil
}

// Reg returns the current value of a register without recording a transaction.
func (rf *RegisterFile) Reg(reg Register) byte {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	return rf.regs[reg]
}

// Writes returns a copy of all recorded writes, oldest first.
func (rf *RegisterFile) Writes() []RegisterValue {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	return append([]RegisterValue(nil), rf.writes...)
}

// ResetWrites clears the write log.
func (rf *RegisterFile) ResetWrites() {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	rf.writes = nil
}

// FailWrite makes writes to reg fail with err. A nil err clears the failure.
func (rf *RegisterFile) FailWrite(reg Register, err error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if err == nil {
		delete(rf.fail, reg)

		return
	}
	rf.fail[reg] = err
}
