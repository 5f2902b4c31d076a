package cs43l22

// i2cMsg mirrors struct i2c_msg. Buf holds the address of the message payload.
type i2cMsg struct {
	Addr  uint16
	Flags uint16
	Len   uint16
	Buf   uintptr
}

// i2cRdwrIoctlData mirrors struct i2c_rdwr_ioctl_data.
type i2cRdwrIoctlData struct {
	Msgs  uintptr // *i2cMsg
	Nmsgs uint32
}
