package cs43l22

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestI2CDevCloseDuringTransactions(t *testing.T) {
	file, err := os.Create(filepath.Join(t.TempDir(), "i2c-fake"))
	require.NoError(t, err)

	dev := &I2CDev{file: file, addr: Address}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = dev.WriteReg(REG_MASTER_A_VOL, 0x00)
			}
		}()
	}

	require.NoError(t, dev.Close())
	wg.Wait()

	err = dev.WriteReg(REG_MASTER_A_VOL, 0x00)
	assert.ErrorIs(t, err, os.ErrClosed)

	_, err = dev.ReadReg(REG_ID)
	assert.ErrorIs(t, err, os.ErrClosed)

	assert.NoError(t, dev.Close(), "a second Close is a no-op")
}
