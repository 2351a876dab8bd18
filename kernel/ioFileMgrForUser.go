package kernel

import "github.gatech.edu/ECEInnovation/PSP-Emulator/util"

const (
	stdoutFd = 1
	stderrFd = 2
)

// ErrBadFile is returned for any descriptor other than stdout and stderr.
const ErrBadFile KernelError = -0x7FFDFCDD // 0x80020323

func registerIoFileMgrForUser(b *NativeCallBridge) {
	tm := b.tm

	b.RegisterInt("IoFileMgrForUser", "sceIoWrite", 0x42EC03AC, func(c *Call) (int32, error) {
		fd, ptr, size := c.Int(), c.Ptr(), c.Uint32()
		if fd != stdoutFd && fd != stderrFd {
			return 0, ErrBadFile
		}
		data, err := c.Memory.ReadBytes(ptr, size)
		if err != nil {
			return 0, err
		}
		util.LogF("IoFileMgrForUser:sceIoWrite(%d, %q)", fd, data)
		n, err := tm.Output.Write(data)
		if err != nil {
			return 0, err
		}
		return int32(n), nil
	})

	b.RegisterInt("StdioForUser", "sceKernelStdout", 0xA6BAB2E9, func(c *Call) (int32, error) {
		return stdoutFd, nil
	})
	b.RegisterInt("StdioForUser", "sceKernelStderr", 0xF78BA90A, func(c *Call) (int32, error) {
		return stderrFd, nil
	})
}

// SysMemUserForUser reports on the partition thread stacks come from.
func registerSysMemUserForUser(b *NativeCallBridge) {
	tm := b.tm

	b.RegisterInt("SysMemUserForUser", "sceKernelMaxFreeMemSize", 0xA291F107, func(c *Call) (int32, error) {
		return int32(tm.stacks.MaxFreeBlock()), nil
	})
	b.RegisterInt("SysMemUserForUser", "sceKernelTotalFreeMemSize", 0xF919F628, func(c *Call) (int32, error) {
		return int32(tm.stacks.FreeBytes()), nil
	})
}
