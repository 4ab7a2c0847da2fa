package session

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// openPTY allocates a PTY master/slave pair using the Linux devpts
// interface. Returns the master as an *os.File and the filesystem path to
// the slave.
func openPTY() (master *os.File, slavePath string, err error) {
	master, err = os.OpenFile("/dev/ptmx", os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		return nil, "", fmt.Errorf("open /dev/ptmx: %w", err)
	}

	fd := int(master.Fd())

	ptyNumber, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		master.Close()
		return nil, "", fmt.Errorf("get PTY number (TIOCGPTN): %w", err)
	}

	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		master.Close()
		return nil, "", fmt.Errorf("unlock PTY slave (TIOCSPTLCK): %w", err)
	}

	slavePath = fmt.Sprintf("/dev/pts/%d", ptyNumber)
	return master, slavePath, nil
}

// setWindowSize sets the terminal dimensions on a PTY master fd using
// TIOCSWINSZ. This propagates SIGWINCH to the foreground process group
// attached to the slave side.
func setWindowSize(fd int, cols, rows uint16) error {
	winsize := &unix.Winsize{
		Col: cols,
		Row: rows,
	}
	return unix.IoctlSetWinsize(fd, unix.TIOCSWINSZ, winsize)
}
