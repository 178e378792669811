//go:build !windows

package console

import "golang.org/x/sys/unix"

// terminalSize probes the window size of the terminal behind fd.
func terminalSize(fd uintptr) (width, height int, ok bool) {
	ws, err := unix.IoctlGetWinsize(int(fd), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return 0, 0, false
	}
	return int(ws.Col), int(ws.Row), true
}

// isTerminal reports whether fd is attached to a terminal. The window size
// ioctl only succeeds on ttys, so it doubles as the check.
func isTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetWinsize(int(fd), unix.TIOCGWINSZ)
	return err == nil
}

// prepareTerminal is a no-op: VT escape sequences need no setup here.
func prepareTerminal(uintptr) {}
