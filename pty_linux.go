package serial

// openPTY allocates a pseudoterminal pair and returns the master and
// slave ends as raw ttyDevices. It exists purely to let tests drive a
// real Port against a real fd pair without physical hardware: the
// slave end is handed to a Port, the master end is driven directly by
// the test. Unexported since only tests in this package need it.
func openPTY(termp *Termios, winp *Winsize) (master, slave *ttyDevice, err error) {
	master, err = openTTY("/dev/ptmx", nil)
	if err != nil {
		return nil, nil, err
	}
	if err := master.setLockPT(false); err != nil {
		master.close()
		return nil, nil, err
	}
	slave, err = master.getPTPeer(0)
	if err != nil {
		master.close()
		return nil, nil, err
	}
	if termp != nil {
		if err := slave.setAttr(TCSANOW, termp); err != nil {
			master.close()
			slave.close()
			return nil, nil, err
		}
	}
	if winp != nil {
		if err := slave.setWinSize(winp); err != nil {
			master.close()
			slave.close()
			return nil, nil, err
		}
	}
	return master, slave, nil
}
