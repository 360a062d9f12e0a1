package util

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"
)

// VirtualPair is two linked pseudo-terminals backed by one socat process.
// The robot simulator opens one end as its motor controller port; a test
// harness or a human with `cat` sits on the other.
type VirtualPair struct {
	Left, Right string

	cmd       *exec.Cmd
	closeOnce sync.Once
	closeErr  error
}

// OpenVirtualPair starts socat and returns once both link paths exist.
func OpenVirtualPair(left, right string, wait time.Duration) (*VirtualPair, error) {
	if left == "" || right == "" || left == right {
		return nil, fmt.Errorf("virtual serial: need two distinct link paths, got %q and %q", left, right)
	}
	cmd := exec.Command("socat",
		"pty,raw,echo=0,link="+left,
		"pty,raw,echo=0,link="+right,
	)
	cmd.Stderr = log.Writer()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("virtual serial: start socat: %w", err)
	}
	p := &VirtualPair{Left: left, Right: right, cmd: cmd}
	if err := waitForLinks(wait, left, right); err != nil {
		_ = p.Close()
		return nil, err
	}
	log.Printf("[virt-serial] %s <-> %s (socat pid %d)", left, right, cmd.Process.Pid)
	return p, nil
}

// Close stops socat and removes any link it left behind.
func (p *VirtualPair) Close() error {
	p.closeOnce.Do(func() {
		if p.cmd != nil && p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
			_ = p.cmd.Wait()
		}
		var errs []error
		for _, link := range []string{p.Left, p.Right} {
			if err := os.Remove(link); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}

func waitForLinks(wait time.Duration, paths ...string) error {
	deadline := time.Now().Add(wait)
	for _, path := range paths {
		for {
			if _, err := os.Lstat(path); err == nil {
				break
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("virtual serial: %s did not appear within %v", path, wait)
			}
			time.Sleep(20 * time.Millisecond)
		}
	}
	return nil
}
