package serialio

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// CommandPort is a Port backed by an external helper process's stdout, the
// devicespec "CMD(shell)" source (§6.2/§6.3): rtl_sdr/rtl_wmbus and similar
// decoders are invoked via a shell pipeline and only their stdout line
// protocol is read, never their stdin. Grounded on the "StdoutPipe + Start,
// Close kills and Waits" shape used for subprocess-backed data sources in
// the retrieval pack (e.g. traceutil/zedmon's cmd.StdoutPipe/cmd.Wait).
type CommandPort struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// NewCommandPort starts shellCommand via "sh -c", so pipelines like
// "rtl_sdr -f 868950000 -s 1600000 - | rtl_wmbus" work as a single source.
func NewCommandPort(shellCommand string) (*CommandPort, error) {
	var cmd = exec.Command("sh", "-c", shellCommand)
	var stdout, err = cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("serialio: command %q: stdout pipe: %w", shellCommand, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("serialio: command %q: start: %w", shellCommand, err)
	}
	var p = &CommandPort{cmd: cmd}
	p.stdout = stdout
	return p, nil
}

func (p *CommandPort) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

func (p *CommandPort) Write([]byte) (int, error) {
	return 0, fmt.Errorf("serialio: command port is read-only")
}

func (p *CommandPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	p.cmd.Process.Kill()
	var err = p.cmd.Wait()
	p.cmd = nil
	if _, exited := err.(*exec.ExitError); exited {
		// The kill above (or the helper's own non-zero exit) is how the
		// process ends here, not a Close failure.
		return nil
	}
	return err
}

// SetBaud is a no-op: a subprocess source has no baud rate.
func (p *CommandPort) SetBaud(int) error { return nil }
