package probe

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"dzlatency/internal/execx"
)

// Pinger runs one reachability probe against an IP.
type Pinger interface {
	Ping(ctx context.Context, ip string) Raw
}

// ICMPPinger shells out to the system ping tool.
type ICMPPinger struct {
	r        execx.Runner
	bin      string
	count    int
	timeout  time.Duration
	deadline time.Duration
}

// NewICMPPinger sends count echoes, waiting timeout for each, and kills the
// process after deadline.
func NewICMPPinger(r execx.Runner, bin string, count int, timeout, deadline time.Duration) *ICMPPinger {
	if r == nil {
		r = execx.NewOSRunner()
	}
	return &ICMPPinger{r: r, bin: bin, count: count, timeout: timeout, deadline: deadline}
}

func (p *ICMPPinger) Ping(ctx context.Context, ip string) Raw {
	waitSec := int(p.timeout / time.Second)
	if waitSec < 1 {
		waitSec = 1
	}
	args := []string{"-n", "-c", strconv.Itoa(p.count), "-W", strconv.Itoa(waitSec), ip}

	var res execx.Result
	err := execx.WithTimeout(ctx, p.deadline, func(ctx context.Context) error {
		var err error
		res, err = p.r.Exec(ctx, p.bin, args...)
		return err
	})

	raw := Raw{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode}
	switch {
	case err == nil:
	case errors.Is(err, exec.ErrNotFound):
		raw.NotFound = true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		raw.TimedOut = true
	default:
		// Could not start for another reason (permissions on the binary, fork failure).
		logrus.WithField("ip", ip).WithError(err).Debug("ping did not run")
		raw.NotFound = true
	}
	return raw
}
