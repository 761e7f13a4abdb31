package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"dzlatency/internal/execx"
	"dzlatency/internal/model"
)

type fakePinger struct {
	delay time.Duration
	raw   map[string]Raw

	mu      sync.Mutex
	current int
	peak    int
	calls   int
}

func (f *fakePinger) Ping(ctx context.Context, ip string) Raw {
	f.mu.Lock()
	f.calls++
	f.current++
	if f.current > f.peak {
		f.peak = f.current
	}
	f.mu.Unlock()

	time.Sleep(f.delay)

	f.mu.Lock()
	f.current--
	f.mu.Unlock()

	if raw, ok := f.raw[ip]; ok {
		return raw
	}
	return Raw{Stdout: "rtt min/avg/max/mdev = 1.0/5.0/9.0/1.0 ms"}
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func makePeers(n int) []model.PeerRecord {
	peers := make([]model.PeerRecord, n)
	for i := range peers {
		peers[i] = model.PeerRecord{IP: fmt.Sprintf("10.0.0.%d", i+1), Identity: fmt.Sprintf("id%d", i+1)}
	}
	return peers
}

func TestProbeAll_OneOutcomePerPeer(t *testing.T) {
	t.Parallel()

	peers := makePeers(5)
	p := &fakePinger{raw: map[string]Raw{
		"10.0.0.2": {TimedOut: true},
		"10.0.0.4": {Stdout: linuxUnreachable, ExitCode: 1},
	}}
	got := NewExecutor(p, quietLogger()).ProbeAll(context.Background(), peers, 2)

	if len(got) != len(peers) {
		t.Fatalf("results=%d", len(got))
	}
	if got[peers[0]] != model.Numeric(5) {
		t.Fatalf("peer0=%v", got[peers[0]])
	}
	if got[peers[1]] != model.Timeout() {
		t.Fatalf("peer1=%v", got[peers[1]])
	}
	if got[peers[3]] != model.Unreachable() {
		t.Fatalf("peer3=%v", got[peers[3]])
	}
	if p.calls != len(peers) {
		t.Fatalf("calls=%d", p.calls)
	}
}

func TestProbeAll_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	p := &fakePinger{delay: 20 * time.Millisecond}
	NewExecutor(p, quietLogger()).ProbeAll(context.Background(), makePeers(12), 3)
	if p.peak > 3 {
		t.Fatalf("peak=%d", p.peak)
	}
	if p.peak < 2 {
		t.Fatalf("probes did not overlap: peak=%d", p.peak)
	}
}

func TestProbeAll_Empty(t *testing.T) {
	t.Parallel()

	got := NewExecutor(&fakePinger{}, quietLogger()).ProbeAll(context.Background(), nil, 4)
	if got == nil || len(got) != 0 {
		t.Fatalf("got=%v", got)
	}
}

type recordRunner struct {
	mu   sync.Mutex
	cmds []string
	res  execx.Result
	err  error
	wait bool
}

func (r *recordRunner) Exec(ctx context.Context, name string, args ...string) (execx.Result, error) {
	r.mu.Lock()
	r.cmds = append(r.cmds, name+" "+strings.Join(args, " "))
	r.mu.Unlock()
	if r.wait {
		<-ctx.Done()
		return execx.Result{ExitCode: -1}, ctx.Err()
	}
	return r.res, r.err
}

var _ execx.Runner = (*recordRunner)(nil)

func TestICMPPinger_Args(t *testing.T) {
	t.Parallel()

	rr := &recordRunner{res: execx.Result{Stdout: linuxOK}}
	raw := NewICMPPinger(rr, "ping", 2, time.Second, 5*time.Second).Ping(context.Background(), "1.2.3.4")
	if want := "ping -n -c 2 -W 1 1.2.3.4"; len(rr.cmds) != 1 || rr.cmds[0] != want {
		t.Fatalf("cmds=%v", rr.cmds)
	}
	if Classify(raw) != model.Numeric(12.3) {
		t.Fatalf("raw=%+v", raw)
	}
}

func TestICMPPinger_MissingBinary(t *testing.T) {
	t.Parallel()

	rr := &recordRunner{err: &exec.Error{Name: "ping", Err: exec.ErrNotFound}}
	raw := NewICMPPinger(rr, "ping", 1, time.Second, time.Second).Ping(context.Background(), "1.2.3.4")
	if !raw.NotFound || Classify(raw) != model.ToolMissing() {
		t.Fatalf("raw=%+v", raw)
	}
}

func TestICMPPinger_DeadlineYieldsTimeout(t *testing.T) {
	t.Parallel()

	rr := &recordRunner{wait: true}
	start := time.Now()
	raw := NewICMPPinger(rr, "ping", 1, time.Second, 30*time.Millisecond).Ping(context.Background(), "1.2.3.4")
	if !raw.TimedOut || Classify(raw) != model.Timeout() {
		t.Fatalf("raw=%+v", raw)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("deadline not enforced")
	}
}

func TestICMPPinger_OtherStartErrorIsToolMissing(t *testing.T) {
	t.Parallel()

	rr := &recordRunner{err: errors.New("fork/exec /bin/ping: permission denied")}
	raw := NewICMPPinger(rr, "ping", 1, time.Second, time.Second).Ping(context.Background(), "1.2.3.4")
	if Classify(raw) != model.ToolMissing() {
		t.Fatalf("raw=%+v", raw)
	}
}
