package main

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sync/errgroup"
)

const samplingInterval = 10 * time.Millisecond

var rssBytesFunc = rssBytes

// rssPeak is the highest resident set size observed so far.
type rssPeak struct {
	mu    sync.Mutex
	bytes float64
}

func (p *rssPeak) observe(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bytes = max(p.bytes, v)
}

func (p *rssPeak) value() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytes
}

func (p *rssPeak) poll(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.observe(rssBytesFunc())
		}
	}
}

// measurePeakResidentMemory runs fn while polling the resident set size and
// returns the highest reading, never less than the baseline taken before fn.
func measurePeakResidentMemory(fn func()) float64 {
	peak := &rssPeak{bytes: rssBytesFunc()}

	ctx, cancel := context.WithCancel(context.Background())
	var g errgroup.Group
	g.Go(func() error {
		peak.poll(ctx, samplingInterval)
		return nil
	})
	fn()
	cancel()
	_ = g.Wait()

	peak.observe(rssBytesFunc())
	return peak.value()
}

func rssBytes() float64 {
	if runtime.GOOS == "linux" {
		if v := rssFromProcfs(); v > 0 {
			return v
		}
	}
	return rssFromPS()
}

func rssFromProcfs() float64 {
	p, err := procfs.Self()
	if err != nil {
		return 0
	}
	st, err := p.Stat()
	if err != nil {
		return 0
	}
	return float64(st.ResidentMemory())
}

func rssFromPS() float64 {
	output, err := exec.Command("ps", "-o", "rss=", "-p", strconv.Itoa(os.Getpid())).Output()
	if err != nil {
		return 0
	}
	kb, err := strconv.ParseUint(strings.TrimSpace(string(output)), 10, 64)
	if err != nil {
		return 0
	}
	return float64(kb * 1024)
}
