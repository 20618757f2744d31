package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

const daemonShutdownTimeout = 10 * time.Second

// DaemonProcess is a long running background task. Run returns when ctx is done.
type DaemonProcess interface {
	Run(ctx context.Context)
}

func NewDaemonServer(processes []DaemonProcess) *DaemonServer {
	da := &DaemonServer{}

	for _, p := range processes {
		da.addProcess(p)
	}

	return da
}

type DaemonServer struct {
	processes []DaemonProcess
}

func (da *DaemonServer) addProcess(process DaemonProcess) {
	if process == nil {
		return
	}
	da.processes = append(da.processes, process)
}

// Serve runs every process until SIGINT or SIGTERM.
func (da *DaemonServer) Serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	da.Run(ctx)
}

// Run starts every process and blocks until ctx is done, then gives them a
// bounded time to finish.
func (da *DaemonServer) Run(ctx context.Context) {
	if len(da.processes) < 1 {
		log.Error("Empty process list, exiting")
		return
	}

	log.Info("Started serving")

	ctx, cancel := context.WithCancel(ctx)
	wg := sync.WaitGroup{}
	for _, process := range da.processes {
		wg.Add(1)
		p := process
		go func() {
			defer wg.Done()
			p.Run(ctx)
		}()
	}

	<-ctx.Done()
	log.Info("Received shutdown, canceling processes")
	cancel()

	// give them time to finish
	wchan := make(chan struct{})
	go func() {
		defer close(wchan)
		wg.Wait()
	}()

	select {
	case <-wchan:
		log.Info("Wait group completed")
	case <-time.After(daemonShutdownTimeout):
		log.Info("Timed out on wait group")
	}

	log.Info("Ended serving")
}

// Periodic calls Fn immediately and then every Interval.
type Periodic struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context)
}

func (p Periodic) Run(ctx context.Context) {
	logger := log.WithField("process", p.Name)
	logger.WithField("interval", p.Interval).Info("starting periodic process")
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		p.Fn(ctx)
		select {
		case <-ctx.Done():
			logger.Info("periodic process stopped")
			return
		case <-ticker.C:
		}
	}
}
