package daemon

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// signalContext derives a context that SIGTERM and SIGINT cancel. SIGHUP
// queues a remap instead. The returned cancel also stops signal delivery.
func (d *Daemon) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				log.Printf("daemon: SIGHUP, remapping")
				d.Remap()
			}
		}
	}()

	return ctx, func() {
		signal.Stop(hup)
		stop()
	}
}
