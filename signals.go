package consumer

import (
	"os"
	"os/signal"
	"syscall"
)

// signals returns a channel that receives a value for each quit signal the
// process gets. The first triggers a graceful stop; a second, arriving
// while the first is still draining, escalates to an immediate stop.
func signals() <-chan bool {
	quit := make(chan bool, 2)

	go func() {
		signals := make(chan os.Signal, 2)
		defer close(signals)

		signal.Notify(signals, syscall.SIGQUIT, syscall.SIGTERM, os.Interrupt)
		defer signal.Stop(signals)

		<-signals
		quit <- true
		<-signals
		quit <- true
	}()

	return quit
}
