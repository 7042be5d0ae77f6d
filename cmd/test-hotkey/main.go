// Command test-hotkey prints the start/stop events the push-to-talk
// listener emits, with the time each key hold lasted.
//
//	go run ./cmd/test-hotkey -key f9 -mode hold
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/pushtalk/internal/hotkey"
)

func main() {
	key := flag.String("key", "f9", "key name as gohook reports it")
	mode := flag.String("mode", "hold", "hold or toggle")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener := hotkey.NewListener(*key, *mode)
	go listener.Start()
	fmt.Printf("watching %q (%s mode), Ctrl+C to quit\n", listener.Key(), *mode)

	var started time.Time
	cycles := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n%d cycles\n", cycles)
			// gohook's C cleanup can crash; exit without stopping the hook.
			os.Exit(0)
		case ev, ok := <-listener.Events():
			if !ok {
				return
			}
			now := time.Now()
			switch ev.Type {
			case hotkey.EventStart:
				started = now
				fmt.Printf("%s  %s\n", now.Format("15:04:05.000"), ev.Type)
			case hotkey.EventStop:
				cycles++
				fmt.Printf("%s  %s after %s\n", now.Format("15:04:05.000"), ev.Type, now.Sub(started).Round(time.Millisecond))
			}
		}
	}
}
