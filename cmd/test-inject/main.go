// Command test-inject is a manual test for text delivery.
// It captures the focused window, waits 3 seconds, then restores focus
// and types or pastes test text. Focus a text editor before starting.
//
// Usage:
//
//	go run ./cmd/test-inject [--method type|paste] [--restore-clipboard]
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/chaz8081/pushtalk/internal/desktop"
	"github.com/chaz8081/pushtalk/internal/inject"
)

func main() {
	method := flag.String("method", "paste", "inject method: type or paste")
	restore := flag.Bool("restore-clipboard", false, "put the previous clipboard back after pasting")
	flag.Parse()

	text := "Hello from pushtalk!"

	focus := desktop.CaptureFocus()
	fmt.Printf("Captured window %q (pid %d)\n", focus.Title, focus.PID)
	fmt.Printf("Will deliver %q using %q method in 3 seconds...\n", text, *method)
	fmt.Println("Switch to another window to check that focus is restored.")

	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	inj := inject.New(desktop.Clipboard{}, desktop.NewKeyboard(), inject.Options{
		Method:           *method,
		FocusDelay:       100 * time.Millisecond,
		PasteDelay:       50 * time.Millisecond,
		RestoreClipboard: *restore,
	})
	if err := inj.Deliver(focus, text); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("\nDone!")
}
