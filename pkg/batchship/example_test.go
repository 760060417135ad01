package batchship_test

import (
	"context"
	"fmt"

	"github.com/bft-labs/batchship/pkg/batchship"
)

// ExampleNew demonstrates how to embed batchship in your application.
func ExampleNew() {
	// Without a transport, ready batches are decompressed and logged.
	cfg := batchship.DefaultConfig()

	b, err := batchship.New(cfg)
	if err != nil {
		fmt.Printf("failed to create batchship: %v\n", err)
		return
	}

	ctx := context.Background()
	if err := b.Start(ctx); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}
	fmt.Printf("Status: %s\n", b.Status())

	b.Submit(batchship.Text("temperature=21.5"))

	// Stop seals buffered messages into the spool.
	_ = b.Stop(ctx)
	fmt.Printf("Status: %s\n", b.Status())

	// Output:
	// Status: Running
	// Status: Stopped
}

// ExampleBatchship_Drain delivers everything submitted so far, the way the
// CLI's --once mode does.
func ExampleBatchship_Drain() {
	b, err := batchship.New(batchship.DefaultConfig(), batchship.WithTransport(printTransport{}))
	if err != nil {
		fmt.Printf("failed to create batchship: %v\n", err)
		return
	}
	defer b.Stop(context.Background())

	for _, m := range []string{"a", "b", "c"} {
		b.Submit(batchship.Text(m))
	}

	for _, out := range b.Drain(context.Background()) {
		fmt.Printf("%s: %d messages\n", out.Kind, out.Messages)
	}

	// Output:
	// published to obv/batch
	// delivered: 3 messages
}

type printTransport struct{}

func (printTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	fmt.Printf("published to %s\n", topic)
	return nil
}

// Example_withEventHandler demonstrates how to receive batchship events.
func Example_withEventHandler() {
	handler := &myEventHandler{}

	b, err := batchship.New(batchship.DefaultConfig(), batchship.WithEventHandler(handler))
	if err != nil {
		fmt.Printf("failed to create batchship: %v\n", err)
		return
	}
	defer b.Stop(context.Background())

	b.Submit(batchship.Text("hello"))
	b.Drain(context.Background())

	// Output:
	// Logged batch with 1 messages
}

// myEventHandler implements batchship.EventHandler for event notifications.
type myEventHandler struct {
	batchship.BaseEventHandler // Embed for no-op defaults
}

func (h *myEventHandler) OnSendSuccess(event batchship.SendSuccessEvent) {
	verb := "Sent"
	if event.Diagnostic {
		verb = "Logged"
	}
	fmt.Printf("%s batch with %d messages\n", verb, event.Messages)
}

// Example_withCustomLogger demonstrates injecting a custom logger.
func Example_withCustomLogger() {
	b, err := batchship.New(batchship.DefaultConfig(), batchship.WithLogger(&customLogger{}))
	if err != nil {
		fmt.Printf("failed to create batchship: %v\n", err)
		return
	}
	_ = b // Use batchship instance...

	// Output:
	// [INFO] no transport configured, batches will be decompressed and logged
}

// customLogger implements batchship.Logger and prints info lines only.
type customLogger struct{}

func (l *customLogger) Debug(msg string, fields ...batchship.LogField) {}

func (l *customLogger) Info(msg string, fields ...batchship.LogField) {
	fmt.Printf("[INFO] %s\n", msg)
}

func (l *customLogger) Warn(msg string, fields ...batchship.LogField) {}

func (l *customLogger) Error(msg string, fields ...batchship.LogField) {}
