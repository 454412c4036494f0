// Command zmtp-cli dials a single PLAIN-secured ZMTP endpoint,
// performs the handshake, sends one application message, and prints
// whatever comes back.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/go-zmtp/zmtp/session"
	"github.com/go-zmtp/zmtp/wire"
)

func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:5555", "ZMTP endpoint address (host:port)")
		username = flag.String("username", "", "PLAIN username")
		password = flag.String("password", "", "PLAIN password")
		payload  = flag.String("payload", "hello", "application message body to send")
		timeout  = flag.Duration("timeout", 5*time.Second, "overall deadline for dial, handshake and exchange")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := session.NewConnection(ctx, nil, *addr, wire.DecoderOptions{MaxMsgSize: -1}, nil)
	if err != nil {
		log.Fatalf("zmtp-cli: dial %s: %v", *addr, err)
	}
	defer conn.Close()

	if err := conn.Handshake(ctx, *username, *password); err != nil {
		log.Fatalf("zmtp-cli: handshake: %v", err)
	}

	var out wire.Message
	if err := out.InitSize(len(*payload)); err != nil {
		log.Fatalf("zmtp-cli: init message: %v", err)
	}
	copy(out.Data(), *payload)

	if err := conn.WriteMessage(ctx, &out); err != nil {
		log.Fatalf("zmtp-cli: write: %v", err)
	}
	out.Close()

	reply, err := conn.ReadMessage(ctx)
	if err != nil {
		log.Fatalf("zmtp-cli: read: %v", err)
	}

	fmt.Printf("reply (%d bytes, flags=%v): %s\n", reply.Size(), reply.Flags(), reply.Data())
}
