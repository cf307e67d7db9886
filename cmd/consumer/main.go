package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/queueworks/consumer"
)

func main() {
	// Parse flags
	flag.Parse()

	// The binary is a shell around the library: jobs are registered by the
	// importing program. Without any, print usage and exit.
	if err := consumer.Work(); err != nil {
		fmt.Println("consumer: a message-queue job-processing runtime")
		fmt.Println("\nUsage: consumer [options]")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		fmt.Println("\nExample:")
		fmt.Println("  consumer -connection=amqp -pidfile=/var/run/consumer.pid")
		log.Println("Error:", err)
		os.Exit(1)
	}
}
