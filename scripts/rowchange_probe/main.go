// Command rowchange_probe publishes a synthetic row-change event so the
// bridge can be verified end to end against a running instance: publish,
// then watch the API logs (or /metrics rowchange_refresh_total) for the
// matching refresh.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		addr      string
		password  string
		db        int
		prefix    string
		table     string
		eventType string
		timeout   time.Duration
	)

	flag.StringVar(&addr, "addr", "localhost:6379", "Redis address")
	flag.StringVar(&password, "password", "", "Redis password")
	flag.IntVar(&db, "db", 0, "Redis database")
	flag.StringVar(&prefix, "prefix", "rowchange", "Channel prefix")
	flag.StringVar(&table, "table", "grades", "Table to signal")
	flag.StringVar(&eventType, "event", "update", "Event type")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "Publish timeout")
	flag.Parse()

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"table": table, "event_type": eventType})
	if err != nil {
		log.Fatalf("marshal payload: %v", err)
	}

	channel := prefix + ":" + table
	receivers, err := client.Publish(ctx, channel, payload).Result()
	if err != nil {
		log.Fatalf("publish to %s: %v", channel, err)
	}

	fmt.Printf("published %s event on %s, %d subscriber(s)\n", eventType, channel, receivers)
	if receivers == 0 {
		fmt.Println("warning: no subscribers, is the API running with ENABLE_REALTIME=true?")
	}
}
