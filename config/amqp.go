package config

import (
	"log"
	"os"

	stockService "bookable.GO/service/stock"
)

// EventPublisher is the global stock event publisher, nil when AMQP is not
// configured or not reachable. Services accept nil and skip publishing.
var EventPublisher *stockService.Publisher

func InitEvents() {
	url := os.Getenv("AMQP_URL")
	if url == "" {
		EventPublisher = nil
		return
	}
	queue := GetEnv("AMQP_STOCK_QUEUE", "stock.events")
	pub, err := stockService.NewPublisher(url, queue)
	if err != nil {
		log.Printf("AMQP configured but not reachable, events disabled: %v", err)
		EventPublisher = nil
		return
	}
	EventPublisher = pub
}
