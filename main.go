/* main.go
 * The "main" method for running the dashboard. For details see `readme.md`
 * Usage: go run main.go -addr=":8080" -interval=60 -top=10 -bot="false"
 */

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"ctfd-board/api/api"
	"ctfd-board/bot"
	"ctfd-board/web"
)

func main() {
	err := godotenv.Load()

	//Flags
	addrPtr := flag.String("addr", ":8080", "Listen address for the dashboard HTTP server")
	intervalPtr := flag.Int("interval", 60, "Poll interval in seconds, bounded 5-300")
	topPtr := flag.Int("top", 10, "Number of top teams to fetch, bounded 10-100")
	botPtr := flag.String("bot", "false", "Run the Discord announcer bot: takes true or false as argument")

	flag.Parse()

	if err != nil {
		log.Println("No .env file found, using environment variables as-is")
	}

	cfg := api.Config{
		BaseURL:  os.Getenv("CTFD_URL"),
		Token:    os.Getenv("CTFD_TOKEN"),
		Interval: time.Duration(clampInt(*intervalPtr, 5, 300)) * time.Second,
		TopTeams: clampInt(*topPtr, 10, 100),
	}

	apiPtr, err := api.NewAPI(cfg)
	if err != nil {
		log.Fatalf("failed to initialize API: %v", err)
	}
	if !apiPtr.IsConfigured() {
		fmt.Println("CTFD_URL / CTFD_TOKEN not set: no polling until credentials are configured")
	}
	apiPtr.Start()
	defer apiPtr.Stop()

	runBot, err := convertStrToBool(*botPtr)
	if err != nil {
		fmt.Println("Invalid \"bot\" flag. Should be true or false")
		return
	}

	if runBot {
		// web server in the background, bot in the foreground until ctrl+C
		go func() {
			if err := web.Start(web.Config{Addr: *addrPtr, API: apiPtr}); err != nil {
				log.Fatalf("web server stopped: %v", err)
			}
		}()

		b, err := bot.NewBot(os.Getenv("DISCORD_TOKEN"), os.Getenv("DISCORD_CHANNEL_ID"), apiPtr)
		if err != nil {
			log.Fatalf("failed to initialize bot: %v", err)
		}
		if err := b.Run(); err != nil {
			log.Fatal(err)
		}
	} else {
		if err := web.Start(web.Config{Addr: *addrPtr, API: apiPtr}); err != nil {
			log.Fatalf("web server stopped: %v", err)
		}
	}
}
