package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cenkalti/log"
	"github.com/rofl-app/rofl-amounts/internal/price"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.etcd.io/bbolt"
)

// These variables are set by goreleaser on build.
var (
	version = "0.0.0"
	commit  = ""
	date    = ""
)

var (
	generateSecret = flag.Bool("secret", false, "generate a token secret and exit")
	configPath     = flag.String("config", "config.toml", "config file path")
	versionFlag    = flag.Bool("version", false, "display version and exit")
	config         Config
	db             *bbolt.DB
	server         http.Server
	rateLimiter    *limiter.Limiter
	priceAPI       *price.API
)

func versionString() string {
	const shaLen = 7
	if len(commit) > shaLen {
		commit = commit[:shaLen]
	}
	return fmt.Sprintf("%s (%s) [%s]", version, commit, date)
}

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println(versionString())
		return
	}

	if *generateSecret {
		secret, err := NewSecret()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(secret)
		return
	}

	err := config.Read()
	if err != nil {
		log.Fatal(err)
	}

	if config.EnableDebugLog {
		log.SetLevel(log.DEBUG)
	}

	if config.Secret == "" {
		log.Fatal("empty Secret in config, generate one with -secret flag")
	}
	if config.CoinmarketcapAPIKey == "" {
		log.Warning("empty CoinmarketcapAPIKey in config, fiat conversions will not work")
	}

	rate, err := limiter.NewRateFromFormatted(config.RateLimit)
	if err != nil {
		log.Fatal(err)
	}

	rateLimiter = limiter.New(memory.NewStore(), rate, limiter.WithTrustForwardHeader(true))
	priceAPI = price.NewAPI(config.CoinmarketcapAPIKey, config.CoinmarketcapCoinID, config.CoinmarketcapRequestTimeout, config.CoinmarketcapCacheDuration)

	db, err = openDB(config.DatabasePath)
	if err != nil {
		log.Fatal(err)
	}

	go runServer()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownTimeout := config.ShutdownTimeout
	log.Noticeln("shutting down with timeout:", shutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = server.Shutdown(ctx)
	if err != nil {
		log.Errorln("shutdown error:", err)
	}

	err = db.Close()
	if err != nil {
		log.Fatal(err)
	}
}

func openDB(path string) (*bbolt.DB, error) {
	log.Debugln("opening db:", path)
	d, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = d.Update(func(tx *bbolt.Tx) error {
		_, txErr := tx.CreateBucketIfNotExists([]byte(quotesBucket))
		return txErr
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	log.Debugln("db has been opened successfully")
	return d, nil
}
