package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/subhroacharjee/lanpeer/internal/config"
	"github.com/subhroacharjee/lanpeer/internal/logger"
	"github.com/subhroacharjee/lanpeer/internal/p2p"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic: %v", r)
		}
	}()

	configPath := flag.String("config", "", "path to a JSON config file")
	appName := flag.String("app", "lanpeer-demo", "application namespace")
	peers := flag.Int("peers", 1, "number of peers to seek")
	flag.Parse()

	cfg := config.GetDefaultConfig(*appName)
	if *configPath != "" {
		if cfg, err = config.ParseConfig(*configPath); err != nil {
			return err
		}
	}
	logger.Init(cfg.Debug)

	node := p2p.NewNode(cfg.GetNodeOpts())

	node.On("message", p2p.Sync(func(ev p2p.Event) {
		logger.Info("message from %s: %v", ev.Peer.ID(), ev.Data)
	}))
	node.On(p2p.EventAllPeersConnected, p2p.Sync(func(p2p.Event) {
		node.Emit("message", map[string]any{"text": "hello from " + node.LocalID()})
	}))
	node.On(p2p.EventPeerDisconnected, p2p.Sync(func(ev p2p.Event) {
		logger.Info("peer %s disconnected", ev.Peer.ID())
	}))
	node.On(p2p.EventSeekTimeout, p2p.Sync(func(ev p2p.Event) {
		logger.Warn("found %d of %d peers", ev.Current, ev.Target)
	}))

	if err := node.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := node.SeekPeers(ctx, *peers); err != nil {
			logger.Error("seek peers: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down")
	cancel()
	return node.Stop()
}
