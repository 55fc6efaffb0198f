// Command xdao-marketd serves the DeSci market core over gRPC.
//
// Configuration comes from environment variables (MARKETD_*) with flags
// taking precedence. Store backends are linked at build time and selected
// with -backend.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"xdao.co/descimarket/ledger/ledgerregistry"
	"xdao.co/descimarket/market"
	"xdao.co/descimarket/rpc"
	"xdao.co/descimarket/settlement"

	_ "xdao.co/descimarket/ledger/memledger"
	_ "xdao.co/descimarket/ledger/sqliteledger"
)

type config struct {
	Listen  string `env:"MARKETD_LISTEN" envDefault:"127.0.0.1:7788"`
	Backend string `env:"MARKETD_BACKEND" envDefault:"mem"`
	Fee     uint64 `env:"MARKETD_FEE" envDefault:"1000"`
	Faucet  uint64 `env:"MARKETD_FAUCET" envDefault:"0"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fs := flag.NewFlagSet("xdao-marketd", flag.ExitOnError)
	listen := fs.String("listen", cfg.Listen, "listen address")
	backend := fs.String("backend", cfg.Backend, "store backend name")
	fee := fs.Uint64("fee", cfg.Fee, "flat protocol fee in microunits")
	faucet := fs.Uint64("faucet", cfg.Faucet, "dev faucet grant per new account (0 disables)")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")

	ledgerregistry.RegisterFlags(fs)

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, b := range ledgerregistry.List() {
			if b.Description == "" {
				fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Str("app", "xdao-marketd").Logger()

	store, closeFn, err := ledgerregistry.Open(*backend)
	if err != nil {
		logger.Fatal().Err(err).Msg("open store backend")
	}
	if closeFn != nil {
		defer closeFn()
	}

	bank := settlement.NewBank()
	var settle market.Settlement = bank
	if *faucet > 0 {
		settle = &settlement.Faucet{Bank: bank, Grant: *faucet}
	}

	mkt, err := market.New(market.Config{Store: store, Settlement: settle, Fee: *fee})
	if err != nil {
		logger.Fatal().Err(err).Msg("construct market")
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		logger.Fatal().Err(err).Msg("listen")
	}
	defer lis.Close()

	s := grpc.NewServer()
	rpc.RegisterMarketServer(s, &rpc.Server{Market: mkt, Settlement: settle, Logger: logger})

	logger.Info().
		Str("addr", lis.Addr().String()).
		Str("backend", *backend).
		Uint64("fee", *fee).
		Stringer("custody", mkt.Custody()).
		Msg("xdao-marketd listening")
	if err := s.Serve(lis); err != nil {
		logger.Fatal().Err(err).Msg("serve")
	}
}
