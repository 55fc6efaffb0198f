package memledger

import (
	"flag"

	"xdao.co/descimarket/ledger"
	"xdao.co/descimarket/ledger/ledgerregistry"
)

func init() {
	ledgerregistry.MustRegister(ledgerregistry.Backend{
		Name:          "mem",
		Description:   "in-memory store (state is lost on exit)",
		RegisterFlags: func(fs *flag.FlagSet) {},
		Open: func() (ledger.Store, func() error, error) {
			return New(), nil, nil
		},
	})
}
