package sqliteledger

import (
	"flag"

	"xdao.co/descimarket/ledger"
	"xdao.co/descimarket/ledger/ledgerregistry"
)

var flagPath *string

func init() {
	ledgerregistry.MustRegister(ledgerregistry.Backend{
		Name:        "sqlite",
		Description: "SQLite-backed store",
		RegisterFlags: func(fs *flag.FlagSet) {
			flagPath = fs.String("sqlite.path", "market.db", "SQLite database path")
		},
		Open: func() (ledger.Store, func() error, error) {
			s, err := Open(*flagPath)
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
	})
}
