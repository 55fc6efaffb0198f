// Command xdao-market is the client tool for the DeSci market: key
// generation, content reference computation, request signing/submission, and
// demo-data seeding.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"xdao.co/descimarket/cidutil"
	"xdao.co/descimarket/envelope"
	"xdao.co/descimarket/identity"
	"xdao.co/descimarket/rpc"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "custody":
		fmt.Fprintln(out, identity.Custody())
		return 0
	case "cid":
		return cmdCID(args[1:], out, errOut)
	case "submit":
		return cmdSubmit(args[1:], out, errOut)
	case "seed-demo":
		return cmdSeedDemo(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-market: DeSci market client")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-market key init [--seed-hex <64hex>] [--alg ed25519|dilithium3]")
	fmt.Fprintln(w, "  xdao-market custody")
	fmt.Fprintln(w, "  xdao-market cid <file>")
	fmt.Fprintln(w, "  xdao-market submit --seed-hex <64hex> [--target addr] [--pay <microunits>] <method> [args...]")
	fmt.Fprintln(w, "  xdao-market seed-demo --seed-hex <64hex> [--target addr]")
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key", flag.ContinueOnError)
	fs.SetOutput(errOut)
	seedHex := fs.String("seed-hex", "", "ed25519 seed as 64 hex chars (random when empty)")
	alg := fs.String("alg", "ed25519", "key algorithm: ed25519 or dilithium3")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || fs.Arg(0) != "init" {
		fmt.Fprintln(errOut, "usage: xdao-market key init [--seed-hex <64hex>] [--alg ed25519|dilithium3]")
		return 2
	}

	switch *alg {
	case "ed25519":
		seed := make([]byte, ed25519.SeedSize)
		if *seedHex != "" {
			b, err := hex.DecodeString(*seedHex)
			if err != nil || len(b) != ed25519.SeedSize {
				fmt.Fprintln(errOut, "seed-hex must be 64 hex chars")
				return 2
			}
			copy(seed, b)
		} else if _, err := rand.Read(seed); err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		priv := ed25519.NewKeyFromSeed(seed)
		pub := priv.Public().(ed25519.PublicKey)
		key := "ed25519:" + base64.StdEncoding.EncodeToString(pub)
		addr, err := identity.FromKeyString(key)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		fmt.Fprintf(out, "seed-hex: %s\n", hex.EncodeToString(seed))
		fmt.Fprintf(out, "key: %s\n", key)
		fmt.Fprintf(out, "address: %s\n", addr)
		return 0
	case "dilithium3":
		pub, _, err := mode3.GenerateKey(rand.Reader)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		b, err := pub.MarshalBinary()
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		key := "dilithium3:" + base64.StdEncoding.EncodeToString(b)
		addr, derr := identity.FromKeyString(key)
		if derr != nil {
			fmt.Fprintln(errOut, derr)
			return 1
		}
		fmt.Fprintf(out, "key: %s\n", key)
		fmt.Fprintf(out, "address: %s\n", addr)
		return 0
	default:
		fmt.Fprintf(errOut, "unsupported algorithm %q\n", *alg)
		return 2
	}
}

func cmdCID(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "usage: xdao-market cid <file>")
		return 2
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	ref, err := cidutil.ContentRef(data)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintln(out, ref)
	return 0
}

func signerFromSeedHex(seedHex string) (envelope.Signer, error) {
	b, err := hex.DecodeString(seedHex)
	if err != nil || len(b) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed-hex must be 64 hex chars")
	}
	return envelope.Ed25519Signer{Private: ed25519.NewKeyFromSeed(b)}, nil
}

func cmdSubmit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(errOut)
	target := fs.String("target", "127.0.0.1:7788", "marketd address")
	seedHex := fs.String("seed-hex", "", "ed25519 seed as 64 hex chars")
	pay := fs.Uint64("pay", 0, "inbound payment to custody in microunits")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(errOut, "usage: xdao-market submit --seed-hex <64hex> <method> [args...]")
		return 2
	}
	signer, err := signerFromSeedHex(*seedHex)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	req := envelope.Request{Method: fs.Arg(0), Args: fs.Args()[1:]}
	if *pay > 0 {
		req.Payment = &envelope.Payment{Amount: *pay, Receiver: identity.Custody().String()}
	}
	sealed, err := envelope.Seal(req, signer)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	client, err := rpc.Dial(*target, rpc.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()

	events, err := client.Submit(sealed)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintln(out, events)
	return 0
}

// cmdSeedDemo publishes a couple of models and registers demo names so a
// fresh daemon has something to browse.
func cmdSeedDemo(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("seed-demo", flag.ContinueOnError)
	fs.SetOutput(errOut)
	target := fs.String("target", "127.0.0.1:7788", "marketd address")
	seedHex := fs.String("seed-hex", "", "ed25519 seed as 64 hex chars")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	signer, err := signerFromSeedHex(*seedHex)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	publisher, err := identity.FromKeyString(signer.KeyString())
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	client, err := rpc.Dial(*target, rpc.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()

	type seed struct {
		method string
		args   []string
	}
	demoCID := func(s string) string {
		ref, _ := cidutil.ContentRef([]byte(s))
		return ref
	}
	seeds := []seed{
		{"publish_model", []string{demoCID("demo: protein folding v1"), publisher.String(), "CC-BY-4.0"}},
		{"publish_model", []string{demoCID("demo: quantum sim v2"), publisher.String(), "MIT"}},
		{"register", []string{"smith.desci", demoCID("smith lab profile"), "1000000"}},
		{"register", []string{"quantlab.desci", demoCID("quantlab profile"), "2500000"}},
	}
	for _, s := range seeds {
		sealed, err := envelope.Seal(envelope.Request{Method: s.method, Args: s.args}, signer)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		events, err := client.Submit(sealed)
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", s.method, err)
			return 1
		}
		fmt.Fprintln(out, events)
	}
	return 0
}
