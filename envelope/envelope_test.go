package envelope_test

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"xdao.co/descimarket/envelope"
	"xdao.co/descimarket/identity"
)

func newSigner(t *testing.T) envelope.Ed25519Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return envelope.Ed25519Signer{Private: priv}
}

func seal(t *testing.T, req envelope.Request, s envelope.Signer) []byte {
	t.Helper()
	sealed, err := envelope.Seal(req, s)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return sealed
}

func TestSealParseRoundTrip(t *testing.T) {
	s := newSigner(t)
	req := envelope.Request{
		Method: "publish_model",
		Args:   []string{"bafkreidemo", "pubaddr", "MIT"},
	}
	sealed := seal(t, req, s)

	env, err := envelope.Parse(sealed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if env.Method != req.Method {
		t.Fatalf("method: got %q want %q", env.Method, req.Method)
	}
	if len(env.Args) != 3 || env.Args[0] != "bafkreidemo" || env.Args[2] != "MIT" {
		t.Fatalf("args: got %v", env.Args)
	}
	if env.Payment != nil {
		t.Fatalf("unexpected payment: %+v", env.Payment)
	}
	if env.SigAlg != "ed25519" || env.HashAlg != "sha256" {
		t.Fatalf("crypto fields: alg=%q hash=%q", env.SigAlg, env.HashAlg)
	}
	if err := env.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestSealWithPayment(t *testing.T) {
	s := newSigner(t)
	custody := identity.Custody().String()
	req := envelope.Request{
		Method:  "create_escrow",
		Args:    []string{"1", "pubaddr", "2000000"},
		Payment: &envelope.Payment{Amount: 2_000_000, Receiver: custody},
	}
	sealed := seal(t, req, s)
	if !bytes.Contains(sealed, []byte("[PAYMENT]\nAmount: 2000000\nReceiver: "+custody+"\n")) {
		t.Fatalf("payment section missing or misordered:\n%s", sealed)
	}

	env, err := envelope.Parse(sealed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if env.Payment == nil || env.Payment.Amount != 2_000_000 || env.Payment.Receiver != custody {
		t.Fatalf("payment: got %+v", env.Payment)
	}
	if err := env.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestSenderAddressMatchesKey(t *testing.T) {
	s := newSigner(t)
	env, err := envelope.Parse(seal(t, envelope.Request{Method: "exists", Args: []string{"a"}}, s))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := env.SenderAddress()
	if err != nil {
		t.Fatalf("SenderAddress: %v", err)
	}
	want, err := identity.FromKeyString(s.KeyString())
	if err != nil {
		t.Fatalf("FromKeyString: %v", err)
	}
	if got != want {
		t.Fatalf("sender: got %s want %s", got, want)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	s := newSigner(t)
	sealed := seal(t, envelope.Request{Method: "release_payment", Args: []string{"1"}}, s)

	// Flip the escrow ID inside the signed portion.
	tampered := bytes.Replace(sealed, []byte("Arg.0: 1"), []byte("Arg.0: 2"), 1)
	if bytes.Equal(tampered, sealed) {
		t.Fatalf("replacement did not apply")
	}
	env, err := envelope.Parse(tampered)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := env.Verify(); err == nil {
		t.Fatalf("expected verification failure on tampered call")
	}
}

func TestVerifyRejectsAlgMismatch(t *testing.T) {
	s := newSigner(t)
	sealed := seal(t, envelope.Request{Method: "exists", Args: []string{"a"}}, s)
	swapped := bytes.Replace(sealed,
		[]byte("Signature-Alg: ed25519"), []byte("Signature-Alg: dilithium3"), 1)
	env, err := envelope.Parse(swapped)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := env.Verify(); err == nil {
		t.Fatalf("expected alg mismatch rejection")
	}
}

func TestDilithium3SealVerify(t *testing.T) {
	pub, priv, err := mode3.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	s := envelope.Dilithium3Signer{Public: pub, Private: priv, Hash: "sha3-256"}

	sealed := seal(t, envelope.Request{Method: "get_escrow_count"}, s)
	env, perr := envelope.Parse(sealed)
	if perr != nil {
		t.Fatalf("Parse: %v", perr)
	}
	if env.SigAlg != "dilithium3" || env.HashAlg != "sha3-256" {
		t.Fatalf("crypto fields: alg=%q hash=%q", env.SigAlg, env.HashAlg)
	}
	if err := env.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if _, err := env.SenderAddress(); err != nil {
		t.Fatalf("SenderAddress: %v", err)
	}
}

func TestHashAlgSelection(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	for _, hash := range []string{"sha256", "sha512", "sha3-256"} {
		s := envelope.Ed25519Signer{Private: priv, Hash: hash}
		env, perr := envelope.Parse(seal(t, envelope.Request{Method: "get_escrow_count"}, s))
		if perr != nil {
			t.Fatalf("%s: Parse: %v", hash, perr)
		}
		if env.HashAlg != hash {
			t.Fatalf("hash alg: got %q want %q", env.HashAlg, hash)
		}
		if err := env.Verify(); err != nil {
			t.Fatalf("%s: Verify: %v", hash, err)
		}
	}

	s := envelope.Ed25519Signer{Private: priv, Hash: "md5"}
	if _, err := envelope.Seal(envelope.Request{Method: "x"}, s); err == nil {
		t.Fatalf("expected unsupported hash rejection")
	}
}

func TestSealInputValidation(t *testing.T) {
	s := newSigner(t)

	if _, err := envelope.Seal(envelope.Request{}, s); err == nil {
		t.Fatalf("expected missing method rejection")
	}
	many := make([]string, envelope.MaxArgs+1)
	if _, err := envelope.Seal(envelope.Request{Method: "m", Args: many}, s); err == nil {
		t.Fatalf("expected too-many-arguments rejection")
	}
	if _, err := envelope.Seal(envelope.Request{Method: "m", Args: []string{"a\nb"}}, s); err == nil {
		t.Fatalf("expected line-break-in-argument rejection")
	}
}

func TestParseRejectsNonCanonical(t *testing.T) {
	s := newSigner(t)
	sealed := string(seal(t, envelope.Request{Method: "exists", Args: []string{"a"}}, s))

	cases := map[string]string{
		"trailing newline":    sealed + "\n",
		"crlf endings":        strings.ReplaceAll(sealed, "\n", "\r\n"),
		"bom":                 "\xEF\xBB\xBF" + sealed,
		"trailing whitespace": strings.Replace(sealed, "[CALL]", "[CALL] ", 1),
		"missing preamble":    strings.TrimPrefix(sealed, envelope.Preamble+"\n"),
		"missing postamble":   strings.TrimSuffix(sealed, "\n"+envelope.Postamble),
		"unknown section":     strings.Replace(sealed, "[CALL]", "[EXTRA]", 1),
		"bad section order": envelope.Preamble + "\n[CRYPTO]\nHash-Alg: sha256\nSender-Key: k\nSignature: s\nSignature-Alg: ed25519\n" +
			"[CALL]\nMethod: m\n" + envelope.Postamble,
		"unsorted keys": strings.Replace(sealed,
			"Arg.0: a\nMethod: exists", "Method: exists\nArg.0: a", 1),
		"invalid utf8": strings.Replace(sealed, "exists", "exi\xffts", 1),
	}
	for name, input := range cases {
		if _, err := envelope.Parse([]byte(input)); err == nil {
			t.Errorf("%s: expected parse rejection", name)
		}
	}
}

func TestParseRejectsMalformedBody(t *testing.T) {
	crypto := "[CRYPTO]\nHash-Alg: sha256\nSender-Key: ed25519:AAAA\nSignature: c2ln\nSignature-Alg: ed25519\n"
	cases := map[string]string{
		"duplicate key": envelope.Preamble + "\n[CALL]\nMethod: m\nMethod: n\n" + crypto + envelope.Postamble,
		"gap in args": envelope.Preamble + "\n[CALL]\nArg.0: a\nArg.2: c\nMethod: m\n" +
			crypto + envelope.Postamble,
		"missing method": envelope.Preamble + "\n[CALL]\nArg.0: a\n" + crypto + envelope.Postamble,
		"bad payment amount": envelope.Preamble + "\n[CALL]\nMethod: m\n[PAYMENT]\nAmount: lots\nReceiver: r\n" +
			crypto + envelope.Postamble,
		"payment missing receiver": envelope.Preamble + "\n[CALL]\nMethod: m\n[PAYMENT]\nAmount: 5\n" +
			crypto + envelope.Postamble,
		"incomplete crypto": envelope.Preamble + "\n[CALL]\nMethod: m\n[CRYPTO]\nHash-Alg: sha256\n" +
			envelope.Postamble,
		"malformed line": envelope.Preamble + "\n[CALL]\nMethod m\n" + crypto + envelope.Postamble,
	}
	for name, input := range cases {
		if _, err := envelope.Parse([]byte(input)); err == nil {
			t.Errorf("%s: expected parse rejection", name)
		}
	}
}

// The signed portion must stop right before [CRYPTO] so the signature covers
// call and payment but not itself.
func TestSignedPortionExcludesCrypto(t *testing.T) {
	s := newSigner(t)
	env, err := envelope.Parse(seal(t, envelope.Request{Method: "exists", Args: []string{"a"}}, s))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := envelope.Preamble + "\n[CALL]\nArg.0: a\nMethod: exists\n"
	if string(env.Signed) != want {
		t.Fatalf("signed portion:\ngot  %q\nwant %q", env.Signed, want)
	}
}
