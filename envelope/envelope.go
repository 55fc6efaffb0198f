// Package envelope implements the canonical signed request envelope the
// gateway accepts. An envelope pairs one market call with its optional
// inbound payment declaration and the sender's signature, so that payment and
// call travel as a single atomic unit.
//
// Serialization is strictly canonical: UTF-8, LF only, no BOM, no trailing
// whitespace, fixed section order, keys sorted within each section.
// Non-canonical inputs are rejected outright; there is exactly one byte
// representation for a given request.
package envelope

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"xdao.co/descimarket/identity"
)

const (
	Preamble  = "-----BEGIN DESCI REQUEST-----"
	Postamble = "-----END DESCI REQUEST-----"
)

// MaxArgs bounds the argument list. The bound keeps Arg.N keys in numeric
// order under the lexicographic key-sorting rule.
const MaxArgs = 9

// Payment declares funds moved into custody alongside the call.
type Payment struct {
	Amount   uint64
	Receiver string // custody address, base58
}

// Request is the payload an envelope carries.
type Request struct {
	Method  string
	Args    []string
	Payment *Payment
}

// Envelope is a parsed canonical request.
type Envelope struct {
	Request

	SenderKey string // "ed25519:<b64>" or "dilithium3:<b64>"
	HashAlg   string
	SigAlg    string
	Signature string // base64

	Raw    []byte // canonical bytes
	Signed []byte // bytes covered by the signature (BEGIN through end of PAYMENT)
}

// SenderAddress derives the authenticated sender from the envelope key.
func (e *Envelope) SenderAddress() (identity.Address, error) {
	return identity.FromKeyString(e.SenderKey)
}

type section struct {
	name  string
	pairs map[string]string
}

// Parse parses an envelope and enforces the canonical serialization rules.
func Parse(data []byte) (*Envelope, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("envelope: must be valid UTF-8")
	}
	if strings.Contains(string(data), "\r") {
		return nil, errors.New("envelope: CR line endings not allowed")
	}
	if strings.HasPrefix(string(data), "\xEF\xBB\xBF") {
		return nil, errors.New("envelope: BOM not allowed")
	}
	if len(data) > 0 && data[len(data)-1] == '\n' {
		return nil, errors.New("envelope: trailing newline not allowed")
	}

	lines := strings.Split(string(data), "\n")
	for _, l := range lines {
		if len(l) > 0 && (l[len(l)-1] == ' ' || l[len(l)-1] == '\t') {
			return nil, errors.New("envelope: trailing whitespace forbidden")
		}
	}
	if len(lines) < 3 || lines[0] != Preamble {
		return nil, errors.New("envelope: missing preamble")
	}
	if lines[len(lines)-1] != Postamble {
		return nil, errors.New("envelope: missing postamble")
	}

	sections, cryptoLine, err := parseSections(lines[1 : len(lines)-1])
	if err != nil {
		return nil, err
	}

	env := &Envelope{Raw: append([]byte(nil), data...)}
	if err := env.fromSections(sections); err != nil {
		return nil, err
	}

	// Signed bytes run from the preamble through the last line before
	// [CRYPTO], including its newline.
	signedLines := lines[:cryptoLine+1] // +1: preamble occupies line 0
	env.Signed = []byte(strings.Join(signedLines, "\n") + "\n")
	return env, nil
}

// parseSections splits body lines into ordered sections and returns the body
// index of the [CRYPTO] header.
func parseSections(body []string) ([]section, int, error) {
	var secs []section
	cryptoLine := -1
	for i, l := range body {
		if strings.HasPrefix(l, "[") {
			if !strings.HasSuffix(l, "]") {
				return nil, 0, errors.New("envelope: malformed section header")
			}
			name := l[1 : len(l)-1]
			if name == "CRYPTO" {
				cryptoLine = i
			}
			secs = append(secs, section{name: name, pairs: map[string]string{}})
			continue
		}
		if len(secs) == 0 {
			return nil, 0, errors.New("envelope: content before first section")
		}
		key, value, ok := strings.Cut(l, ": ")
		if !ok || key == "" {
			return nil, 0, fmt.Errorf("envelope: malformed line %q", l)
		}
		cur := &secs[len(secs)-1]
		if _, dup := cur.pairs[key]; dup {
			return nil, 0, fmt.Errorf("envelope: duplicate key %q", key)
		}
		cur.pairs[key] = value
	}

	var order []string
	for _, s := range secs {
		order = append(order, s.name)
	}
	switch strings.Join(order, ",") {
	case "CALL,CRYPTO", "CALL,PAYMENT,CRYPTO":
	default:
		return nil, 0, fmt.Errorf("envelope: bad section order %v", order)
	}
	if cryptoLine < 0 {
		return nil, 0, errors.New("envelope: missing CRYPTO section")
	}

	// Keys must appear sorted; re-derive and compare against the raw order.
	at := 0
	for _, s := range secs {
		at++ // section header line
		keys := make([]string, 0, len(s.pairs))
		for k := range s.pairs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			want := k + ": " + s.pairs[k]
			if body[at] != want {
				return nil, 0, fmt.Errorf("envelope: keys not in canonical order in [%s]", s.name)
			}
			at++
		}
	}
	return secs, cryptoLine, nil
}

func (e *Envelope) fromSections(secs []section) error {
	for _, s := range secs {
		switch s.name {
		case "CALL":
			method, ok := s.pairs["Method"]
			if !ok || method == "" {
				return errors.New("envelope: missing Method")
			}
			e.Method = method
			for i := 0; ; i++ {
				v, ok := s.pairs["Arg."+strconv.Itoa(i)]
				if !ok {
					if len(s.pairs) != 1+i {
						return errors.New("envelope: non-contiguous Arg keys")
					}
					break
				}
				if i >= MaxArgs {
					return errors.New("envelope: too many arguments")
				}
				e.Args = append(e.Args, v)
			}
		case "PAYMENT":
			amountStr, ok := s.pairs["Amount"]
			if !ok {
				return errors.New("envelope: payment missing Amount")
			}
			amount, err := strconv.ParseUint(amountStr, 10, 64)
			if err != nil {
				return fmt.Errorf("envelope: bad payment amount: %w", err)
			}
			receiver, ok := s.pairs["Receiver"]
			if !ok || receiver == "" {
				return errors.New("envelope: payment missing Receiver")
			}
			if len(s.pairs) != 2 {
				return errors.New("envelope: unexpected keys in [PAYMENT]")
			}
			e.Payment = &Payment{Amount: amount, Receiver: receiver}
		case "CRYPTO":
			e.HashAlg = s.pairs["Hash-Alg"]
			e.SenderKey = s.pairs["Sender-Key"]
			e.Signature = s.pairs["Signature"]
			e.SigAlg = s.pairs["Signature-Alg"]
			if e.HashAlg == "" || e.SenderKey == "" || e.Signature == "" || e.SigAlg == "" {
				return errors.New("envelope: incomplete CRYPTO section")
			}
			if len(s.pairs) != 4 {
				return errors.New("envelope: unexpected keys in [CRYPTO]")
			}
		default:
			return fmt.Errorf("envelope: unknown section %q", s.name)
		}
	}
	return nil
}

// renderSigned renders the canonical signed portion (preamble, CALL,
// optional PAYMENT) with a trailing newline.
func renderSigned(req Request) ([]byte, error) {
	if req.Method == "" {
		return nil, errors.New("envelope: method is required")
	}
	if len(req.Args) > MaxArgs {
		return nil, errors.New("envelope: too many arguments")
	}
	var b strings.Builder
	b.WriteString(Preamble + "\n")
	b.WriteString("[CALL]\n")
	// Lexicographic key order: Arg.0..Arg.8 precede Method.
	for i, a := range req.Args {
		if strings.ContainsAny(a, "\n\r") {
			return nil, errors.New("envelope: argument contains a line break")
		}
		fmt.Fprintf(&b, "Arg.%d: %s\n", i, a)
	}
	b.WriteString("Method: " + req.Method + "\n")
	if req.Payment != nil {
		b.WriteString("[PAYMENT]\n")
		fmt.Fprintf(&b, "Amount: %d\n", req.Payment.Amount)
		fmt.Fprintf(&b, "Receiver: %s\n", req.Payment.Receiver)
	}
	return []byte(b.String()), nil
}

// Seal renders the canonical envelope for req, signed by signer.
func Seal(req Request, signer Signer) ([]byte, error) {
	signed, err := renderSigned(req)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(signed)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.Write(signed)
	b.WriteString("[CRYPTO]\n")
	b.WriteString("Hash-Alg: " + signer.HashAlg() + "\n")
	b.WriteString("Sender-Key: " + signer.KeyString() + "\n")
	b.WriteString("Signature: " + sig + "\n")
	b.WriteString("Signature-Alg: " + signer.Alg() + "\n")
	b.WriteString(Postamble)
	return []byte(b.String()), nil
}
