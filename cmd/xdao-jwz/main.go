package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"xdao.co/jwz/artifacts"
	"xdao.co/jwz/jwz"
	"xdao.co/jwz/keys"
	"xdao.co/jwz/proving"
	"xdao.co/jwz/proving/groth16"
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
	case "parse":
		return cmdParse(args[1:], out, errOut)
	case "hash":
		return cmdHash(args[1:], out, errOut)
	case "prove":
		return cmdProve(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "cid":
		return cmdCID(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "sign-manifest":
		return cmdSignManifest(args[1:], out, errOut)
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
	fmt.Fprintln(w, "xdao-jwz: JWZ token CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-jwz parse <token-file>")
	fmt.Fprintln(w, "  xdao-jwz hash <token-file>")
	fmt.Fprintln(w, "  xdao-jwz prove --payload-file <file> --circuit <id> --witness-file <file> [--artifacts <dir>]")
	fmt.Fprintln(w, "  xdao-jwz verify [--artifacts <dir>] [--signer-key <alg:base64>] <token-file>")
	fmt.Fprintln(w, "  xdao-jwz cid <token-file>")
	fmt.Fprintln(w, "  xdao-jwz key init|derive|export|list ...")
	fmt.Fprintln(w, "  xdao-jwz sign-manifest --circuit <id> --signer <name> [--circuit-key] [--artifacts <dir>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - tokens may be compact (three dot-joined segments) or full (one JSON object)")
	fmt.Fprintln(w, "  - artifacts live under <dir>/<circuit-id>/ (default ~/.xdao/jwz/circuits)")
	fmt.Fprintln(w, "  - prove expects the witness file in gnark binary full-witness form")
	fmt.Fprintln(w, "  - prove writes the compact token to stdout (no trailing newline)")
}

// methodsFor registers a groth16 method for the circuit named in the token
// header, so parsing can resolve alg without ambient global state.
func methodsFor(circuitID string) *proving.Registry {
	r := proving.NewRegistry()
	r.Register(groth16.New(circuitID))
	return r
}

func readToken(path string, errOut io.Writer) (string, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(errOut, "read token: %v\n", err)
		return "", false
	}
	return string(b), true
}

func cmdParse(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-jwz parse <token-file>")
		return 2
	}
	raw, ok := readToken(fs.Arg(0), errOut)
	if !ok {
		return 1
	}
	token, err := jwz.Parse(raw, jwz.WithMethods(methodsFor("")))
	if err != nil {
		fmt.Fprintf(errOut, "invalid token: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "alg:     %s\n", token.Alg)
	fmt.Fprintf(out, "circuit: %s\n", token.CircuitID)
	fmt.Fprintf(out, "payload: %s\n", token.Payload())
	return 0
}

func cmdHash(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-jwz hash <token-file>")
		return 2
	}
	raw, ok := readToken(fs.Arg(0), errOut)
	if !ok {
		return 1
	}
	token, err := jwz.Parse(raw, jwz.WithMethods(methodsFor("")))
	if err != nil {
		fmt.Fprintf(errOut, "invalid token: %v\n", err)
		return 1
	}
	hash, err := token.MessageHash()
	if err != nil {
		fmt.Fprintf(errOut, "hash: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, hex.EncodeToString(hash))
	return 0
}

func cmdProve(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("prove", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var payloadFile string
	var circuitID string
	var witnessFile string
	var artifactsDir string
	fs.StringVar(&payloadFile, "payload-file", "", "File holding the token payload")
	fs.StringVar(&circuitID, "circuit", "", "Circuit ID")
	fs.StringVar(&witnessFile, "witness-file", "", "gnark binary full witness")
	fs.StringVar(&artifactsDir, "artifacts", "", "Artifact store directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if payloadFile == "" || circuitID == "" || witnessFile == "" {
		fmt.Fprintln(errOut, "usage: xdao-jwz prove --payload-file <file> --circuit <id> --witness-file <file> [--artifacts <dir>]")
		return 2
	}

	payload, err := os.ReadFile(payloadFile)
	if err != nil {
		fmt.Fprintf(errOut, "read payload: %v\n", err)
		return 1
	}
	witness, err := os.ReadFile(witnessFile)
	if err != nil {
		fmt.Fprintf(errOut, "read witness: %v\n", err)
		return 1
	}
	store, err := artifacts.New(artifactsDir)
	if err != nil {
		fmt.Fprintf(errOut, "artifact store: %v\n", err)
		return 1
	}
	bundle, err := store.Load(circuitID)
	if err != nil {
		fmt.Fprintf(errOut, "load artifacts: %v\n", err)
		return 1
	}

	// The witness file is already the full circuit input; the preparer only
	// hands it over. Binding the message hash into the witness is the
	// witness builder's job for the circuit in question.
	preparer := proving.InputsPreparerFunc(func(messageHash []byte, circuitID string) ([]byte, error) {
		return witness, nil
	})

	token := jwz.New(groth16.New(circuitID), string(payload), preparer)
	compact, err := token.Prove(bundle.ProvingKey, bundle.CircuitProgram)
	if err != nil {
		fmt.Fprintf(errOut, "prove: %v\n", err)
		return 1
	}
	_, _ = io.WriteString(out, compact)
	return 0
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var artifactsDir string
	var signerKey string
	fs.StringVar(&artifactsDir, "artifacts", "", "Artifact store directory")
	fs.StringVar(&signerKey, "signer-key", "", "Trusted manifest signer key; requires a signed manifest")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-jwz verify [--artifacts <dir>] [--signer-key <alg:base64>] <token-file>")
		return 2
	}
	raw, ok := readToken(fs.Arg(0), errOut)
	if !ok {
		return 1
	}
	token, err := jwz.Parse(raw, jwz.WithMethods(methodsFor("")))
	if err != nil {
		fmt.Fprintf(errOut, "invalid token: %v\n", err)
		return 1
	}

	store, err := artifacts.New(artifactsDir)
	if err != nil {
		fmt.Fprintf(errOut, "artifact store: %v\n", err)
		return 1
	}
	var bundle *artifacts.Bundle
	if signerKey != "" {
		bundle, err = store.LoadVerified(token.CircuitID, signerKey)
	} else {
		bundle, err = store.Load(token.CircuitID)
	}
	if err != nil {
		fmt.Fprintf(errOut, "load artifacts: %v\n", err)
		return 1
	}

	if err := token.Verify(bundle.VerificationKey); err != nil {
		fmt.Fprintf(errOut, "invalid: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, "OK")
	return 0
}

func cmdCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-jwz cid <token-file>")
		return 2
	}
	raw, ok := readToken(fs.Arg(0), errOut)
	if !ok {
		return 1
	}
	token, err := jwz.Parse(raw, jwz.WithMethods(methodsFor("")))
	if err != nil {
		fmt.Fprintf(errOut, "invalid token: %v\n", err)
		return 1
	}
	id, err := token.CID()
	if err != nil {
		fmt.Fprintf(errOut, "cid: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, id)
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-jwz key init|derive|export|list ...")
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "export":
		return cmdKeyExport(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown key command: %s\n", args[0])
		return 2
	}
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var seedHex string
	var keysDir string
	var force bool

	fs.StringVar(&name, "name", "", "Signer name (directory under ~/.xdao/jwz/keys)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible setups)")
	fs.StringVar(&keysDir, "keys", "", "Key store directory")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	ks, err := keys.NewStore(keysDir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}

	var seed []byte
	if seedHex != "" {
		var derr error
		seed, derr = keys.ParseSeedHex(seedHex)
		if derr != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", derr)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	signerKey, rootPath, err := ks.InitializeRootKey(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created signer key: %s\n", signerKey)
	fmt.Fprintf(out, "Stored at: %s\n", rootPath)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from string
	var circuitID string
	var keysDir string
	var force bool

	fs.StringVar(&from, "from", "", "Root signer name")
	fs.StringVar(&circuitID, "circuit", "", "Circuit ID the subkey signs for")
	fs.StringVar(&keysDir, "keys", "", "Key store directory")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" {
		fmt.Fprintln(errOut, "missing --from")
		return 2
	}
	if circuitID == "" {
		fmt.Fprintln(errOut, "missing --circuit")
		return 2
	}
	ks, err := keys.NewStore(keysDir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	signerKey, keyPath, err := ks.DeriveCircuitKey(from, circuitID, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive circuit key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created circuit key: %s\n", signerKey)
	fmt.Fprintf(out, "Stored at: %s\n", keyPath)
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var circuitID string
	var keysDir string

	fs.StringVar(&name, "name", "", "Signer name")
	fs.StringVar(&circuitID, "circuit", "", "Optional circuit (if set, exports the derived subkey)")
	fs.StringVar(&keysDir, "keys", "", "Key store directory")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	ks, err := keys.NewStore(keysDir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	signerKey, err := ks.SignerKey(name, circuitID)
	if err != nil {
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, signerKey)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var keysDir string
	fs.StringVar(&keysDir, "keys", "", "Key store directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := keys.NewStore(keysDir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.List()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\n", e.Name)
		for _, c := range e.Circuits {
			fmt.Fprintf(out, "  - %s\n", c)
		}
	}
	return 0
}

func cmdSignManifest(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("sign-manifest", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var circuitID string
	var signer string
	var circuitKey bool
	var artifactsDir string
	var keysDir string

	fs.StringVar(&circuitID, "circuit", "", "Circuit whose manifest to sign")
	fs.StringVar(&signer, "signer", "", "Signer name in the key store")
	fs.BoolVar(&circuitKey, "circuit-key", false, "Sign with the per-circuit subkey instead of the root key")
	fs.StringVar(&artifactsDir, "artifacts", "", "Artifact store directory")
	fs.StringVar(&keysDir, "keys", "", "Key store directory")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if circuitID == "" || signer == "" {
		fmt.Fprintln(errOut, "usage: xdao-jwz sign-manifest --circuit <id> --signer <name> [--circuit-key] [--artifacts <dir>]")
		return 2
	}

	ks, err := keys.NewStore(keysDir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	keyCircuit := ""
	if circuitKey {
		keyCircuit = circuitID
	}
	priv, err := ks.PrivateKey(signer, keyCircuit)
	if err != nil {
		fmt.Fprintf(errOut, "load signer key: %v\n", err)
		return 1
	}

	store, err := artifacts.New(artifactsDir)
	if err != nil {
		fmt.Fprintf(errOut, "artifact store: %v\n", err)
		return 1
	}
	manifest, err := store.Manifest(circuitID)
	if err != nil {
		fmt.Fprintf(errOut, "load manifest: %v\n", err)
		return 1
	}
	if err := manifest.SignEd25519(priv); err != nil {
		fmt.Fprintf(errOut, "sign manifest: %v\n", err)
		return 1
	}
	if err := store.WriteManifest(circuitID, manifest); err != nil {
		fmt.Fprintf(errOut, "write manifest: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Signed by: %s\n", manifest.SignerKey)
	return 0
}
