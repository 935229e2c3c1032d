// Command petctl is a CLI client for the pet care service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	u "github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	insecurecreds "google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/pet-keeper/internal/convert"
	"github.com/and161185/pet-keeper/internal/model"
	grpcserver "github.com/and161185/pet-keeper/internal/server/grpc"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "petkeeper")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "petkeeper")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tf tokenFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (run `petctl token` first)")
	}
	return tf.AccessToken, nil
}

// mintToken signs an HS256 token for user, the way the server verifies it.
func mintToken(key []byte, user u.UUID, now time.Time, ttl time.Duration) (tokenFile, error) {
	if len(key) == 0 {
		return tokenFile{}, errors.New("empty signing key")
	}
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   user.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return tokenFile{}, err
	}
	return tokenFile{AccessToken: s, UserID: user.String(), ExpiresAt: exp}, nil
}

// ---- grpc dial ----

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

func loadTLS(caPath string, insecure bool) (credentials.TransportCredentials, error) {
	if insecure {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

type dialConfig struct {
	addr      string
	caPath    string
	insecure  bool
	plaintext bool
}

func dial(ctx context.Context, dc dialConfig, bearer string) (*grpc.ClientConn, error) {
	var creds credentials.TransportCredentials
	if dc.plaintext {
		creds = insecurecreds.NewCredentials()
	} else {
		c, err := loadTLS(dc.caPath, dc.insecure)
		if err != nil {
			return nil, err
		}
		creds = c
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: bearer, secure: !dc.plaintext}))
	}
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	return grpc.DialContext(ctx, dc.addr, opts...)
}

// invoke sends req as a Struct to petcare.v1.PetCare/method and decodes the reply.
func invoke(ctx context.Context, cc grpc.ClientConnInterface, method string, req, reply any) error {
	in, err := convert.ToStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, grpcserver.FullMethod(method), in, out); err != nil {
		return err
	}
	return convert.FromStruct(out, reply)
}

// ---- output ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

type historyRow struct {
	Action      string `csv:"action"`
	Timestamp   string `csv:"timestamp"`
	Note        string `csv:"note"`
	Health      int    `csv:"health"`
	Happiness   int    `csv:"happiness"`
	Hunger      int    `csv:"hunger"`
	Energy      int    `csv:"energy"`
	Cleanliness int    `csv:"cleanliness"`
	Sleep       int    `csv:"sleep"`
}

func writeHistoryCSV(w io.Writer, entries []model.ActivityEntry) error {
	rows := make([]historyRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, historyRow{
			Action:      e.Action,
			Timestamp:   e.Timestamp.UTC().Format(time.RFC3339),
			Note:        e.Note,
			Health:      e.Delta.Health,
			Happiness:   e.Delta.Happiness,
			Hunger:      e.Delta.Hunger,
			Energy:      e.Delta.Energy,
			Cleanliness: e.Delta.Cleanliness,
			Sleep:       e.Delta.Sleep,
		})
	}
	return gocsv.Marshal(&rows, w)
}

func printAction(r convert.ActionReply) {
	fmt.Println(r.Message)
	printJSON(r)
}

func usage() {
	fmt.Fprintf(os.Stderr, `petctl CLI
Usage:
  petctl -addr HOST:PORT [-cacert file | -insecure | -plaintext] <cmd> [args]

Commands:
  version
  token      -key <jwt-key> [-user <uuid>] [-ttl 24h]   (dev: mints and saves a token)
  adopt      -name <name>
  list
  status     -id <pet uuid>
  feed|play|bathe|nap|heal|cuddle -id <pet uuid>
  sleep      -id <pet uuid>
  wake       -id <pet uuid>
  history    -id <pet uuid> [-n 20] [-csv]
`)
	os.Exit(2)
}

// petCommands maps subcommands that take only -id to RPC methods.
var petCommands = map[string]string{
	"status": grpcserver.MethodStatus,
	"feed":   grpcserver.MethodFeed,
	"play":   grpcserver.MethodPlay,
	"bathe":  grpcserver.MethodBathe,
	"nap":    grpcserver.MethodNap,
	"heal":   grpcserver.MethodHeal,
	"cuddle": grpcserver.MethodCuddle,
	"sleep":  grpcserver.MethodStartSleep,
	"wake":   grpcserver.MethodWake,
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	// global flags
	var dc dialConfig
	flag.StringVar(&dc.addr, "addr", "localhost:8443", "server addr")
	flag.StringVar(&dc.caPath, "cacert", "", "CA cert (PEM)")
	flag.BoolVar(&dc.insecure, "insecure", false, "skip cert verify (dev)")
	flag.BoolVar(&dc.plaintext, "plaintext", false, "no TLS at all (server started with -insecure)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {
	case "version":
		fmt.Printf("petctl %s (%s)\n", version, buildDate)
		return

	case "token":
		fs := flag.NewFlagSet("token", flag.ExitOnError)
		key := fs.String("key", "", "server -jwt-key")
		user := fs.String("user", "", "user uuid (default: new random user)")
		ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
		_ = fs.Parse(args)

		id := u.Must(u.NewV4())
		if *user != "" {
			parsed, err := u.FromString(*user)
			if err != nil {
				fail(fmt.Errorf("bad -user: %w", err))
			}
			id = parsed
		}
		tf, err := mintToken([]byte(*key), id, time.Now(), *ttl)
		if err != nil {
			fail(err)
		}
		if err := saveToken(tf); err != nil {
			fail(err)
		}
		fmt.Println(tf.UserID)
		return
	}

	token, err := loadToken()
	if err != nil {
		fail(err)
	}
	cc, err := dial(ctx, dc, token)
	if err != nil {
		fail(err)
	}
	defer cc.Close()

	switch cmd {
	case "adopt":
		fs := flag.NewFlagSet("adopt", flag.ExitOnError)
		name := fs.String("name", "", "pet name")
		_ = fs.Parse(args)

		var out convert.ActionReply
		if err := invoke(ctx, cc, grpcserver.MethodAdopt, convert.PetRequest{Name: *name}, &out); err != nil {
			fail(err)
		}
		printAction(out)

	case "list":
		var out convert.ListReply
		if err := invoke(ctx, cc, grpcserver.MethodList, convert.PetRequest{}, &out); err != nil {
			fail(err)
		}
		printJSON(out.PetIDs)

	case "history":
		fs := flag.NewFlagSet("history", flag.ExitOnError)
		id := fs.String("id", "", "pet uuid")
		n := fs.Int("n", 20, "newest entries to show (0: all)")
		asCSV := fs.Bool("csv", false, "write CSV to stdout")
		_ = fs.Parse(args)

		var out convert.HistoryReply
		if err := invoke(ctx, cc, grpcserver.MethodHistory, convert.PetRequest{PetID: *id, Limit: *n}, &out); err != nil {
			fail(err)
		}
		if *asCSV {
			if err := writeHistoryCSV(os.Stdout, out.Entries); err != nil {
				fail(err)
			}
			return
		}
		printJSON(out.Entries)

	default:
		method, ok := petCommands[cmd]
		if !ok {
			usage()
		}
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "pet uuid")
		_ = fs.Parse(args)

		var out convert.ActionReply
		if err := invoke(ctx, cc, method, convert.PetRequest{PetID: *id}, &out); err != nil {
			fail(err)
		}
		printAction(out)
	}
}

// ---- helpers ----

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
