package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	u "github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/and161185/pet-keeper/internal/convert"
	"github.com/and161185/pet-keeper/internal/lifecycle"
	"github.com/and161185/pet-keeper/internal/locker"
	"github.com/and161185/pet-keeper/internal/model"
	"github.com/and161185/pet-keeper/internal/repository/memory"
	grpcserver "github.com/and161185/pet-keeper/internal/server/grpc"
	"github.com/and161185/pet-keeper/internal/service"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "petkeeper")
}

func Test_cfgDir_And_Paths(t *testing.T) {
	base := withTmpConfig(t)
	if got := cfgDir(); got != base {
		t.Fatalf("cfgDir=%q, want %q", got, base)
	}
	if !strings.HasPrefix(tokenPath(), base) || !strings.HasSuffix(tokenPath(), "token.json") {
		t.Fatalf("tokenPath unexpected: %s", tokenPath())
	}
}

func Test_token_SaveLoad(t *testing.T) {
	_ = withTmpConfig(t)

	if _, err := loadToken(); err == nil {
		t.Fatalf("expected error when token file missing")
	}
	if err := saveToken(tokenFile{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("saveToken: %v", err)
	}
	tok, err := loadToken()
	if err != nil || tok != "tok" {
		t.Fatalf("loadToken: tok=%q err=%v", tok, err)
	}
	st, err := os.Stat(tokenPath())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	if err := saveToken(tokenFile{AccessToken: "tok2", ExpiresAt: time.Now().Add(-time.Minute)}); err != nil {
		t.Fatalf("saveToken expired: %v", err)
	}
	if _, err := loadToken(); err == nil {
		t.Fatalf("want error for expired token")
	}
}

func Test_mintToken(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	user := u.Must(u.NewV4())
	now := time.Now().UTC().Truncate(time.Second)

	tf, err := mintToken(key, user, now, time.Hour)
	require.NoError(t, err)
	require.Equal(t, user.String(), tf.UserID)
	require.True(t, tf.ExpiresAt.Equal(now.Add(time.Hour)))

	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(tf.AccessToken, &claims, func(*jwt.Token) (any, error) { return key, nil })
	require.NoError(t, err)
	require.Equal(t, user.String(), claims.Subject)

	_, err = mintToken(nil, user, now, time.Hour)
	require.Error(t, err)
}

func Test_printJSON_WritesPretty(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()

	printJSON(map[string]any{"a": 1})
	_ = w.Close()
	out, _ := io.ReadAll(r)

	var m map[string]any
	if json.Unmarshal(out, &m) != nil || m["a"] != float64(1) {
		t.Fatalf("printJSON produced invalid json: %s", string(out))
	}
	if !bytes.Contains(out, []byte("\n")) {
		t.Fatalf("printJSON should indent")
	}
}

func Test_writeHistoryCSV(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := writeHistoryCSV(&buf, []model.ActivityEntry{
		{Action: "adopted", Timestamp: at, Note: "welcome home, Mochi"},
		{Action: "feed", Timestamp: at.Add(time.Hour), Note: "Your pet enjoyed a hearty meal!", Delta: model.Delta{Health: 25, Hunger: -40}},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "action,timestamp,note,health,happiness,hunger,energy,cleanliness,sleep", lines[0])
	require.Equal(t, "feed,2025-03-01T11:00:00Z,Your pet enjoyed a hearty meal!,25,0,-40,0,0,0", lines[2])
}

func Test_bearerCreds_Metadata(t *testing.T) {
	t.Parallel()

	b := bearerCreds{token: "T", secure: true}
	md, err := b.GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatalf("GetRequestMetadata: %v", err)
	}
	if md["authorization"] != "Bearer T" {
		t.Fatalf("auth header mismatch: %v", md)
	}
	if !b.RequireTransportSecurity() {
		t.Fatalf("bearerCreds over TLS must require TLS")
	}
	if (bearerCreds{token: "T"}).RequireTransportSecurity() {
		t.Fatalf("plaintext bearerCreds must not require TLS")
	}
}

func Test_loadTLS_Variants(t *testing.T) {
	t.Parallel()

	creds, err := loadTLS("", true)
	if err != nil || creds == nil {
		t.Fatalf("insecure: %v %v", creds, err)
	}

	creds, err = loadTLS("", false)
	if err != nil || creds == nil {
		t.Fatalf("default tls: %v %v", creds, err)
	}

	tmp := filepath.Join(t.TempDir(), "bad.pem")
	_ = os.WriteFile(tmp, []byte("not pem"), 0o600)
	creds, err = loadTLS(tmp, false)
	if err == nil || creds != nil {
		t.Fatalf("bad CA should error, got creds=%v err=%v", creds, err)
	}
}

func Test_petCommands_KnownMethods(t *testing.T) {
	t.Parallel()

	names := map[string]bool{}
	for _, m := range grpcserver.ServiceDesc.Methods {
		names[m.MethodName] = true
	}
	for cmd, method := range petCommands {
		require.True(t, names[method], cmd)
	}
}

func Test_invoke_AgainstServer(t *testing.T) {
	key := []byte("secret")
	pets := service.NewPetService(memory.NewPetRepo(), lifecycle.New(lifecycle.DefaultTuning()), locker.New(), service.Options{})

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcserver.AuthUnary(key)))
	grpcserver.RegisterPetCareServer(gs, grpcserver.New(pets, nil))
	go func() { _ = gs.Serve(lis) }()
	defer gs.Stop()

	tf, err := mintToken(key, u.Must(u.NewV4()), time.Now(), time.Hour)
	require.NoError(t, err)

	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(bearerCreds{token: tf.AccessToken}),
	)
	require.NoError(t, err)
	defer cc.Close()

	ctx := context.Background()
	var adopted convert.ActionReply
	require.NoError(t, invoke(ctx, cc, grpcserver.MethodAdopt, convert.PetRequest{Name: "Mochi"}, &adopted))
	require.Equal(t, "Mochi", adopted.Pet.Name)

	var petted convert.ActionReply
	require.NoError(t, invoke(ctx, cc, petCommands["cuddle"], convert.PetRequest{PetID: adopted.Pet.ID.String()}, &petted))
	require.Equal(t, "too_soon", petted.Tier)

	var hist convert.HistoryReply
	require.NoError(t, invoke(ctx, cc, grpcserver.MethodHistory, convert.PetRequest{PetID: adopted.Pet.ID.String()}, &hist))
	require.Len(t, hist.Entries, 2)
}
