package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (*verifierResult, error) {
	t.Helper()

	var out bytes.Buffer
	root, err := newRootCmd()
	require.NoError(t, err)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return nil, err
	}
	res := new(verifierResult)
	require.NoError(t, json.Unmarshal(out.Bytes(), res), out.String())
	return res, nil
}

func writeDemo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	root, err := newRootCmd()
	require.NoError(t, err)
	root.SetOut(new(bytes.Buffer))
	root.SetArgs([]string{"demo", "--out", dir})
	require.NoError(t, root.Execute())
	for _, name := range []string{"issuer.bin", "rule.bin", "request.bin", "sdverifier.yaml"} {
		require.FileExists(t, filepath.Join(dir, name))
	}
	return dir
}

func TestBindFlags(t *testing.T) {
	t.Parallel()

	v := newViper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, bindFlags(v, flags))
	require.NoError(t, flags.Parse([]string{"--workers", "3", "--log-level", "debug"}))
	require.Equal(t, 3, v.GetInt("workers"))
	require.Equal(t, "debug", v.GetString("log.level"))
}

func TestVerifyDemo(t *testing.T) {
	dir := writeDemo(t)
	cfg := filepath.Join(dir, "sdverifier.yaml")

	res, err := run(t, "verify", "--config", cfg,
		"--rule", filepath.Join(dir, "rule.bin"),
		"--request", filepath.Join(dir, "request.bin"))
	require.NoError(t, err)
	require.True(t, res.Result, res.Diagnostic)
	require.Empty(t, res.ErrorMessage)

	res, err = run(t, "revealed", "--config", cfg, "--request", filepath.Join(dir, "request.bin"))
	require.NoError(t, err)
	require.Equal(t, map[string]string{"age_bracket": "30-39", "country": "NL"}, res.RevealedAttributeInfo)
}

func TestVerifyFailures(t *testing.T) {
	dir := writeDemo(t)
	issuers := filepath.Join(dir, "issuer.bin")
	garbage := filepath.Join(dir, "garbage.bin")
	require.NoError(t, os.WriteFile(garbage, []byte{0xff, 0x01}, 0o644))

	res, err := run(t, "verify", "--issuers", issuers,
		"--rule", filepath.Join(dir, "rule.bin"), "--request", garbage)
	require.NoError(t, err)
	require.False(t, res.Result)
	require.Equal(t, "decode", res.Class)
	require.NotEmpty(t, res.Diagnostic)

	res, err = run(t, "verify", "--issuers", issuers,
		"--rule", garbage, "--request", filepath.Join(dir, "request.bin"))
	require.NoError(t, err)
	require.False(t, res.Result)
	require.NotEmpty(t, res.ErrorMessage)

	res, err = run(t, "revealed", "--issuers", issuers, "--request", garbage)
	require.NoError(t, err)
	require.False(t, res.Result)
	require.NotEmpty(t, res.ErrorMessage)
}

func TestConfigErrors(t *testing.T) {
	dir := writeDemo(t)
	req := filepath.Join(dir, "request.bin")

	_, err := run(t, "revealed", "--request", req)
	require.ErrorContains(t, err, "no issuer parameters configured")

	_, err = run(t, "revealed", "--issuers", filepath.Join(dir, "missing.bin"), "--request", req)
	require.Error(t, err)

	_, err = run(t, "revealed", "--issuers", filepath.Join(dir, "issuer.bin"), "--log-level", "loud", "--request", req)
	require.ErrorContains(t, err, "invalid log level")

	_, err = run(t, "revealed", "--config", filepath.Join(dir, "missing.yaml"), "--request", req)
	require.ErrorContains(t, err, "failed to read config")
}

func TestIssuersFromEnv(t *testing.T) {
	dir := writeDemo(t)
	t.Setenv(envPrefix+"_ISSUERS", filepath.Join(dir, "issuer.bin"))

	res, err := run(t, "verify",
		"--rule", filepath.Join(dir, "rule.bin"),
		"--request", filepath.Join(dir, "request.bin"))
	require.NoError(t, err)
	require.True(t, res.Result, res.Diagnostic)
}
